package jockey

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueloop/internal/app/notification"
	"cueloop/internal/app/orchestrator"
	"cueloop/internal/infra/config"
)

// recordingSink hands out sessions that record transmitted sources.
// When block is non-nil, transmissions stall until it is closed.
type recordingSink struct {
	mu          sync.Mutex
	transmitted []string
	block       chan struct{}
}

func (s *recordingSink) Acquire(ctx context.Context) (orchestrator.Session, error) {
	return &recordingSession{sink: s}, nil
}

func (s *recordingSink) sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.transmitted))
	copy(out, s.transmitted)
	return out
}

type recordingSession struct {
	sink *recordingSink
}

func (s *recordingSession) Transmit(ctx context.Context, source string) error {
	s.sink.mu.Lock()
	s.sink.transmitted = append(s.sink.transmitted, source)
	block := s.sink.block
	s.sink.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *recordingSession) Close() error { return nil }

// passthroughResolver resolves every reference to itself.
type passthroughResolver struct{}

func (passthroughResolver) Resolve(ctx context.Context, reference string) (string, error) {
	return reference, nil
}

// collectStream records broadcast notifications.
type collectStream struct {
	mu   sync.Mutex
	seen []notification.Notification
}

func (c *collectStream) Send(n *notification.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, *n)
	return nil
}

func (c *collectStream) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.seen))
	for i, n := range c.seen {
		out[i] = n.Type
	}
	return out
}

func (c *collectStream) states() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.seen))
	for i, n := range c.seen {
		out[i] = n.State
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Filters: map[string]config.FilterConfig{
			"duplicate_reference_filter": {Enabled: true},
			"queue_limit_filter":         {Enabled: true, Settings: map[string]any{"max_length": 3}},
		},
		Messages: config.MessagesConfig{
			QueueLimit:         "the queue is full",
			DuplicateReference: "already queued",
			DefaultError:       "rejected",
		},
	}
}

func newTestService(t *testing.T) (*Service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	svc, err := NewService(testConfig(), sink, passthroughResolver{})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, sink
}

func waitIdle(t *testing.T, svc *Service) {
	t.Helper()
	require.Eventually(t, func() bool { return !svc.Status().Running }, 2*time.Second, 5*time.Millisecond)
}

func TestEnqueuePlaysAndNotifies(t *testing.T) {
	svc, sink := newTestService(t)

	stream := &collectStream{}
	svc.Subscribe(stream)

	it, err := svc.Enqueue(context.Background(), "local.mp4")
	require.NoError(t, err)
	assert.NotEmpty(t, it.ID)

	waitIdle(t, svc)
	require.Eventually(t, func() bool { return len(stream.types()) >= 3 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"local.mp4"}, sink.sources())
	assert.Equal(t, []string{"item_started", "item_finished", "queue_empty"}, stream.types())

	// Sequence numbers are strictly increasing.
	stream.mu.Lock()
	defer stream.mu.Unlock()
	for i := 1; i < len(stream.seen); i++ {
		assert.Greater(t, stream.seen[i].SequenceNo, stream.seen[i-1].SequenceNo)
	}
}

// Notifications carry the state of the transition they describe, not
// whatever state the orchestrator happens to be in when the event is
// drained.
func TestNotificationStateSampledAtTransition(t *testing.T) {
	svc, _ := newTestService(t)

	stream := &collectStream{}
	svc.Subscribe(stream)

	_, err := svc.Enqueue(context.Background(), "local.mp4")
	require.NoError(t, err)

	waitIdle(t, svc)
	require.Eventually(t, func() bool { return len(stream.types()) >= 3 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"streaming", "streaming", "cooldown"}, stream.states())
}

func TestEnqueueRejectsDuplicate(t *testing.T) {
	svc, sink := newTestService(t)
	release := make(chan struct{})
	sink.block = release
	defer close(release)

	// Hold the first item in flight so the queue cannot drain underneath
	// the duplicate check.
	_, err := svc.Enqueue(context.Background(), "a.mp4")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sink.sources()) == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = svc.Enqueue(context.Background(), "b.mp4")
	require.NoError(t, err)

	_, err = svc.Enqueue(context.Background(), "b.mp4")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "duplicate_reference", rejected.Code)
	assert.Equal(t, "already queued", rejected.Message)
}

func TestEnqueueEmptyReference(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Enqueue(context.Background(), "   ")
	assert.Error(t, err)
}

func TestEnqueueBatchSkipsRejected(t *testing.T) {
	svc, sink := newTestService(t)

	items, err := svc.EnqueueBatch(context.Background(), []string{"a.mp4", "", "a.mp4", "b.mp4"})
	require.NoError(t, err)

	// The duplicate and the blank entry are dropped, the rest queue up.
	refs := make([]string, len(items))
	for i, it := range items {
		refs[i] = it.Reference
	}
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, refs)

	waitIdle(t, svc)
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, sink.sources())
}

func TestEnqueueBatchAllRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.EnqueueBatch(context.Background(), []string{"", "   "})
	assert.Error(t, err)
}

func TestRemoveNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Remove("000xx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusReflectsLoopFlag(t *testing.T) {
	svc, _ := newTestService(t)

	assert.False(t, svc.Status().Loop)
	svc.SetLoop(true)
	assert.True(t, svc.Status().Loop)
	assert.True(t, svc.Loop())
}

func TestStopIsIdempotentThroughService(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Stop()
	svc.Stop()

	st := svc.Status()
	assert.Equal(t, "idle", st.State)
	assert.Zero(t, st.QueueLen)
	assert.Zero(t, st.TemplateLen)
}
