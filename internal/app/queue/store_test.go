package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAndDequeue(t *testing.T) {
	s := NewStore()

	a := s.Enqueue("local.mp4")
	b := s.Enqueue("http://x/video")

	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.TemplateLen())

	first, ok := s.DequeueFront()
	require.True(t, ok)
	assert.Equal(t, a.ID, first.ID)
	assert.Equal(t, "local.mp4", first.Reference)

	// Dequeue removes from pending only; the template keeps the item.
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, s.TemplateLen())

	second, ok := s.DequeueFront()
	require.True(t, ok)
	assert.Equal(t, b.ID, second.ID)

	_, ok = s.DequeueFront()
	assert.False(t, ok)
}

func TestRemoveByID(t *testing.T) {
	s := NewStore()
	a := s.Enqueue("one.mp4")
	b := s.Enqueue("two.mp4")

	removed, err := s.RemoveByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "one.mp4", removed.Reference)

	// Removed from both pending and template.
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.TemplateLen())

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, b.ID, snap[0].ID)
}

func TestRemoveByIDNotFound(t *testing.T) {
	s := NewStore()
	s.Enqueue("one.mp4")

	_, err := s.RemoveByID("999zz")
	assert.ErrorIs(t, err, ErrNotFound)

	// Queue unchanged.
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.TemplateLen())
}

func TestRefillFromTemplate(t *testing.T) {
	s := NewStore()
	a := s.Enqueue("http://x/a")
	b := s.Enqueue("http://x/b")

	// Drain pending, recording the fetched source along the way.
	first, _ := s.DequeueFront()
	s.SetSource(first, "/cache/a.mp4")
	second, _ := s.DequeueFront()
	s.SetSource(second, "/cache/b.mp4")
	assert.Equal(t, 0, s.Len())

	s.RefillFromTemplate()

	// Same order, and the fetched local copies are replayed.
	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, a.ID, snap[0].ID)
	assert.Equal(t, "/cache/a.mp4", snap[0].Source)
	assert.Equal(t, b.ID, snap[1].ID)
	assert.Equal(t, "/cache/b.mp4", snap[1].Source)
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Enqueue("one.mp4")
	s.Enqueue("two.mp4")

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.TemplateLen())
	s.RefillFromTemplate()
	assert.Equal(t, 0, s.Len())
}

func TestEnqueueBatchPreservesOrder(t *testing.T) {
	s := NewStore()
	items := s.EnqueueBatch([]string{"a.mp4", "b.mp4", "c.mp4"})
	require.Len(t, items, 3)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	for i, ref := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		assert.Equal(t, ref, snap[i].Reference)
		assert.Equal(t, items[i].ID, snap[i].ID)
	}
}

// Pending must always be an ordered subset of the template.
func TestPendingSubsetOfTemplate(t *testing.T) {
	s := NewStore()
	for _, ref := range []string{"a", "b", "c", "d"} {
		s.Enqueue(ref)
	}
	s.DequeueFront()
	_, err := s.RemoveByID(s.Snapshot()[1].ID)
	require.NoError(t, err)

	templateIDs := make(map[string]int)
	for i := 0; i < s.TemplateLen(); i++ {
		templateIDs[s.templateAt(i)] = i
	}

	lastPos := -1
	for _, it := range s.Snapshot() {
		pos, ok := templateIDs[it.ID]
		require.True(t, ok, "pending id %s missing from template", it.ID)
		assert.Greater(t, pos, lastPos, "pending order diverges from template order")
		lastPos = pos
	}
}

// Source writes from the consumption side must synchronize with the
// copies handed out for listing and removal. Meaningful under -race.
func TestSetSourceConcurrentWithReads(t *testing.T) {
	s := NewStore()
	it := s.Enqueue("http://x/video")
	live, ok := s.DequeueFront()
	require.True(t, ok)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.SetSource(live, "/cache/video.mp4")
		}
	}()

	// Refill puts the live item back into pending so every Snapshot
	// copies its Source field while the writer is running.
	for i := 0; i < 1000; i++ {
		s.RefillFromTemplate()
		s.Snapshot()
	}
	<-done

	removed, err := s.RemoveByID(it.ID)
	require.NoError(t, err)
	assert.Equal(t, "/cache/video.mp4", removed.Source)
}

// templateAt is a test helper to inspect template order.
func (s *Store) templateAt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template[i].ID
}
