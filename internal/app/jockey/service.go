// Package jockey wires the queue, admission filters, orchestrator and
// notification fan-out into the operator-facing playback service.
package jockey

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"cueloop/internal/app/filter"
	"cueloop/internal/app/notification"
	"cueloop/internal/app/orchestrator"
	"cueloop/internal/app/queue"
	"cueloop/internal/domain/item"
	"cueloop/internal/infra/config"
)

// ErrNotFound is returned when a queue id does not exist.
var ErrNotFound = queue.ErrNotFound

// RejectedError is returned when an admission filter rejects a reference.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("request rejected (%s): %s", e.Code, e.Message)
}

// Status is a point-in-time view of the service.
type Status struct {
	State       string     `json:"state"`
	Running     bool       `json:"running"`
	Loop        bool       `json:"loop"`
	QueueLen    int        `json:"queue_len"`
	TemplateLen int        `json:"template_len"`
	Current     *item.Item `json:"current,omitempty"`
}

// Service is the playback service facade.
type Service struct {
	config       *config.Config
	store        *queue.Store
	orch         *orchestrator.Orchestrator
	filterChain  *filter.Chain
	notification *notification.Manager

	done chan struct{}
}

// NewService creates the service over the given sink and resolver.
func NewService(cfg *config.Config, sink orchestrator.Sink, resolver orchestrator.Resolver) (*Service, error) {
	store := queue.NewStore()

	s := &Service{
		config: cfg,
		store:  store,
		orch: orchestrator.New(store, sink, resolver, orchestrator.Config{
			Cooldown: cfg.Playback.Cooldown(),
			Loop:     cfg.Playback.Loop,
		}),
		filterChain:  filter.NewChain(),
		notification: notification.NewManager(),
		done:         make(chan struct{}),
	}

	if err := s.setupFilters(); err != nil {
		return nil, err
	}

	go s.consumeEvents()
	return s, nil
}

// setupFilters builds the admission chain from config, in a stable order.
func (s *Service) setupFilters() error {
	registered := filter.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !s.config.IsFilterEnabled(name) {
			continue
		}
		f := registered[name]()
		if err := f.ValidateConfig(s.config.Filters[name].Settings); err != nil {
			return errors.Wrapf(err, "invalid config for filter %s", name)
		}
		s.filterChain.Add(f)
		zlog.Info().Msgf("jockey: enabled filter: name=%s", name)
	}
	return nil
}

// Enqueue adds a reference to the queue and starts consumption if the
// orchestrator is idle. Returns RejectedError when a filter declines.
func (s *Service) Enqueue(ctx context.Context, reference string) (item.Item, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return item.Item{}, errors.New("empty reference")
	}

	result := s.filterChain.Execute(ctx, filter.Request{
		Reference: reference,
		Pending:   s.store.Snapshot(),
	})
	if !result.Accepted {
		zlog.Info().Msgf("jockey: enqueue rejected: reference=%s code=%s", reference, result.Code)
		return item.Item{}, &RejectedError{Code: result.Code, Message: s.config.GetMessage(result.Code)}
	}

	it := s.store.Enqueue(reference)
	zlog.Info().Msgf("jockey: enqueued: id=%s reference=%s queue_len=%d", it.ID, it.Reference, s.store.Len())

	s.orch.StartIfIdle()
	return it, nil
}

// EnqueueBatch adds multiple references, skipping ones the filters
// reject, and starts consumption if at least one was accepted.
func (s *Service) EnqueueBatch(ctx context.Context, references []string) ([]item.Item, error) {
	accepted := make([]item.Item, 0, len(references))

	for _, ref := range references {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		result := s.filterChain.Execute(ctx, filter.Request{
			Reference: ref,
			Pending:   s.store.Snapshot(),
		})
		if !result.Accepted {
			zlog.Info().Msgf("jockey: batch entry rejected: reference=%s code=%s", ref, result.Code)
			continue
		}
		accepted = append(accepted, s.store.Enqueue(ref))
	}

	if len(accepted) == 0 {
		return nil, errors.New("no references accepted")
	}

	zlog.Info().Msgf("jockey: batch enqueued: accepted=%d of %d queue_len=%d", len(accepted), len(references), s.store.Len())
	s.orch.StartIfIdle()
	return accepted, nil
}

// Remove removes an item by id from both the queue and the loop template.
func (s *Service) Remove(id string) (item.Item, error) {
	it, err := s.store.RemoveByID(id)
	if err != nil {
		return item.Item{}, err
	}
	zlog.Info().Msgf("jockey: removed: id=%s reference=%s", it.ID, it.Reference)
	return it, nil
}

// List returns the pending queue in order.
func (s *Service) List() []item.Item {
	return s.store.Snapshot()
}

// SetLoop toggles loop mode.
func (s *Service) SetLoop(enabled bool) {
	s.orch.SetLoop(enabled)
	zlog.Info().Msgf("jockey: loop mode: enabled=%v", enabled)
}

// Loop returns the loop flag.
func (s *Service) Loop() bool {
	return s.orch.Loop()
}

// Stop stops playback and clears the queue. Idempotent.
func (s *Service) Stop() {
	s.orch.Stop()
	zlog.Info().Msg("jockey: stop requested")
}

// StartIfIdle starts consumption if not already running.
func (s *Service) StartIfIdle() bool {
	return s.orch.StartIfIdle()
}

// Status returns a point-in-time view of the service.
func (s *Service) Status() Status {
	st := Status{
		State:       s.orch.State().String(),
		Running:     s.orch.Running(),
		Loop:        s.orch.Loop(),
		QueueLen:    s.store.Len(),
		TemplateLen: s.store.TemplateLen(),
	}
	if cur, ok := s.orch.Current(); ok {
		st.Current = &cur
	}
	return st
}

// Subscribe registers a notification stream.
func (s *Service) Subscribe(stream notification.Stream) string {
	return s.notification.Subscribe(stream)
}

// Unsubscribe removes a notification stream.
func (s *Service) Unsubscribe(id string) {
	s.notification.Unsubscribe(id)
}

// Close stops playback and shuts down event fan-out.
func (s *Service) Close() {
	s.orch.Stop()
	close(s.done)
}

// consumeEvents turns orchestrator events into log lines and broadcast
// notifications, one per transition.
func (s *Service) consumeEvents() {
	for {
		select {
		case ev := <-s.orch.Events():
			s.handleEvent(ev)
		case <-s.done:
			return
		}
	}
}

func (s *Service) handleEvent(ev orchestrator.Event) {
	n := &notification.Notification{
		Type:  ev.Type.String(),
		State: ev.State.String(),
	}
	if ev.Item != nil {
		n.ItemID = ev.Item.ID
		n.Reference = ev.Item.Reference
		n.Source = ev.Item.Source
	}
	if ev.Err != nil {
		n.Detail = ev.Err.Error()
	}

	switch ev.Type {
	case orchestrator.EventItemStarted:
		zlog.Info().Msgf("jockey: item started: id=%s reference=%s", ev.Item.ID, ev.Item.Reference)
	case orchestrator.EventItemFinished:
		n.Outcome = ev.Outcome.String()
		zlog.Info().Msgf("jockey: item finished: id=%s outcome=%s", ev.Item.ID, ev.Outcome)
	case orchestrator.EventItemSkipped:
		zlog.Warn().Msgf("jockey: item skipped: id=%s reference=%s error=%v", ev.Item.ID, ev.Item.Reference, ev.Err)
	case orchestrator.EventQueueEmpty:
		zlog.Info().Msg("jockey: queue exhausted, returning to idle")
	case orchestrator.EventStopped:
		zlog.Info().Msg("jockey: playback stopped")
	case orchestrator.EventFailed:
		zlog.Error().Msgf("jockey: playback aborted: error=%v", ev.Err)
	}

	s.notification.Broadcast(n)
}
