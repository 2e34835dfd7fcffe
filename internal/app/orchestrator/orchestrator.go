package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"cueloop/internal/app/queue"
	"cueloop/internal/domain/item"
)

// ErrSessionAcquisition marks loop-fatal session acquisition failures.
var ErrSessionAcquisition = errors.New("session acquisition failed")

// Resolver turns a queued reference into a locally playable source.
// For remote references this includes downloading to local storage.
type Resolver interface {
	Resolve(ctx context.Context, reference string) (string, error)
}

// Sink acquires transmission sessions against the output destination.
type Sink interface {
	Acquire(ctx context.Context) (Session, error)
}

// Session is one held output channel. It transmits one source at a time
// and is released with Close when the consumption loop exits.
type Session interface {
	// Transmit blocks until the source has been fully transmitted, the
	// provider faulted, or ctx was cancelled.
	Transmit(ctx context.Context, source string) error
	Close() error
}

// Config holds orchestrator configuration.
type Config struct {
	Cooldown time.Duration // Fixed delay between items
	Loop     bool          // Initial loop mode
}

// Orchestrator drives single-flight sequential consumption of the queue
// into one lazily acquired transmission session. At most one consumption
// loop runs at a time; at most one playback handle is live at any instant.
type Orchestrator struct {
	store    *queue.Store
	sink     Sink
	resolver Resolver
	cooldown time.Duration

	mu        sync.Mutex
	running   bool
	stopped   bool // Stop requested for the current run
	loop      bool
	state     State
	current   *Handle
	currentIt *item.Item
	runCancel context.CancelFunc

	eventCh chan Event
}

// New creates an orchestrator over the given store and collaborators.
func New(store *queue.Store, sink Sink, resolver Resolver, cfg Config) *Orchestrator {
	return &Orchestrator{
		store:    store,
		sink:     sink,
		resolver: resolver,
		cooldown: cfg.Cooldown,
		loop:     cfg.Loop,
		state:    StateIdle,
		eventCh:  make(chan Event, 16),
	}
}

// Events returns the event channel. Exactly one event is emitted per
// observable transition.
func (o *Orchestrator) Events() <-chan Event {
	return o.eventCh
}

// StartIfIdle starts the consumption loop if it is not already running.
// Returns false (no-op) when a loop is active; the loop itself runs to
// completion on its own goroutine.
func (o *Orchestrator) StartIfIdle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return false
	}
	o.running = true
	o.stopped = false

	ctx, cancel := context.WithCancel(context.Background())
	o.runCancel = cancel

	go o.run(ctx)
	return true
}

// Stop requests termination: cancels the in-flight transmission, clears
// both queue sequences, and wakes any suspension point (fetch, cooldown).
// Idempotent; calling it while idle is a harmless no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	h := o.current
	cancel := o.runCancel
	if o.running {
		o.stopped = true
	}
	o.mu.Unlock()

	o.store.Clear()
	if h != nil {
		h.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

// SetLoop toggles loop mode. The flag is read only at the empty-queue
// check, so toggling mid-item has no effect on the item in progress.
func (o *Orchestrator) SetLoop(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loop = enabled
}

// Loop returns the loop flag.
func (o *Orchestrator) Loop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loop
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Running reports whether a consumption loop is active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Current returns a copy of the item being transmitted, if any.
func (o *Orchestrator) Current() (item.Item, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.currentIt == nil {
		return item.Item{}, false
	}
	return *o.currentIt, true
}

// run is the consumption loop. One invocation per StartIfIdle.
func (o *Orchestrator) run(ctx context.Context) {
	var sess Session

	defer func() {
		o.setState(StateDraining)
		if sess != nil {
			if err := sess.Close(); err != nil {
				zlog.Warn().Msgf("orchestrator: session release failed: %v", err)
			}
		}
		o.mu.Lock()
		o.running = false
		o.stopped = false
		o.state = StateIdle
		o.current = nil
		o.currentIt = nil
		o.runCancel = nil
		o.mu.Unlock()
	}()

	for {
		// Step 1: exhaustion check, refill when looping.
		if o.store.Len() == 0 {
			if o.stopRequested() {
				o.emit(Event{Type: EventStopped})
				return
			}
			if o.Loop() && o.store.TemplateLen() > 0 {
				zlog.Debug().Msgf("orchestrator: queue exhausted, refilling from template (%d items)", o.store.TemplateLen())
				o.store.RefillFromTemplate()
			} else {
				o.emit(Event{Type: EventQueueEmpty})
				return
			}
		}

		// Step 2: stop check before popping.
		if o.stopRequested() {
			o.emit(Event{Type: EventStopped})
			return
		}

		it, ok := o.store.DequeueFront()
		if !ok {
			// Raced with a concurrent removal; re-run the exhaustion check.
			continue
		}

		// Step 3: resolve/fetch remote references. Failure skips the item,
		// never the loop.
		if it.Source == "" {
			source, err := o.resolver.Resolve(ctx, it.Reference)
			if err != nil {
				if o.stopRequested() {
					o.emit(Event{Type: EventStopped})
					return
				}
				zlog.Warn().Msgf("orchestrator: resolve failed, skipping item: id=%s reference=%s error=%v", it.ID, it.Reference, err)
				o.emit(Event{Type: EventItemSkipped, Item: snapshot(it), Err: err})
				continue
			}
			o.store.SetSource(it, source)
		}

		// Step 4: a stop issued during the fetch must not start playback
		// of the already-fetched item.
		if o.stopRequested() {
			o.emit(Event{Type: EventStopped})
			return
		}

		// Step 5: lazy one-time session acquisition. Failure here is
		// loop-fatal, unlike per-item resolve failures.
		if sess == nil {
			o.setState(StateAcquiring)
			s, err := o.sink.Acquire(ctx)
			if err != nil {
				if o.stopRequested() {
					o.emit(Event{Type: EventStopped})
					return
				}
				err = errors.Mark(err, ErrSessionAcquisition)
				zlog.Error().Msgf("orchestrator: session acquisition failed, aborting loop: %v", err)
				o.emit(Event{Type: EventFailed, Err: err})
				return
			}
			sess = s
		}

		// Step 6: exactly one live handle per item.
		h := newHandle(ctx, sess, it.Playable())
		o.mu.Lock()
		o.current = h
		o.currentIt = it
		o.state = StateStreaming
		o.mu.Unlock()
		o.emit(Event{Type: EventItemStarted, Item: snapshot(it)})

		outcome := h.Wait()

		// Step 7: per-item side effects are released regardless of outcome.
		o.mu.Lock()
		o.current = nil
		o.currentIt = nil
		o.mu.Unlock()

		if outcome == OutcomeSkipped {
			zlog.Warn().Msgf("orchestrator: transmission fault, skipping item: id=%s error=%v", it.ID, h.Err())
		}
		o.emit(Event{Type: EventItemFinished, Item: snapshot(it), Outcome: outcome})

		// Step 8: fixed cooldown against session churn on provider hiccups.
		o.setState(StateCooldown)
		select {
		case <-time.After(o.cooldown):
		case <-ctx.Done():
		}
	}
}

func (o *Orchestrator) stopRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopped
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// emit stamps the event with the state at transition time and sends it
// without blocking the loop.
func (o *Orchestrator) emit(e Event) {
	e.State = o.State()
	select {
	case o.eventCh <- e:
	default:
		zlog.Warn().Msgf("orchestrator: event channel full, dropping %s", e.Type)
	}
}

// snapshot copies an item for an event payload, so consumers never share
// memory with the live queue entry.
func snapshot(it *item.Item) *item.Item {
	cp := *it
	return &cp
}
