package orchestrator

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Handle wraps exactly one in-flight transmission. It is created per queue
// item and destroyed when the transmission settles; it never outlives one
// item. A provider-level streaming error settles the handle with
// OutcomeSkipped rather than propagating, so one bad item never kills an
// otherwise healthy session.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	// Written once by the transmit goroutine before done is closed.
	outcome Outcome
	err     error
}

// newHandle starts transmitting source on sess and returns the handle.
func newHandle(parent context.Context, sess Session, source string) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer cancel()

		err := sess.Transmit(ctx, source)
		switch {
		case err == nil:
			h.outcome = OutcomeDone
		case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
			h.outcome = OutcomeCancelled
		default:
			h.outcome = OutcomeSkipped
			h.err = err
		}
	}()

	return h
}

// Cancel requests cancellation of the transmission. Idempotent, and a
// harmless no-op after natural completion.
func (h *Handle) Cancel() {
	h.cancel()
}

// Wait blocks until the transmission settles and returns its outcome.
func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}

// Err returns the provider fault behind OutcomeSkipped, if any.
func (h *Handle) Err() error {
	<-h.done
	return h.err
}
