// Package orchestrator provides sequential queue consumption into a single
// live transmission session.
package orchestrator

// State represents the orchestrator state.
type State int

const (
	StateIdle      State = iota // No consumption loop running
	StateAcquiring              // Acquiring the transmission session
	StateStreaming              // An item is being transmitted
	StateCooldown               // Fixed delay between items
	StateDraining               // Releasing the session before returning to idle
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateStreaming:
		return "streaming"
	case StateCooldown:
		return "cooldown"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Outcome represents the terminal status of one playback handle.
type Outcome int

const (
	OutcomeDone      Outcome = iota // Transmission completed normally
	OutcomeSkipped                  // Provider fault; item abandoned, session kept
	OutcomeCancelled                // Cancelled by stop or shutdown
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
