package orchestrator

import "cueloop/internal/domain/item"

// EventType represents an orchestrator event type.
type EventType int

const (
	EventItemStarted  EventType = iota // Transmission of an item began
	EventItemFinished                  // Transmission settled (see Outcome)
	EventItemSkipped                   // Item abandoned before playback (fetch/resolve failure)
	EventQueueEmpty                    // Queue exhausted, loop disabled, returning to idle
	EventStopped                       // Loop exited because stop was requested
	EventFailed                        // Loop aborted (session acquisition failure)
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventItemStarted:
		return "item_started"
	case EventItemFinished:
		return "item_finished"
	case EventItemSkipped:
		return "item_skipped"
	case EventQueueEmpty:
		return "queue_empty"
	case EventStopped:
		return "stopped"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event represents an orchestrator event. Exactly one event is emitted per
// observable transition so the notification side never floods. Item is a
// private copy and State is sampled at transition time, so consumers see
// the same values no matter when they drain the channel.
type Event struct {
	Type    EventType
	Item    *item.Item // Copy of the item concerned (nil for queue-level events)
	Outcome Outcome    // Set for EventItemFinished
	Err     error      // Underlying fault for EventItemSkipped / EventFailed
	State   State      // Orchestrator state when the event was emitted
}
