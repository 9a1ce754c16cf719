package slide

import "fmt"

// State is the capture state of a drag session.
type State uint8

const (
	// Idle means no session exists.
	Idle State = iota
	// Pending means a pointer went down in the edge band, but hasn't been
	// claimed yet; the content may still scroll.
	Pending
	// Captured means the edge drag owns the pointer and the surface follows it.
	Captured
	// Dismissing means the surface is settling towards the fully dismissed
	// position.
	Dismissing
	// Restoring means the surface is settling back to rest.
	Restoring
	stateLast
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Captured:
		return "captured"
	case Dismissing:
		return "dismissing"
	case Restoring:
		return "restoring"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Settling reports whether s is one of the settle states.
func (s State) Settling() bool {
	return s == Dismissing || s == Restoring
}

// Every state may return to Idle through a reset.
var legalStateTransitions = [stateLast][stateLast]bool{
	Idle: {
		Pending: true,
	},
	Pending: {
		Idle:     true,
		Captured: true,
	},
	Captured: {
		Idle:       true,
		Dismissing: true,
		Restoring:  true,
	},
	Dismissing: {
		Idle: true,
	},
	Restoring: {
		Idle: true,
	},
}
