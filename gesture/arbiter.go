package gesture

import (
	"image"

	"gioui.org/f32"
	"gioui.org/io/pointer"
)

// Decision is the outcome of feeding a move to an Arbiter.
type Decision uint8

const (
	// Undecided means the movement so far is ambiguous.
	Undecided Decision = iota
	// Capture means the edge drag claims the pointer.
	Capture
	// Yield means the content keeps the pointer until it is released.
	Yield
	// Ignore means the pointer isn't the one being tracked.
	Ignore
)

func (d Decision) String() string {
	switch d {
	case Undecided:
		return "undecided"
	case Capture:
		return "capture"
	case Yield:
		return "yield"
	case Ignore:
		return "ignore"
	default:
		return "unknown"
	}
}

// Arbiter decides whether a pointer that went down near an edge should be
// claimed by the edge drag, or left to the content underneath, which might
// want to scroll or be clicked.
//
// An Arbiter tracks at most one pointer at a time. All distances are in
// pixels.
type Arbiter struct {
	Edge Edge
	// Band is the width of the sensitive area along Edge.
	Band float32
	// MinDistance is the distance the pointer has to travel before a
	// decision is made.
	MinDistance float32
	// Slope is the ratio by which one axis has to dominate the other.
	Slope float32

	tracking bool
	yielded  bool
	pid      pointer.ID
	start    f32.Point
}

// ShouldInterceptDown reports whether a pointer going down at pos, inside a
// surface of the given size, may become an edge drag. If it does, the
// arbiter starts tracking id.
func (a *Arbiter) ShouldInterceptDown(id pointer.ID, pos f32.Point, size image.Point, enabled bool) bool {
	if !enabled || a.tracking {
		return false
	}
	if !a.Edge.InBand(pos, size, a.Band) {
		return false
	}
	a.tracking = true
	a.yielded = false
	a.pid = id
	a.start = pos
	return true
}

// ShouldInterceptMove reports whether the move of id to pos makes the edge
// drag claim the pointer.
func (a *Arbiter) ShouldInterceptMove(id pointer.ID, pos f32.Point) bool {
	return a.Decide(id, pos) == Capture
}

// Decide classifies the total movement of id since it went down. Once the
// arbiter yields, it keeps yielding until the pointer is released.
func (a *Arbiter) Decide(id pointer.ID, pos f32.Point) Decision {
	if !a.tracking || id != a.pid {
		return Ignore
	}
	if a.yielded {
		return Yield
	}

	slope := a.Slope
	if slope <= 0 {
		slope = 1
	}
	d := pos.Sub(a.start)
	along := a.Edge.Along(d)
	across := a.Edge.Across(d)
	absAlong := along
	if absAlong < 0 {
		absAlong = -absAlong
	}

	switch {
	case along > a.MinDistance && along > slope*across:
		return Capture
	case across > a.MinDistance && across > slope*absAlong:
		a.yielded = true
		return Yield
	case along < -a.MinDistance:
		// Dragging towards the edge can never dismiss.
		a.yielded = true
		return Yield
	default:
		return Undecided
	}
}

// Start returns the position at which the tracked pointer went down.
func (a *Arbiter) Start() (pointer.ID, f32.Point, bool) {
	return a.pid, a.start, a.tracking
}

func (a *Arbiter) Tracking(id pointer.ID) bool {
	return a.tracking && a.pid == id
}

func (a *Arbiter) Yielded() bool {
	return a.tracking && a.yielded
}

// Release stops tracking id, if it is being tracked.
func (a *Arbiter) Release(id pointer.ID) {
	if a.tracking && a.pid == id {
		a.Reset()
	}
}

func (a *Arbiter) Reset() {
	a.tracking = false
	a.yielded = false
	a.start = f32.Point{}
}
