package gesture

import (
	"time"

	"gioui.org/f32"
	"gioui.org/io/pointer"
)

// DefaultVelocityWindow is how far back Tracker looks when computing velocity.
const DefaultVelocityWindow = 100 * time.Millisecond

// ringSize must be a power of two.
const ringSize = 16

// Sample is a single observation of a pointer.
type Sample struct {
	ID       pointer.ID
	Position f32.Point
	// Time uses the same clock as pointer.Event.Time.
	Time time.Duration
}

type ring struct {
	samples [ringSize]Sample
	// n is the total number of samples ever added; the newest sample is at (n-1)%ringSize.
	n int
}

func (r *ring) add(s Sample) {
	r.samples[r.n&(ringSize-1)] = s
	r.n++
}

func (r *ring) len() int {
	return min(r.n, ringSize)
}

// at returns the i-th newest sample, with 0 being the newest.
func (r *ring) at(i int) Sample {
	return r.samples[(r.n-1-i)&(ringSize-1)]
}

// Tracker samples pointer positions and computes their velocity.
//
// The zero value is ready to use and uses DefaultVelocityWindow.
type Tracker struct {
	// Window limits velocity computations to samples no older than Window,
	// relative to the newest sample.
	Window time.Duration

	pointers map[pointer.ID]*ring
}

func (t *Tracker) ring(id pointer.ID) *ring {
	if t.pointers == nil {
		t.pointers = make(map[pointer.ID]*ring)
	}
	r, ok := t.pointers[id]
	if !ok {
		r = new(ring)
		t.pointers[id] = r
	}
	return r
}

// Down starts a new sample history for id, discarding any previous one.
func (t *Tracker) Down(id pointer.ID, pos f32.Point, at time.Duration) {
	r := t.ring(id)
	*r = ring{}
	r.add(Sample{ID: id, Position: pos, Time: at})
}

func (t *Tracker) Move(id pointer.ID, pos f32.Point, at time.Duration) {
	r := t.ring(id)
	if r.n > 0 && at < r.at(0).Time {
		// Out of order event; the history is no longer meaningful.
		*r = ring{}
	}
	r.add(Sample{ID: id, Position: pos, Time: at})
}

// Up records the final position of id. The history is kept so that the
// release velocity can be queried; call Forget once it is no longer needed.
func (t *Tracker) Up(id pointer.ID, pos f32.Point, at time.Duration) {
	t.Move(id, pos, at)
}

// Cancel drops the history of id. A cancelled pointer has no velocity.
func (t *Tracker) Cancel(id pointer.ID) {
	t.Forget(id)
}

func (t *Tracker) Forget(id pointer.ID) {
	delete(t.pointers, id)
}

// Last returns the newest sample of id.
func (t *Tracker) Last(id pointer.ID) (Sample, bool) {
	r, ok := t.pointers[id]
	if !ok || r.n == 0 {
		return Sample{}, false
	}
	return r.at(0), true
}

// Velocity returns the velocity of id in units per millisecond. It returns
// the zero vector if fewer than two samples fall within the window.
func (t *Tracker) Velocity(id pointer.ID) f32.Point {
	r, ok := t.pointers[id]
	if !ok || r.len() < 2 {
		return f32.Point{}
	}
	window := t.Window
	if window <= 0 {
		window = DefaultVelocityWindow
	}

	newest := r.at(0)
	oldest := newest
	for i := 1; i < r.len(); i++ {
		s := r.at(i)
		if newest.Time-s.Time > window {
			break
		}
		oldest = s
	}

	dt := newest.Time - oldest.Time
	if dt <= 0 {
		return f32.Point{}
	}
	ms := float32(dt) / float32(time.Millisecond)
	return newest.Position.Sub(oldest.Position).Div(ms)
}

// AxisVelocity returns the signed velocity of id in edge's dismiss direction.
func (t *Tracker) AxisVelocity(id pointer.ID, edge Edge) float32 {
	return edge.Along(t.Velocity(id))
}
