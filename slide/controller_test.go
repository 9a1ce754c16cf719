package slide

import (
	"errors"
	"image"
	"math/rand"
	"slices"
	"testing"
	"time"

	"gioui.org/f32"
	"honnef.co/go/slideback/gesture"
)

const frame = 16 * time.Millisecond

type recorder struct {
	t       *testing.T
	events  []string
	offsets []float32
}

func (r *recorder) DragStarted()     { r.events = append(r.events, "started") }
func (r *recorder) RangeExceeded()   { r.events = append(r.events, "exceeded") }
func (r *recorder) RangeRecovered()  { r.events = append(r.events, "recovered") }
func (r *recorder) DismissComplete() { r.events = append(r.events, "dismissed") }
func (r *recorder) Cancelled()       { r.events = append(r.events, "cancelled") }

func (r *recorder) OffsetChanged(v float32) {
	if v < 0 || v > 1 {
		r.t.Errorf("observed offset %v outside of [0, 1]", v)
	}
	r.offsets = append(r.offsets, v)
}

func (r *recorder) count(ev string) int {
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

// driver feeds events to a controller and records the states it passes
// through.
type driver struct {
	t      *testing.T
	c      *Controller
	rec    *recorder
	now    time.Duration
	states []State
}

func newDriver(t *testing.T) *driver {
	t.Helper()
	c, err := NewController(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	c.SetSize(image.Pt(400, 800))
	rec := &recorder{t: t}
	c.AddListener(rec)
	return &driver{t: t, c: c, rec: rec, states: []State{c.State()}}
}

func (d *driver) observe() {
	if s := d.c.State(); s != d.states[len(d.states)-1] {
		d.states = append(d.states, s)
	}
	if o := d.c.Offset(); o < 0 || o > 1 {
		d.t.Errorf("offset %v outside of [0, 1]", o)
	}
}

func (d *driver) down(x, y float32, at time.Duration) bool {
	d.now = at
	ok := d.c.PointerDown(1, f32.Pt(x, y), at)
	d.observe()
	return ok
}

func (d *driver) move(x, y float32, at time.Duration) bool {
	d.now = at
	ok := d.c.PointerMove(1, f32.Pt(x, y), at)
	d.observe()
	return ok
}

func (d *driver) up(x, y float32, at time.Duration) {
	d.now = at
	d.c.PointerUp(1, f32.Pt(x, y), at)
	d.observe()
}

// settle ticks until the controller is idle.
func (d *driver) settle() {
	for i := 0; d.c.State() != Idle; i++ {
		if i > 1000 {
			d.t.Fatalf("controller didn't settle, stuck in %s", d.c.State())
		}
		d.c.Tick(frame)
		d.observe()
	}
}

func approx(a, b float32) bool {
	d := a - b
	return d < 1e-4 && d > -1e-4
}

func TestDismissPastThreshold(t *testing.T) {
	d := newDriver(t)
	if !d.down(5, 100, 0) {
		t.Fatal("pointer down in edge band wasn't intercepted")
	}
	if !d.move(210, 100, 500*time.Millisecond) {
		t.Fatal("horizontal move didn't capture")
	}
	if got := d.c.Offset(); !approx(got, 0.5125) {
		t.Errorf("offset=%v, want 0.5125", got)
	}
	d.up(210, 100, 600*time.Millisecond)
	d.settle()

	want := []State{Idle, Pending, Captured, Dismissing, Idle}
	if !slices.Equal(d.states, want) {
		t.Errorf("states=%v, want %v", d.states, want)
	}
	if got := d.rec.count("dismissed"); got != 1 {
		t.Errorf("got %d dismissals, want 1", got)
	}
	if got := d.rec.count("recovered"); got != 0 {
		t.Errorf("got %d recoveries, want 0", got)
	}
	wantEvents := []string{"started", "exceeded", "dismissed"}
	if !slices.Equal(d.rec.events, wantEvents) {
		t.Errorf("events=%v, want %v", d.rec.events, wantEvents)
	}
	if got := d.c.Offset(); got != 1 {
		t.Errorf("dismissed surface at offset %v, want 1", got)
	}

	// More ticks must not dismiss again.
	for i := 0; i < 20; i++ {
		d.c.Tick(frame)
	}
	if got := d.rec.count("dismissed"); got != 1 {
		t.Errorf("got %d dismissals after extra ticks, want 1", got)
	}
}

func TestRestoreBelowThreshold(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(150, 100, 500*time.Millisecond)
	if got := d.c.Offset(); !approx(got, 0.3625) {
		t.Errorf("offset=%v, want 0.3625", got)
	}
	d.up(150, 100, 600*time.Millisecond)
	if d.c.State() != Restoring {
		t.Fatalf("state=%s after slow release below threshold, want restoring", d.c.State())
	}
	d.settle()

	want := []State{Idle, Pending, Captured, Restoring, Idle}
	if !slices.Equal(d.states, want) {
		t.Errorf("states=%v, want %v", d.states, want)
	}
	if got := d.rec.count("recovered"); got != 1 {
		t.Errorf("got %d recoveries, want 1", got)
	}
	if got := d.rec.count("dismissed"); got != 0 {
		t.Errorf("got %d dismissals, want 0", got)
	}
	if got := d.c.Offset(); got != 0 {
		t.Errorf("offset=%v after restore, want exactly 0", got)
	}
}

func TestPerpendicularYields(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	if d.move(5, 160, 10*time.Millisecond) {
		t.Fatal("vertical move captured")
	}
	if d.c.State() != Idle {
		t.Fatalf("state=%s after yielding, want idle", d.c.State())
	}
	if d.move(300, 160, 20*time.Millisecond) {
		t.Fatal("captured after yielding")
	}
	d.up(300, 160, 30*time.Millisecond)
	d.settle()

	want := []State{Idle, Pending, Idle}
	if !slices.Equal(d.states, want) {
		t.Errorf("states=%v, want %v", d.states, want)
	}
	if len(d.rec.events) != 0 {
		t.Errorf("got notifications %v, want none", d.rec.events)
	}

	// After the release, the edge is available again.
	if !d.down(5, 100, 40*time.Millisecond) {
		t.Error("pointer down after yielded gesture wasn't intercepted")
	}
}

func TestFlickDismisses(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(60, 100, 10*time.Millisecond)
	d.move(100, 100, 20*time.Millisecond)
	d.up(100, 100, 20*time.Millisecond)
	if d.c.State() != Dismissing {
		t.Fatalf("state=%s after flick, want dismissing", d.c.State())
	}
	d.settle()
	if got := d.rec.count("dismissed"); got != 1 {
		t.Errorf("got %d dismissals, want 1", got)
	}
}

func TestFlickTowardsEdgeRestores(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(200, 100, 500*time.Millisecond)
	d.move(150, 100, 510*time.Millisecond)
	d.move(60, 100, 520*time.Millisecond)
	d.up(60, 100, 520*time.Millisecond)
	if d.c.State() != Restoring {
		t.Fatalf("state=%s, want restoring", d.c.State())
	}
	d.settle()
	if got := d.rec.count("recovered"); got != 1 {
		t.Errorf("got %d recoveries, want 1", got)
	}
}

func TestReleaseBoundaries(t *testing.T) {
	// Distances are measured from the pointer down at (5, 100) on a surface
	// 400 wide. Flicks move 150 within the last 100ms of the drag.
	tests := []struct {
		name string
		// moves and the release all happen at the given times.
		moves []f32.Point
		times []time.Duration
		want  State
	}{
		{
			"offset exactly threshold",
			[]f32.Point{{X: 205, Y: 100}, {X: 205, Y: 100}},
			[]time.Duration{500 * time.Millisecond, 700 * time.Millisecond},
			Dismissing,
		},
		{
			"offset below threshold",
			[]f32.Point{{X: 204.5, Y: 100}, {X: 204.5, Y: 100}},
			[]time.Duration{500 * time.Millisecond, 700 * time.Millisecond},
			Restoring,
		},
		{
			"velocity exactly flick velocity",
			[]f32.Point{{X: 20, Y: 100}, {X: 170, Y: 100}, {X: 170, Y: 100}},
			[]time.Duration{300 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond},
			Restoring,
		},
		{
			"velocity above flick velocity",
			[]f32.Point{{X: 20, Y: 100}, {X: 171, Y: 100}, {X: 171, Y: 100}},
			[]time.Duration{300 * time.Millisecond, 400 * time.Millisecond, 400 * time.Millisecond},
			Dismissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDriver(t)
			d.down(5, 100, 0)
			last := len(tt.moves) - 1
			for i, m := range tt.moves[:last] {
				d.move(m.X, m.Y, tt.times[i])
			}
			if d.c.State() != Captured {
				t.Fatalf("state=%s before release, want captured", d.c.State())
			}
			if d.c.Offset() >= d.c.Config().Threshold && tt.want == Restoring {
				t.Fatalf("offset %v already past the threshold", d.c.Offset())
			}
			d.up(tt.moves[last].X, tt.moves[last].Y, tt.times[last])
			if d.c.State() != tt.want {
				t.Errorf("state=%s after release at offset %v, want %s", d.c.State(), d.c.Offset(), tt.want)
			}
		})
	}
}

func TestCancelWhileCaptured(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(300, 100, 500*time.Millisecond)
	d.c.PointerCancel(1)
	if d.c.State() != Dismissing {
		t.Fatalf("state=%s after cancel past threshold, want dismissing", d.c.State())
	}
	d.settle()
	if got := d.rec.count("dismissed"); got != 1 {
		t.Errorf("got %d dismissals, want 1", got)
	}
}

func TestCancelWhilePending(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.c.PointerCancel(1)
	if d.c.State() != Idle {
		t.Fatalf("state=%s, want idle", d.c.State())
	}
	if len(d.rec.events) != 0 {
		t.Errorf("got notifications %v, want none", d.rec.events)
	}
}

func TestCancelYieldedPointer(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(5, 200, 10*time.Millisecond)
	if id, ok := d.c.TrackedPointer(); !ok || id != 1 {
		t.Fatalf("TrackedPointer()=%d, %t after yielding, want 1, true", id, ok)
	}
	// The content grabbed the pointer, so its release never arrives.
	d.c.PointerCancel(1)
	if _, ok := d.c.TrackedPointer(); ok {
		t.Error("cancelled pointer is still tracked")
	}

	if !d.down(5, 100, 100*time.Millisecond) {
		t.Fatal("pointer down after cancelling the yielded pointer wasn't intercepted")
	}
	if !d.move(200, 100, 600*time.Millisecond) {
		t.Error("edge drag didn't capture after cancelling the yielded pointer")
	}
}

func TestDisableWhileCaptured(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(300, 100, 500*time.Millisecond)
	d.c.SetEnabled(false)
	if d.c.State() != Idle {
		t.Fatalf("state=%s after disabling, want idle", d.c.State())
	}
	if got := d.c.Offset(); got != 0 {
		t.Errorf("offset=%v after disabling, want 0", got)
	}
	d.up(300, 100, 600*time.Millisecond)
	d.settle()
	wantEvents := []string{"started", "cancelled"}
	if !slices.Equal(d.rec.events, wantEvents) {
		t.Errorf("events=%v, want %v", d.rec.events, wantEvents)
	}
	if d.down(5, 100, 700*time.Millisecond) {
		t.Error("disabled controller intercepted a pointer")
	}
	d.c.SetEnabled(true)
	if !d.down(5, 100, 800*time.Millisecond) {
		t.Error("re-enabled controller didn't intercept")
	}
}

func TestDisableWhileSettling(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(300, 100, 500*time.Millisecond)
	d.up(300, 100, 600*time.Millisecond)
	d.c.Tick(frame)
	if d.c.State() != Dismissing {
		t.Fatalf("state=%s, want dismissing", d.c.State())
	}
	d.c.SetEnabled(false)
	if got := d.c.Offset(); got != 0 {
		t.Errorf("offset=%v, want 0", got)
	}
	d.settle()
	if got := d.rec.count("dismissed"); got != 0 {
		t.Errorf("got %d dismissals after reset, want 0", got)
	}
	if got := d.rec.count("cancelled"); got != 1 {
		t.Errorf("got %d cancellations, want 1", got)
	}
}

func TestDisableFromConfig(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(300, 100, 500*time.Millisecond)
	// Another goroutine might flip the flag; the controller notices on the next tick.
	d.c.Config().SetEnabled(false)
	d.c.Tick(frame)
	if d.c.State() != Idle {
		t.Fatalf("state=%s one tick after disabling, want idle", d.c.State())
	}
	if got := d.c.Offset(); got != 0 {
		t.Errorf("offset=%v, want 0", got)
	}
}

func TestResetFromDismissComplete(t *testing.T) {
	tests := []struct {
		name  string
		reset func(c *Controller)
	}{
		{"disable", func(c *Controller) { c.SetEnabled(false) }},
		{"reset", func(c *Controller) { c.Reset() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDriver(t)
			d.c.AddListener(Funcs{OnDismissComplete: func() {
				if d.c.State() != Idle {
					t.Errorf("state=%s during DismissComplete, want idle", d.c.State())
				}
				tt.reset(d.c)
			}})
			d.down(5, 100, 0)
			d.move(300, 100, 500*time.Millisecond)
			d.up(300, 100, 600*time.Millisecond)
			d.settle()

			want := []string{"started", "exceeded", "dismissed"}
			if !slices.Equal(d.rec.events, want) {
				t.Errorf("events=%v, want %v", d.rec.events, want)
			}
			if got := d.c.Offset(); got != 1 {
				t.Errorf("offset=%v, want 1", got)
			}
		})
	}
}

func TestStaleFrameCallback(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(300, 100, 500*time.Millisecond)
	d.up(300, 100, 600*time.Millisecond)
	stale := d.c.FrameCallback()
	d.c.Reset()

	d.down(5, 100, time.Second)
	d.move(100, 100, 1500*time.Millisecond)
	d.up(100, 100, 1600*time.Millisecond)
	if d.c.State() != Restoring {
		t.Fatalf("state=%s, want restoring", d.c.State())
	}
	before := d.c.Offset()
	if stale(time.Second) {
		t.Error("stale frame callback reported a tick")
	}
	if d.c.State() != Restoring || d.c.Offset() != before {
		t.Errorf("stale frame callback advanced the current session")
	}

	fresh := d.c.FrameCallback()
	if !fresh(time.Second) {
		t.Error("current frame callback didn't tick")
	}
	if d.c.State() != Idle {
		t.Errorf("state=%s after current frame callback, want idle", d.c.State())
	}
	if got := d.rec.count("dismissed"); got != 0 {
		t.Errorf("got %d dismissals, want 0", got)
	}
}

func TestPointerDownWhileSettling(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	d.move(300, 100, 500*time.Millisecond)
	d.up(300, 100, 600*time.Millisecond)
	if d.down(5, 100, 610*time.Millisecond) {
		t.Error("pointer down intercepted while settling")
	}
	if d.c.State() != Dismissing {
		t.Errorf("state=%s, want dismissing", d.c.State())
	}
	d.settle()
	if got := d.rec.count("dismissed"); got != 1 {
		t.Errorf("got %d dismissals, want 1", got)
	}
}

func TestSecondPointerIgnored(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	if d.c.PointerDown(2, f32.Pt(5, 300), 0) {
		t.Error("second pointer started a session")
	}
	if d.c.PointerMove(2, f32.Pt(300, 300), 10*time.Millisecond) {
		t.Error("second pointer captured")
	}
	d.c.PointerUp(2, f32.Pt(300, 300), 20*time.Millisecond)
	if d.c.State() != Pending {
		t.Fatalf("state=%s, want pending", d.c.State())
	}
	if id, _ := d.c.ActivePointer(); id != 1 {
		t.Errorf("active pointer %d, want 1", id)
	}
	if !d.move(210, 100, 500*time.Millisecond) {
		t.Error("first pointer didn't capture")
	}
}

func TestDuplicatePointerDown(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	s1, _ := d.c.Session()
	if !d.down(10, 200, 10*time.Millisecond) {
		t.Fatal("duplicate down for a pending pointer didn't start over")
	}
	s2, _ := d.c.Session()
	if s2.Generation == s1.Generation || s2.Start != f32.Pt(10, 200) {
		t.Errorf("session wasn't replaced: %+v", s2)
	}

	d.move(300, 200, 500*time.Millisecond)
	if d.down(5, 100, 600*time.Millisecond) {
		t.Error("duplicate down for a captured pointer started a session")
	}
	if d.c.State() != Dismissing {
		t.Errorf("state=%s, want dismissing", d.c.State())
	}
	d.settle()
	if got := d.rec.count("dismissed"); got != 1 {
		t.Errorf("got %d dismissals, want 1", got)
	}
}

func TestSetTrackingEdge(t *testing.T) {
	d := newDriver(t)
	d.down(5, 100, 0)
	err := d.c.SetTrackingEdge(gesture.EdgeRight)
	if !errors.Is(err, ErrGestureActive) || !IsConfigError(err) {
		t.Fatalf("got error %v, want ErrGestureActive", err)
	}
	d.up(5, 100, 10*time.Millisecond)

	if err := d.c.SetTrackingEdge(gesture.EdgeRight); err != nil {
		t.Fatal(err)
	}
	if d.down(5, 100, 20*time.Millisecond) {
		t.Error("left edge intercepted after switching to the right edge")
	}
	if !d.down(395, 100, 30*time.Millisecond) {
		t.Fatal("right edge wasn't intercepted")
	}
	d.move(100, 100, 500*time.Millisecond)
	if got := d.c.Offset(); !approx(got, 0.7375) {
		t.Errorf("offset=%v, want 0.7375", got)
	}
	if got := d.c.Displacement(); !approx(got.X, -295) || got.Y != 0 {
		t.Errorf("displacement=%v, want (-295, 0)", got)
	}
	d.up(100, 100, 600*time.Millisecond)
	d.settle()
	if got := d.rec.count("dismissed"); got != 1 {
		t.Errorf("got %d dismissals, want 1", got)
	}

	if err := d.c.SetTrackingEdge(gesture.Edge(42)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got error %v, want ErrInvalidConfig", err)
	}
}

func TestScale(t *testing.T) {
	d := newDriver(t)
	d.c.SetScale(2)
	if !d.down(30, 100, 0) {
		t.Fatal("pointer within the scaled edge band wasn't intercepted")
	}
	if d.move(45, 100, 10*time.Millisecond) {
		t.Error("captured below the scaled minimum distance")
	}
	if !d.move(60, 100, 20*time.Millisecond) {
		t.Error("didn't capture past the scaled minimum distance")
	}
}

func TestRemoveListener(t *testing.T) {
	d := newDriver(t)
	var n int
	h := d.c.AddListener(Funcs{OnDismissComplete: func() { n++ }})
	h.Remove()
	h.Remove()
	d.down(5, 100, 0)
	d.move(300, 100, 500*time.Millisecond)
	d.up(300, 100, 600*time.Millisecond)
	d.settle()
	if n != 0 {
		t.Errorf("removed listener was notified %d times", n)
	}
	if got := d.rec.count("dismissed"); got != 1 {
		t.Errorf("remaining listener got %d dismissals, want 1", got)
	}
}

func TestRandomSequences(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		d := newDriver(t)
		at := time.Duration(0)
		step := func() time.Duration {
			at += time.Duration(1+r.Intn(30)) * time.Millisecond
			return at
		}
		d.down(r.Float32()*20, r.Float32()*800, step())
		for n := r.Intn(20); n > 0; n-- {
			d.move(r.Float32()*600-100, r.Float32()*1000-100, step())
			if r.Intn(4) == 0 {
				d.c.Tick(frame)
				d.observe()
			}
		}
		if r.Intn(5) == 0 {
			d.c.PointerCancel(1)
		} else {
			d.up(r.Float32()*600-100, r.Float32()*1000-100, step())
		}
		d.settle()

		outcomes := d.rec.count("dismissed") + d.rec.count("recovered")
		if d.rec.count("started") == 1 {
			if outcomes != 1 {
				t.Fatalf("sequence %d: captured gesture ended with %d outcomes (%v)", i, outcomes, d.rec.events)
			}
		} else if outcomes != 0 {
			t.Fatalf("sequence %d: uncaptured gesture notified %v", i, d.rec.events)
		}
	}
}

func TestPerpendicularSequencesNeverCapture(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		d := newDriver(t)
		start := f32.Pt(r.Float32()*20, 200+r.Float32()*400)
		d.down(start.X, start.Y, 0)
		for n := 1; n <= 10; n++ {
			along := r.Float32()*200 - 100
			abs := along
			if abs < 0 {
				abs = -abs
			}
			across := 1.5*abs + 0.01 + r.Float32()*100
			if r.Intn(2) == 0 {
				across = -across
			}
			d.move(start.X+along, start.Y+across, time.Duration(n)*10*time.Millisecond)
			if d.c.State() == Captured {
				t.Fatalf("sequence %d: captured a perpendicular-dominant drag", i)
			}
		}
		d.up(start.X, start.Y, time.Second)
		if len(d.rec.events) != 0 {
			t.Fatalf("sequence %d: got notifications %v", i, d.rec.events)
		}
	}
}

func TestNewControllerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threshold = 2
	if _, err := NewController(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got error %v, want ErrInvalidConfig", err)
	}
}
