// Package slide implements the state machine behind edge-swipe dismissal.
//
// A Controller consumes pointer events and frame ticks, both delivered on a
// single goroutine, and decides whether a pointer that went down near the
// tracking edge drags the surface or belongs to the content underneath.
// Once released, a captured drag either settles off screen, after which
// listeners learn that the surface was dismissed, or settles back to rest.
package slide

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"gioui.org/f32"
	"gioui.org/io/pointer"
	"golang.org/x/exp/slices"
	"honnef.co/go/slideback/animation"
	"honnef.co/go/slideback/gesture"
)

// Session describes the drag that is currently in progress.
type Session struct {
	Edge    gesture.Edge
	Start   f32.Point
	Pointer pointer.ID
	// Offset is the fraction of the tracking axis the surface has moved.
	Offset float32
	State  State
	// Generation identifies the session. Frame callbacks scheduled for one
	// session do nothing once it has ended.
	Generation uint64
}

type Controller struct {
	cfg     *Config
	log     *slog.Logger
	edge    gesture.Edge
	arbiter gesture.Arbiter
	tracker gesture.Tracker

	size  image.Point
	scale float32

	session Session
	// offset outlives the session so that a dismissed surface stays off screen
	// until the host has removed it.
	offset float32
	gen    uint64

	// clock is the sum of all frame deltas.
	clock     time.Duration
	settle    animation.Animation[float32]
	settleGen uint64

	listeners []registration
	nextID    uint64
}

// NewController returns a controller for cfg, which must remain valid for
// the lifetime of the controller. A nil cfg uses DefaultConfig.
func NewController(cfg *Config) (*Controller, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:   cfg,
		log:   cfg.logger().With("component", "slide"),
		edge:  cfg.Edge,
		scale: 1,
	}
	c.tracker.Window = cfg.VelocityWindow
	c.syncArbiter()
	return c, nil
}

func (c *Controller) syncArbiter() {
	c.arbiter.Edge = c.edge
	c.arbiter.Band = float32(c.cfg.EdgeBand) * c.scale
	c.arbiter.MinDistance = float32(c.cfg.MinDistance) * c.scale
	c.arbiter.Slope = c.cfg.Slope
}

// SetSize sets the size of the surface in pixels.
func (c *Controller) SetSize(size image.Point) {
	c.size = size
}

// SetScale sets the number of pixels per dp.
func (c *Controller) SetScale(pxPerDp float32) {
	if pxPerDp <= 0 {
		pxPerDp = 1
	}
	if pxPerDp != c.scale {
		c.scale = pxPerDp
		c.syncArbiter()
	}
}

func (c *Controller) Config() *Config    { return c.cfg }
func (c *Controller) Edge() gesture.Edge { return c.edge }
func (c *Controller) State() State       { return c.session.State }

// Offset returns the fraction of the tracking axis by which the surface is
// displaced. It is always in [0, 1].
func (c *Controller) Offset() float32 { return c.offset }

// Displacement returns the translation of the surface in pixels.
func (c *Controller) Displacement() f32.Point {
	return c.edge.Displacement(c.offset * c.extent())
}

// Session returns the current session, if any.
func (c *Controller) Session() (Session, bool) {
	if c.session.State == Idle {
		return Session{}, false
	}
	s := c.session
	s.Offset = c.offset
	return s, true
}

// ActivePointer returns the pointer the current session is tracking.
func (c *Controller) ActivePointer() (pointer.ID, bool) {
	if c.session.State == Idle {
		return 0, false
	}
	return c.session.Pointer, true
}

// TrackedPointer returns the pointer the edge drag is watching. That
// includes a pointer it yielded to the content, which stays tracked until it
// is released or cancelled.
func (c *Controller) TrackedPointer() (pointer.ID, bool) {
	id, _, ok := c.arbiter.Start()
	return id, ok
}

// Animating reports whether the surface is settling and needs frame ticks.
func (c *Controller) Animating() bool {
	return c.session.State.Settling()
}

func (c *Controller) extent() float32 {
	return c.edge.Extent(c.size)
}

// AddListener registers l. Listeners are notified in the order they were
// added.
func (c *Controller) AddListener(l Listener) Handle {
	c.nextID++
	c.listeners = append(c.listeners, newRegistration(c.nextID, l))
	return Handle{id: c.nextID, c: c}
}

func (c *Controller) removeListener(id uint64) {
	if i := slices.IndexFunc(c.listeners, func(reg registration) bool { return reg.id == id }); i >= 0 {
		c.listeners = slices.Delete(c.listeners, i, i+1)
	}
}

// SetEnabled enables or disables the edge drag. Disabling it while a gesture
// is in progress resets the controller.
func (c *Controller) SetEnabled(b bool) {
	c.cfg.SetEnabled(b)
	if !b && c.session.State != Idle {
		c.Reset()
	}
}

func (c *Controller) Enabled() bool {
	return c.cfg.Enabled()
}

// SetTrackingEdge changes the tracking edge. It fails while a gesture is in
// progress.
func (c *Controller) SetTrackingEdge(e gesture.Edge) error {
	if !e.Valid() {
		return &ConfigError{Op: "set tracking edge", Err: fmt.Errorf("%w: unknown edge %d", ErrInvalidConfig, uint8(e))}
	}
	if c.session.State != Idle {
		return &ConfigError{Op: "set tracking edge", Err: fmt.Errorf("%w (state %s)", ErrGestureActive, c.session.State)}
	}
	c.edge = e
	c.arbiter.Reset()
	c.syncArbiter()
	return nil
}

func (c *Controller) transition(to State) {
	from := c.session.State
	if !legalStateTransitions[from][to] {
		panic(fmt.Sprintf("illegal state transition %s -> %s", from, to))
	}
	c.log.Debug("state transition", "from", from, "to", to, "session", c.session.Generation)
	c.session.State = to
}

// checkEnabled resets the controller if the config got disabled behind its
// back.
func (c *Controller) checkEnabled() {
	if !c.cfg.Enabled() && c.session.State != Idle {
		c.log.Debug("disabled during gesture", "state", c.session.State)
		c.Reset()
	}
}

// PointerDown reports whether the pointer started a new session.
func (c *Controller) PointerDown(id pointer.ID, pos f32.Point, t time.Duration) bool {
	c.checkEnabled()

	switch c.session.State {
	case Dismissing, Restoring:
		return false
	case Pending, Captured:
		if id != c.session.Pointer {
			return false
		}
		// We missed the release of the previous press.
		c.log.Debug("duplicate pointer down", "pointer", id, "state", c.session.State)
		if c.session.State == Captured {
			c.arbiter.Release(id)
			c.release(id)
			c.tracker.Forget(id)
			return false
		}
		c.discard()
		c.arbiter.Release(id)
	}

	if !c.arbiter.ShouldInterceptDown(id, pos, c.size, c.cfg.Enabled()) {
		return false
	}
	c.gen++
	c.session = Session{
		Edge:       c.edge,
		Start:      pos,
		Pointer:    id,
		Generation: c.gen,
	}
	c.settle.Cancel()
	c.setOffset(0)
	c.tracker.Down(id, pos, t)
	c.transition(Pending)
	return true
}

// PointerMove reports whether the move made the session capture the pointer.
// The caller should then deny the pointer to the content.
func (c *Controller) PointerMove(id pointer.ID, pos f32.Point, t time.Duration) bool {
	c.checkEnabled()
	if !c.owns(id) {
		return false
	}
	c.tracker.Move(id, pos, t)

	switch c.session.State {
	case Pending:
		switch c.arbiter.Decide(id, pos) {
		case gesture.Capture:
			c.transition(Captured)
			c.notify(func(reg registration) {
				if reg.started != nil {
					reg.started.DragStarted()
				}
			})
			c.dragTo(pos)
			return true
		case gesture.Yield:
			// The arbiter keeps yielding until the pointer is released.
			c.discard()
		}
	case Captured:
		c.dragTo(pos)
	}
	return false
}

func (c *Controller) PointerUp(id pointer.ID, pos f32.Point, t time.Duration) {
	c.checkEnabled()
	c.arbiter.Release(id)
	if !c.owns(id) {
		c.tracker.Forget(id)
		return
	}
	c.tracker.Up(id, pos, t)
	switch c.session.State {
	case Pending:
		c.discard()
	case Captured:
		c.dragTo(pos)
		c.release(id)
	}
	c.tracker.Forget(id)
}

// PointerCancel ends the gesture of id, as if it had been released where it
// was last seen.
func (c *Controller) PointerCancel(id pointer.ID) {
	c.checkEnabled()
	if c.arbiter.Tracking(id) && c.arbiter.Yielded() {
		c.log.Debug("yielded pointer cancelled", "pointer", id)
	}
	c.arbiter.Release(id)
	if !c.owns(id) {
		c.tracker.Forget(id)
		return
	}
	switch c.session.State {
	case Pending:
		c.discard()
	case Captured:
		if last, ok := c.tracker.Last(id); ok {
			c.dragTo(last.Position)
		}
		c.release(id)
	}
	c.tracker.Forget(id)
}

func (c *Controller) owns(id pointer.ID) bool {
	return (c.session.State == Pending || c.session.State == Captured) && c.session.Pointer == id
}

func (c *Controller) dragTo(pos f32.Point) {
	extent := c.extent()
	if extent <= 0 {
		c.setOffset(0)
		return
	}
	c.setOffset(c.edge.Along(pos.Sub(c.session.Start)) / extent)
}

// discard ends a pending session without notifying anyone.
func (c *Controller) discard() {
	c.transition(Idle)
	c.session = Session{}
	c.setOffset(0)
}

// release decides how a captured session settles.
func (c *Controller) release(id pointer.ID) {
	v := c.tracker.AxisVelocity(id, c.edge) / c.scale
	if c.offset >= c.cfg.Threshold || v > c.cfg.FlickVelocity {
		c.log.Debug("dismissing", "offset", c.offset, "velocity", v)
		c.transition(Dismissing)
		gen := c.session.Generation
		c.notify(func(reg registration) {
			if reg.exceeded != nil {
				reg.exceeded.RangeExceeded()
			}
		})
		if c.session.Generation != gen || c.session.State != Dismissing {
			// A listener reset us.
			return
		}
		c.startSettle(1, v)
	} else {
		c.log.Debug("restoring", "offset", c.offset, "velocity", v)
		c.transition(Restoring)
		c.startSettle(0, v)
	}
}

func (c *Controller) startSettle(target, velocity float32) {
	remaining := target - c.offset
	if remaining < 0 {
		remaining = -remaining
	}
	if velocity < 0 {
		velocity = -velocity
	}
	// Pixels per millisecond.
	speed := max(c.cfg.SettleVelocity, velocity) * c.scale
	d := time.Duration(remaining * c.extent() / speed * float32(time.Millisecond))
	d = animation.Clamp(d, c.cfg.SettleMin, c.cfg.SettleMax)

	animation.StartSimpleAnimation(c.clock, &c.settle, c.offset, target, d, animation.EaseOut(2))
	c.settleGen = c.session.Generation
}

// Tick advances the settle animation by dt. The host calls it once per frame.
func (c *Controller) Tick(dt time.Duration) {
	if dt > 0 {
		c.clock += dt
	}
	c.checkEnabled()
	if !c.session.State.Settling() {
		return
	}
	if c.settleGen != c.session.Generation {
		c.log.Debug("dropping stale animation", "animation", c.settleGen, "session", c.session.Generation)
		c.settle.Cancel()
		return
	}

	c.setOffset(c.settle.Value(c.clock))
	if c.settle.Done() {
		c.finishSettle()
	}
}

// FrameCallback returns a function that ticks the controller, but only for as
// long as the session that is current now hasn't been replaced or reset. The
// function reports whether it ticked.
func (c *Controller) FrameCallback() func(dt time.Duration) bool {
	gen := c.gen
	return func(dt time.Duration) bool {
		if c.gen != gen {
			c.log.Debug("dropping stale frame", "frame", gen, "session", c.gen)
			return false
		}
		c.Tick(dt)
		return true
	}
}

// finishSettle ends the session before notifying listeners, so that they see
// an idle controller and may reset it or start a new session.
func (c *Controller) finishSettle() {
	state := c.session.State
	switch state {
	case Dismissing:
		c.setOffset(1)
	case Restoring:
		c.setOffset(0)
	}
	c.transition(Idle)
	c.session = Session{}

	switch state {
	case Dismissing:
		c.notify(func(reg registration) { reg.listener.DismissComplete() })
	case Restoring:
		c.notify(func(reg registration) {
			if reg.recovered != nil {
				reg.recovered.RangeRecovered()
			}
		})
	}
}

// Reset abandons any gesture in progress. A running animation stops
// immediately and the surface snaps back to rest. Listeners that implement
// Canceller are notified if the pointer had been captured. A completed
// dismissal isn't undone.
func (c *Controller) Reset() {
	state := c.session.State
	c.log.Debug("reset", "state", state, "settle remaining", c.settle.Remaining(c.clock))
	c.settle.Cancel()
	c.arbiter.Reset()
	c.gen++
	if state == Idle {
		return
	}
	c.tracker.Forget(c.session.Pointer)
	c.transition(Idle)
	c.session = Session{}
	c.setOffset(0)
	if state == Captured || state.Settling() {
		c.notify(func(reg registration) {
			if reg.cancelled != nil {
				reg.cancelled.Cancelled()
			}
		})
	}
}

func (c *Controller) setOffset(v float32) {
	v = animation.Clamp(v, 0, 1)
	if v == c.offset {
		return
	}
	c.offset = v
	c.notify(func(reg registration) {
		if reg.offset != nil {
			reg.offset.OffsetChanged(v)
		}
	})
}

func (c *Controller) notify(fn func(reg registration)) {
	if len(c.listeners) == 0 {
		return
	}
	// Listeners may add or remove listeners.
	regs := slices.Clone(c.listeners)
	for _, reg := range regs {
		fn(reg)
	}
}
