package widget

import (
	"context"
	"image"
	"image/color"
	rtrace "runtime/trace"
	"time"

	"honnef.co/go/slideback/gesture"
	"honnef.co/go/slideback/replay"
	"honnef.co/go/slideback/slide"

	"gioui.org/f32"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
)

// Slide lays out a widget that can be dismissed by dragging it away from one
// of its edges.
//
// Slide registers its pointer handler underneath the content, so the content
// keeps receiving pointer events until the drag is told apart from scrolling.
// From then on Slide grabs the pointer and the content sees a cancellation.
type Slide struct {
	// Scrim is drawn behind the content while it is displaced, fading out as
	// the content leaves.
	Scrim color.NRGBA
	// Shadow is drawn along the leading side of displaced content.
	Shadow      color.NRGBA
	ShadowWidth unit.Dp
	// Invalidate, if set, is called when the offset changes outside of
	// Layout, for example because the surface got disabled.
	Invalidate func()

	ctrl *slide.Controller
	rec  *replay.Recorder

	grab      bool
	lastFrame time.Time
	frame     func(dt time.Duration) bool
	inLayout  bool
}

// NewSlide returns a surface driven by a controller for cfg. A nil cfg uses
// slide.DefaultConfig.
func NewSlide(cfg *slide.Config) (*Slide, error) {
	ctrl, err := slide.NewController(cfg)
	if err != nil {
		return nil, err
	}
	s := &Slide{
		Scrim:       color.NRGBA{A: 0x66},
		Shadow:      color.NRGBA{A: 0x44},
		ShadowWidth: 8,
		ctrl:        ctrl,
	}
	ctrl.AddListener(s)
	return s, nil
}

func (s *Slide) Controller() *slide.Controller { return s.ctrl }

func (s *Slide) Enabled() bool { return s.ctrl.Enabled() }

// SetEnabled enables or disables the edge drag. Disabling it mid-drag snaps
// the content back.
func (s *Slide) SetEnabled(b bool) { s.ctrl.SetEnabled(b) }

func (s *Slide) SetTrackingEdge(e gesture.Edge) error { return s.ctrl.SetTrackingEdge(e) }

// Record makes the surface record all input it passes to its controller. A
// nil recorder stops recording.
func (s *Slide) Record(rec *replay.Recorder) { s.rec = rec }

// Offset returns the fraction of the tracking axis the content is displaced by.
func (s *Slide) Offset() float32 { return s.ctrl.Offset() }

// DismissComplete implements slide.Listener.
func (s *Slide) DismissComplete() {}

// OffsetChanged implements slide.OffsetObserver.
func (s *Slide) OffsetChanged(float32) {
	if !s.inLayout && s.Invalidate != nil {
		s.Invalidate()
	}
}

func (s *Slide) update(gtx layout.Context) {
	size := gtx.Constraints.Max
	s.ctrl.SetSize(size)
	s.ctrl.SetScale(gtx.Metric.PxPerDp)
	if s.rec != nil {
		s.rec.Size(size)
		s.rec.Scale(gtx.Metric.PxPerDp)
	}

	var dt time.Duration
	if !s.lastFrame.IsZero() {
		dt = gtx.Now.Sub(s.lastFrame)
	}
	s.lastFrame = gtx.Now
	ticked := true
	if s.frame != nil {
		ticked = s.frame(dt)
		s.frame = nil
	} else {
		s.ctrl.Tick(dt)
	}
	if ticked && s.rec != nil {
		s.rec.Tick(dt)
	}

	for _, ev := range gtx.Events(s) {
		e, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch e.Type {
		case pointer.Press:
			if s.rec != nil {
				s.rec.Down(e.PointerID, e.Position, e.Time)
			}
			s.ctrl.PointerDown(e.PointerID, e.Position, e.Time)
		case pointer.Drag:
			if s.rec != nil {
				s.rec.Move(e.PointerID, e.Position, e.Time)
			}
			if s.ctrl.PointerMove(e.PointerID, e.Position, e.Time) {
				s.grab = true
			}
		case pointer.Release:
			if s.rec != nil {
				s.rec.Up(e.PointerID, e.Position, e.Time)
			}
			s.ctrl.PointerUp(e.PointerID, e.Position, e.Time)
		case pointer.Cancel:
			// Cancellations don't carry a pointer. The tracked pointer may
			// have been yielded and grabbed by the content.
			if id, ok := s.ctrl.TrackedPointer(); ok {
				if s.rec != nil {
					s.rec.Cancel(id)
				}
				s.ctrl.PointerCancel(id)
			}
		}
	}

	if s.grab && s.ctrl.State() != slide.Captured {
		s.grab = false
	}
}

func (s *Slide) Layout(gtx layout.Context, w layout.Widget) layout.Dimensions {
	defer rtrace.StartRegion(context.Background(), "widget.Slide.Layout").End()

	s.inLayout = true
	defer func() { s.inLayout = false }()

	s.update(gtx)

	size := gtx.Constraints.Max
	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()
	types := pointer.Press | pointer.Drag | pointer.Release | pointer.Cancel
	pointer.InputOp{Tag: s, Grab: s.grab, Types: types}.Add(gtx.Ops)

	offset := s.ctrl.Offset()
	disp := s.ctrl.Displacement()
	if offset > 0 {
		s.drawScrim(gtx, size, offset)
	}

	stack := op.Offset(disp.Round()).Push(gtx.Ops)
	dims := w(gtx)
	stack.Pop()

	if offset > 0 {
		s.drawShadow(gtx, size, disp, offset)
	}

	if s.ctrl.Animating() {
		s.frame = s.ctrl.FrameCallback()
		op.InvalidateOp{}.Add(gtx.Ops)
	}

	return dims
}

func fade(c color.NRGBA, offset float32) color.NRGBA {
	c.A = uint8(float32(c.A) * (1 - offset))
	return c
}

func (s *Slide) drawScrim(gtx layout.Context, size image.Point, offset float32) {
	if s.Scrim.A == 0 {
		return
	}
	paint.FillShape(gtx.Ops, fade(s.Scrim, offset), clip.Rect{Max: size}.Op())
}

// drawShadow draws a gradient next to the side of the content that faces
// away from the direction it is being dismissed in.
func (s *Slide) drawShadow(gtx layout.Context, size image.Point, disp f32.Point, offset float32) {
	if s.Shadow.A == 0 || s.ShadowWidth <= 0 {
		return
	}
	width := float32(gtx.Dp(s.ShadowWidth))
	edge := s.ctrl.Edge()
	dir := edge.Displacement(1)

	// inner lies on the content, outer is width pixels outside of it.
	var inner f32.Point
	switch edge {
	case gesture.EdgeRight:
		inner = f32.Pt(float32(size.X)+disp.X, 0)
	case gesture.EdgeBottom:
		inner = f32.Pt(0, float32(size.Y)+disp.Y)
	default:
		inner = disp
	}
	outer := inner.Sub(dir.Mul(width))

	r := frect{Min: inner, Max: outer}
	if edge.Axis() == layout.Horizontal {
		r.Min.Y, r.Max.Y = 0, float32(size.Y)
	} else {
		r.Min.X, r.Max.X = 0, float32(size.X)
	}

	defer r.canon().Op(gtx.Ops).Push(gtx.Ops).Pop()
	paint.LinearGradientOp{
		Stop1:  inner,
		Color1: fade(s.Shadow, offset),
		Stop2:  outer,
		Color2: color.NRGBA{},
	}.Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)
}

// frect is a rectangle with fractional coordinates.
type frect struct {
	Min f32.Point
	Max f32.Point
}

func (r frect) canon() frect {
	if r.Min.X > r.Max.X {
		r.Min.X, r.Max.X = r.Max.X, r.Min.X
	}
	if r.Min.Y > r.Max.Y {
		r.Min.Y, r.Max.Y = r.Max.Y, r.Min.Y
	}
	return r
}

func (r frect) Op(ops *op.Ops) clip.Op {
	var p clip.Path
	p.Begin(ops)
	p.MoveTo(r.Min)
	p.LineTo(f32.Pt(r.Max.X, r.Min.Y))
	p.LineTo(r.Max)
	p.LineTo(f32.Pt(r.Min.X, r.Max.Y))
	p.Close()
	return clip.Outline{Path: p.End()}.Op()
}
