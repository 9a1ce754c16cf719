// Command slidedemo shows a stack of screens that can be dismissed by dragging
// them away from an edge.
//
// Tapping a row pushes a new screen, dragging from the tracking edge or
// pressing escape pops it. With -record, the input of the top screen is
// written to a file on exit; -replay feeds such a file to a controller
// without opening a window and logs what the controller does.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"log/slog"
	"os"

	"honnef.co/go/slideback/lifecycle"
	"honnef.co/go/slideback/replay"
	"honnef.co/go/slideback/slide"

	"gioui.org/app"
	"gioui.org/font"
	"gioui.org/font/gofont"
	"gioui.org/io/key"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
)

var (
	configPath   = flag.String("config", "", "load slide configuration from TOML `file`")
	edgeName     = flag.String("edge", "", "override the tracking edge (left, right, top, bottom)")
	verbose      = flag.Bool("v", false, "log gesture decisions")
	recordPath   = flag.String("record", "", "write the input of the top screen to `file` on exit")
	replayPath   = flag.String("replay", "", "replay a recording from `file` without opening a window")
	backOnSwipe  = flag.Bool("back", false, "run back navigation before finishing a dismissed screen")
	disableEvery = flag.Int("disable-every", 0, "disable slide-back on every `n`th screen")
)

func main() {
	flag.Parse()

	var level slog.LevelVar
	if *verbose {
		level.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	cfg.Logger = logger

	if *replayPath != "" {
		if err := replayFile(logger, cfg, *replayPath); err != nil {
			log.Fatal(err)
		}
		return
	}

	go func() {
		w := app.NewWindow(app.Title("slidedemo"), app.Size(unit.Dp(400), unit.Dp(700)))
		d := newDemo(w, cfg, logger)
		err := d.run()
		if err != nil {
			log.Fatal(err)
		}
		if *recordPath != "" {
			if err := d.writeRecording(*recordPath); err != nil {
				log.Fatal(err)
			}
		}
		os.Exit(0)
	}()
	app.Main()
}

func loadConfig() (*slide.Config, error) {
	cfg := slide.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = slide.LoadConfigFile(*configPath)
		if err != nil {
			return nil, err
		}
	}
	if *edgeName != "" {
		if err := cfg.Edge.UnmarshalText([]byte(*edgeName)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func replayFile(logger *slog.Logger, cfg *slide.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	events, err := replay.Decode(data)
	if err != nil {
		return fmt.Errorf("couldn't decode %s: %w", path, err)
	}

	c, err := slide.NewController(cfg)
	if err != nil {
		return err
	}
	c.AddListener(slide.Funcs{
		OnDragStarted:     func() { logger.Info("drag started") },
		OnRangeExceeded:   func() { logger.Info("range exceeded") },
		OnRangeRecovered:  func() { logger.Info("range recovered") },
		OnDismissComplete: func() { logger.Info("dismiss complete") },
		OnCancelled:       func() { logger.Info("cancelled") },
	})

	prev := c.State()
	replay.Play(c, events, func(i int, ev replay.Event) {
		if s := c.State(); s != prev {
			logger.Info("state", "event", i, "input", ev, "from", prev, "to", s, "offset", c.Offset())
			prev = s
		}
	})
	logger.Info("replay done", "events", len(events), "state", c.State(), "offset", c.Offset())
	return nil
}

// screen is a single entry of the demo's navigation stack.
type screen struct {
	demo  *demo
	depth int
	mgr   *lifecycle.Manager
	rec   *replay.Recorder

	list    layout.List
	rows    []widget.Clickable
	built   bool
	closing bool
	gone    bool
}

func (s *screen) Finish() {
	if s.closing || s.gone {
		return
	}
	s.closing = true
	s.demo.pop(s)
}

func (s *screen) Finishing() bool { return s.closing }
func (s *screen) Destroyed() bool { return s.gone }
func (s *screen) HasContent() bool { return s.built }

func (s *screen) BackPressed() {
	s.demo.log.Info("back pressed", "screen", s.depth)
}

func (s *screen) SlideBackDisabled() bool {
	return *disableEvery > 0 && s.depth%*disableEvery == 0
}

type demo struct {
	w      *app.Window
	cfg    *slide.Config
	log    *slog.Logger
	shaper *text.Shaper

	screens []*screen
	// recording of the most recently closed screen
	lastRecording []byte
}

func newDemo(w *app.Window, cfg *slide.Config, logger *slog.Logger) *demo {
	d := &demo{
		w:      w,
		cfg:    cfg,
		log:    logger,
		shaper: text.NewShaper(gofont.Collection()),
	}
	// The root screen can't be dismissed.
	d.screens = append(d.screens, &screen{demo: d, list: layout.List{Axis: layout.Vertical}})
	return d
}

func (d *demo) push() {
	top := d.screens[len(d.screens)-1]
	if top.mgr != nil {
		top.mgr.StartForResult()
	}

	s := &screen{
		demo:  d,
		depth: len(d.screens),
		list:  layout.List{Axis: layout.Vertical},
	}
	// Every screen gets its own configuration so that disabling one doesn't
	// disable the others.
	cfg := d.cfg.Clone()
	cfg.SetEnabled(true)
	var listener slide.Listener
	if *backOnSwipe {
		listener = &lifecycle.FinishAdapter{Host: s, BackOnDismiss: true}
	}
	mgr, err := lifecycle.NewManager(s, listener, cfg)
	if err != nil {
		// The configuration was validated at startup.
		panic(err)
	}
	s.mgr = mgr
	d.screens = append(d.screens, s)
	d.log.Debug("pushed screen", "depth", s.depth)
	s.mgr.OnResume()
}

func (d *demo) pop(s *screen) {
	for i, other := range d.screens {
		if other == s && i > 0 {
			if s.rec != nil && s.rec.Len() > 0 {
				d.lastRecording = s.rec.Bytes()
			}
			d.screens = append(d.screens[:i], d.screens[i+1:]...)
			s.gone = true
			d.log.Debug("popped screen", "depth", s.depth)
			if i == len(d.screens) && i > 1 {
				d.screens[i-1].mgr.OnResume()
			}
			d.w.Invalidate()
			return
		}
	}
}

func (d *demo) back() {
	if len(d.screens) < 2 {
		return
	}
	top := d.screens[len(d.screens)-1]
	top.BackPressed()
	top.Finish()
}

func (d *demo) writeRecording(path string) error {
	data := d.lastRecording
	if top := d.screens[len(d.screens)-1]; top.rec != nil && top.rec.Len() > 0 {
		data = top.rec.Bytes()
	}
	if data == nil {
		return nil
	}
	return os.WriteFile(path, data, 0o644)
}

func (d *demo) run() error {
	var ops op.Ops
	for e := range d.w.Events() {
		switch ev := e.(type) {
		case system.DestroyEvent:
			return ev.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, ev)
			d.layout(gtx)
			ev.Frame(&ops)
		}
	}
	return nil
}

func (d *demo) layout(gtx layout.Context) {
	for _, ev := range gtx.Events(d) {
		switch ev := ev.(type) {
		case key.Event:
			if ev.State != key.Press {
				continue
			}
			switch ev.Name {
			case key.NameEscape:
				d.back()
			case "D":
				if top := d.screens[len(d.screens)-1]; top.mgr != nil {
					if surf := top.mgr.Surface(); surf != nil {
						surf.SetEnabled(!surf.Enabled())
						d.log.Info("toggled slide-back", "screen", top.depth, "enabled", surf.Enabled())
					}
				}
			}
		}
	}
	defer clip.Rect{Max: gtx.Constraints.Max}.Push(gtx.Ops).Pop()
	key.InputOp{Tag: d, Keys: "⎋|D"}.Add(gtx.Ops)
	key.FocusOp{Tag: d}.Add(gtx.Ops)

	n := len(d.screens)
	// The screen below the top one shows through while the top one is
	// being dragged away.
	if n > 1 {
		below := d.screens[n-2]
		d.layoutScreen(gtx.Disabled(), below)
	}
	top := d.screens[n-1]
	if top.mgr != nil && top.mgr.Surface() != nil {
		top.mgr.Surface().Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			return d.layoutScreen(gtx, top)
		})
	} else {
		d.layoutScreen(gtx, top)
	}

	if !top.built {
		top.built = true
		if top.mgr != nil {
			top.mgr.OnContentReady()
			if s := top.mgr.Surface(); s != nil {
				s.Invalidate = d.w.Invalidate
				if *recordPath != "" {
					top.rec = new(replay.Recorder)
					s.Record(top.rec)
				}
			}
			top.mgr.OnEnterAnimationComplete()
			d.w.Invalidate()
		}
	}
}

var palette = [...]color.NRGBA{
	{R: 0xff, G: 0xff, B: 0xea, A: 0xff},
	{R: 0xe3, G: 0xf2, B: 0xfd, A: 0xff},
	{R: 0xe8, G: 0xf5, B: 0xe9, A: 0xff},
	{R: 0xfc, G: 0xe4, B: 0xec, A: 0xff},
}

func (d *demo) layoutScreen(gtx layout.Context, s *screen) layout.Dimensions {
	size := gtx.Constraints.Max
	paint.FillShape(gtx.Ops, palette[s.depth%len(palette)], clip.Rect{Max: size}.Op())

	const numRows = 40
	if len(s.rows) != numRows {
		s.rows = make([]widget.Clickable, numRows)
	}
	header := fmt.Sprintf("Screen %d", s.depth)
	switch {
	case s.depth == 0:
		header += " (root)"
	case s.mgr != nil && s.mgr.Disabled():
		header += " (slide-back disabled)"
	case s.mgr != nil && s.mgr.Surface() != nil:
		header += fmt.Sprintf(" (swipe from the %s edge)", s.mgr.Surface().Controller().Edge())
	}

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(12).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return d.label(gtx, 20, header)
			})
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return s.list.Layout(gtx, len(s.rows), func(gtx layout.Context, i int) layout.Dimensions {
				return d.layoutRow(gtx, s, i)
			})
		}),
	)
}

func (d *demo) layoutRow(gtx layout.Context, s *screen, i int) layout.Dimensions {
	r := &s.rows[i]
	// A cancelled press, for example because the surface captured the
	// pointer, or a release outside of the row isn't a click.
	if r.Clicked(gtx) {
		d.push()
		d.w.Invalidate()
	}

	height := gtx.Dp(48)
	size := image.Pt(gtx.Constraints.Max.X, height)
	gtx.Constraints = layout.Exact(size)
	return r.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		if r.Pressed() {
			paint.FillShape(gtx.Ops, color.NRGBA{A: 0x22}, clip.Rect{Max: size}.Op())
		}
		paint.FillShape(gtx.Ops, color.NRGBA{A: 0x33}, clip.Rect{Min: image.Pt(0, height-1), Max: size}.Op())
		layout.Inset{Left: 16, Top: 14}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			return d.label(gtx, 16, fmt.Sprintf("Open screen %d (row %d)", s.depth+1, i+1))
		})
		return layout.Dimensions{Size: size}
	})
}

func (d *demo) label(gtx layout.Context, size unit.Sp, txt string) layout.Dimensions {
	m := op.Record(gtx.Ops)
	paint.ColorOp{Color: color.NRGBA{A: 0xff}}.Add(gtx.Ops)
	material := m.Stop()
	return widget.Label{MaxLines: 1}.Layout(gtx, d.shaper, font.Font{}, size, txt, material)
}
