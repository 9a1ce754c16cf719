// Package lifecycle connects a slide surface to the screen that hosts it.
//
// Hosts create a Manager when they are created and forward their lifecycle
// callbacks to it. The surface is attached at the first of those callbacks
// at which the host's content exists, and dismissing the surface finishes
// the host.
package lifecycle

import (
	"fmt"
	"log/slog"

	"honnef.co/go/slideback/slide"
	"honnef.co/go/slideback/widget"
)

// Host is a screen that can be dismissed.
type Host interface {
	// Finish closes the screen.
	Finish()
	Finishing() bool
	Destroyed() bool
}

// BackPresser is implemented by hosts that want to run their back navigation
// logic before being finished by a dismissal.
type BackPresser interface {
	BackPressed()
}

// Disabler is implemented by hosts that opt out of slide-back entirely.
type Disabler interface {
	SlideBackDisabled() bool
}

// ContentChecker is implemented by hosts that can report whether their
// content has been created. Hosts that don't implement it are assumed to have
// content by the time any lifecycle callback runs.
type ContentChecker interface {
	HasContent() bool
}

type phase uint8

const (
	uninitialized phase = iota
	attached
	disabled
)

func (p phase) String() string {
	switch p {
	case uninitialized:
		return "uninitialized"
	case attached:
		return "attached"
	case disabled:
		return "disabled"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

type Manager struct {
	host     Host
	listener slide.Listener
	cfg      *slide.Config
	log      *slog.Logger

	phase   phase
	surface *widget.Slide
}

// NewManager returns a manager for host. Dismissals are reported to
// listener, which defaults to a FinishAdapter for host. A nil cfg uses
// slide.DefaultConfig. Whether the host disabled slide-back is decided here,
// once.
func NewManager(host Host, listener slide.Listener, cfg *slide.Config) (*Manager, error) {
	if host == nil {
		return nil, &slide.ConfigError{Op: "new manager", Err: fmt.Errorf("%w: nil host", slide.ErrInvalidConfig)}
	}
	if cfg == nil {
		cfg = slide.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if listener == nil {
		listener = &FinishAdapter{Host: host}
	}
	log := slog.New(slog.DiscardHandler)
	if cfg.Logger != nil {
		log = cfg.Logger
	}
	m := &Manager{
		host:     host,
		listener: listener,
		cfg:      cfg,
		log:      log.With("component", "lifecycle"),
	}
	if d, ok := host.(Disabler); ok && d.SlideBackDisabled() {
		m.log.Debug("slide-back disabled by host")
		m.phase = disabled
	}
	return m, nil
}

// Attach creates the surface and connects it to the host. It may only be
// called once; the lifecycle callbacks call it at the right time.
func (m *Manager) Attach() error {
	switch m.phase {
	case attached:
		return &slide.ConfigError{Op: "attach", Err: slide.ErrAlreadyAttached}
	case disabled:
		return nil
	}
	if d, ok := m.host.(Disabler); ok && d.SlideBackDisabled() {
		m.log.Debug("slide-back disabled by host")
		m.phase = disabled
		return nil
	}

	s, err := widget.NewSlide(m.cfg)
	if err != nil {
		return err
	}
	s.Controller().AddListener(m.listener)
	m.surface = s
	m.phase = attached
	m.log.Debug("attached surface", "edge", m.cfg.Edge)
	return nil
}

func (m *Manager) tryAttach(cause string) {
	if m.phase != uninitialized {
		return
	}
	if c, ok := m.host.(ContentChecker); ok && !c.HasContent() {
		m.log.Debug("deferring attach, no content yet", "cause", cause)
		return
	}
	if err := m.Attach(); err != nil {
		// Attach only fails for invalid configurations, which NewManager
		// already rejected.
		panic(err)
	}
}

// OnContentReady is called once the host has created its content.
func (m *Manager) OnContentReady() { m.tryAttach("content ready") }

// OnResume is called whenever the host becomes visible.
func (m *Manager) OnResume() { m.tryAttach("resume") }

// OnEnterAnimationComplete is called once the host's enter transition has
// finished.
func (m *Manager) OnEnterAnimationComplete() { m.tryAttach("enter animation complete") }

// StartForResult is called when the host starts another screen and waits for
// its result. The surface stays attached.
func (m *Manager) StartForResult() {
	m.log.Debug("starting screen for result", "phase", m.phase)
}

// Surface returns the attached surface. It returns nil before the surface
// has been attached and when the host disabled slide-back.
func (m *Manager) Surface() *widget.Slide {
	return m.surface
}

func (m *Manager) Attached() bool { return m.phase == attached }
func (m *Manager) Disabled() bool { return m.phase == disabled }

// FinishAdapter is the default listener. It finishes the host once the
// surface has been dismissed. An adapter without a host does nothing.
type FinishAdapter struct {
	Host Host
	// BackOnDismiss makes the adapter call BackPressed on hosts that
	// implement BackPresser before finishing them.
	BackOnDismiss bool
}

func (a *FinishAdapter) DismissComplete() {
	if a.Host == nil {
		return
	}
	if a.BackOnDismiss {
		if bp, ok := a.Host.(BackPresser); ok {
			bp.BackPressed()
		}
	}
	if a.Host.Finishing() || a.Host.Destroyed() {
		return
	}
	a.Host.Finish()
}
