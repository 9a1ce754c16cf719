package slide

// Listener is notified about the outcome of edge drags. DismissComplete is
// the one hook every listener must implement: it is called exactly once per
// drag that ends in a dismissal, after the surface has settled off screen.
//
// Listeners may additionally implement any of DragStarter, RangeExceeder,
// RangeRecoverer, Canceller and OffsetObserver. The controller checks for
// them once, when the listener is added.
type Listener interface {
	DismissComplete()
}

// DragStarter is notified when the edge drag captures a pointer.
type DragStarter interface {
	DragStarted()
}

// RangeExceeder is notified when a release commits the surface to being
// dismissed. DismissComplete follows once the settle animation finishes,
// unless the gesture is reset in between.
type RangeExceeder interface {
	RangeExceeded()
}

// RangeRecoverer is notified when the surface has settled back to rest after
// a release that didn't dismiss it.
type RangeRecoverer interface {
	RangeRecovered()
}

// Canceller is notified when a captured or settling gesture is reset, for
// example because the surface got disabled mid-drag.
type Canceller interface {
	Cancelled()
}

// OffsetObserver is notified whenever the offset of the surface changes.
type OffsetObserver interface {
	OffsetChanged(offset float32)
}

// Funcs implements Listener and all optional capabilities with function
// fields, any of which may be nil.
type Funcs struct {
	OnDragStarted     func()
	OnRangeExceeded   func()
	OnRangeRecovered  func()
	OnDismissComplete func()
	OnCancelled       func()
	OnOffsetChanged   func(float32)
}

func (f Funcs) DragStarted() {
	if f.OnDragStarted != nil {
		f.OnDragStarted()
	}
}

func (f Funcs) RangeExceeded() {
	if f.OnRangeExceeded != nil {
		f.OnRangeExceeded()
	}
}

func (f Funcs) RangeRecovered() {
	if f.OnRangeRecovered != nil {
		f.OnRangeRecovered()
	}
}

func (f Funcs) DismissComplete() {
	if f.OnDismissComplete != nil {
		f.OnDismissComplete()
	}
}

func (f Funcs) Cancelled() {
	if f.OnCancelled != nil {
		f.OnCancelled()
	}
}

func (f Funcs) OffsetChanged(offset float32) {
	if f.OnOffsetChanged != nil {
		f.OnOffsetChanged(offset)
	}
}

// registration caches a listener's capabilities.
type registration struct {
	id        uint64
	listener  Listener
	started   DragStarter
	exceeded  RangeExceeder
	recovered RangeRecoverer
	cancelled Canceller
	offset    OffsetObserver
}

func newRegistration(id uint64, l Listener) registration {
	reg := registration{id: id, listener: l}
	reg.started, _ = l.(DragStarter)
	reg.exceeded, _ = l.(RangeExceeder)
	reg.recovered, _ = l.(RangeRecoverer)
	reg.cancelled, _ = l.(Canceller)
	reg.offset, _ = l.(OffsetObserver)
	return reg
}

// Handle refers to a listener added with Controller.AddListener.
type Handle struct {
	id uint64
	c  *Controller
}

// Remove unregisters the listener. Removing it more than once is a no-op.
func (h Handle) Remove() {
	if h.c != nil {
		h.c.removeListener(h.id)
	}
}
