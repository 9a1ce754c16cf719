// Package replay records the input a slide controller sees and plays it back.
//
// Recordings are meant for debugging gesture decisions: a recording taken in
// the demo can be replayed headlessly and produces the same state transitions.
package replay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"gioui.org/f32"
	"gioui.org/io/pointer"
	"github.com/golang/snappy"
)

type Kind uint8

const (
	KindDown Kind = iota + 1
	KindMove
	KindUp
	KindCancel
	KindTick
	// KindSize records the size of the surface in Pos.
	KindSize
	// KindScale records the pixels per dp in Pos.X.
	KindScale
	kindLast
)

func (k Kind) String() string {
	switch k {
	case KindDown:
		return "down"
	case KindMove:
		return "move"
	case KindUp:
		return "up"
	case KindCancel:
		return "cancel"
	case KindTick:
		return "tick"
	case KindSize:
		return "size"
	case KindScale:
		return "scale"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Event is a single recorded input. For ticks, Time is the frame delta.
type Event struct {
	Kind Kind
	ID   pointer.ID
	Pos  f32.Point
	Time time.Duration
}

func (ev Event) String() string {
	switch ev.Kind {
	case KindTick:
		return fmt.Sprintf("tick %s", ev.Time)
	case KindSize:
		return fmt.Sprintf("size %vx%v", ev.Pos.X, ev.Pos.Y)
	case KindScale:
		return fmt.Sprintf("scale %v", ev.Pos.X)
	case KindCancel:
		return fmt.Sprintf("cancel #%d", ev.ID)
	default:
		return fmt.Sprintf("%s #%d (%v, %v) @ %s", ev.Kind, ev.ID, ev.Pos.X, ev.Pos.Y, ev.Time)
	}
}

const (
	magic   = "slbk"
	version = 1
	// kind, pointer ID, x, y, time
	recordSize = 1 + 2 + 4 + 4 + 8
)

var (
	ErrBadMagic   = errors.New("not a slide recording")
	ErrBadVersion = errors.New("unsupported recording version")
)

// Recorder accumulates events. The zero value is ready to use.
type Recorder struct {
	events []Event
}

func (r *Recorder) Record(ev Event) {
	r.events = append(r.events, ev)
}

func (r *Recorder) Down(id pointer.ID, pos f32.Point, t time.Duration) {
	r.Record(Event{Kind: KindDown, ID: id, Pos: pos, Time: t})
}

func (r *Recorder) Move(id pointer.ID, pos f32.Point, t time.Duration) {
	r.Record(Event{Kind: KindMove, ID: id, Pos: pos, Time: t})
}

func (r *Recorder) Up(id pointer.ID, pos f32.Point, t time.Duration) {
	r.Record(Event{Kind: KindUp, ID: id, Pos: pos, Time: t})
}

func (r *Recorder) Cancel(id pointer.ID) {
	r.Record(Event{Kind: KindCancel, ID: id})
}

func (r *Recorder) Tick(dt time.Duration) {
	r.Record(Event{Kind: KindTick, Time: dt})
}

// Size records a change in surface size. Unchanged sizes aren't recorded.
func (r *Recorder) Size(size image.Point) {
	pos := f32.Pt(float32(size.X), float32(size.Y))
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == KindSize {
			if r.events[i].Pos == pos {
				return
			}
			break
		}
	}
	r.Record(Event{Kind: KindSize, Pos: pos})
}

// Scale records a change in pixels per dp. Unchanged scales aren't recorded.
func (r *Recorder) Scale(pxPerDp float32) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == KindScale {
			if r.events[i].Pos.X == pxPerDp {
				return
			}
			break
		}
	}
	r.Record(Event{Kind: KindScale, Pos: f32.Pt(pxPerDp, 0)})
}

func (r *Recorder) Events() []Event {
	return r.events
}

func (r *Recorder) Len() int {
	return len(r.events)
}

func (r *Recorder) Reset() {
	r.events = r.events[:0]
}

// Bytes encodes the recording. The events are stored as fixed-size little
// endian records, compressed with snappy.
func (r *Recorder) Bytes() []byte {
	return Encode(r.events)
}

func Encode(events []Event) []byte {
	raw := make([]byte, len(events)*recordSize)
	for i, ev := range events {
		b := raw[i*recordSize:]
		b[0] = byte(ev.Kind)
		binary.LittleEndian.PutUint16(b[1:], uint16(ev.ID))
		binary.LittleEndian.PutUint32(b[3:], math.Float32bits(ev.Pos.X))
		binary.LittleEndian.PutUint32(b[7:], math.Float32bits(ev.Pos.Y))
		binary.LittleEndian.PutUint64(b[11:], uint64(ev.Time))
	}

	out := make([]byte, 0, len(magic)+1+snappy.MaxEncodedLen(len(raw)))
	out = append(out, magic...)
	out = append(out, version)
	return append(out, snappy.Encode(nil, raw)...)
}

func Decode(data []byte) ([]Event, error) {
	if len(data) < len(magic)+1 || string(data[:len(magic)]) != magic {
		return nil, ErrBadMagic
	}
	if v := data[len(magic)]; v != version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	raw, err := snappy.Decode(nil, data[len(magic)+1:])
	if err != nil {
		return nil, fmt.Errorf("couldn't decompress recording: %w", err)
	}
	if len(raw)%recordSize != 0 {
		return nil, fmt.Errorf("recording has trailing %d bytes", len(raw)%recordSize)
	}

	events := make([]Event, len(raw)/recordSize)
	for i := range events {
		b := raw[i*recordSize:]
		k := Kind(b[0])
		if k == 0 || k >= kindLast {
			return nil, fmt.Errorf("record %d has unknown kind %d", i, b[0])
		}
		events[i] = Event{
			Kind: k,
			ID:   pointer.ID(binary.LittleEndian.Uint16(b[1:])),
			Pos: f32.Point{
				X: math.Float32frombits(binary.LittleEndian.Uint32(b[3:])),
				Y: math.Float32frombits(binary.LittleEndian.Uint32(b[7:])),
			},
			Time: time.Duration(binary.LittleEndian.Uint64(b[11:])),
		}
	}
	return events, nil
}

// Target consumes replayed events. *slide.Controller implements it.
type Target interface {
	SetSize(size image.Point)
	SetScale(pxPerDp float32)
	PointerDown(id pointer.ID, pos f32.Point, t time.Duration) bool
	PointerMove(id pointer.ID, pos f32.Point, t time.Duration) bool
	PointerUp(id pointer.ID, pos f32.Point, t time.Duration)
	PointerCancel(id pointer.ID)
	Tick(dt time.Duration)
}

// Play feeds events to t in order. If fn is not nil, it is called after each
// event.
func Play(t Target, events []Event, fn func(i int, ev Event)) {
	for i, ev := range events {
		switch ev.Kind {
		case KindDown:
			t.PointerDown(ev.ID, ev.Pos, ev.Time)
		case KindMove:
			t.PointerMove(ev.ID, ev.Pos, ev.Time)
		case KindUp:
			t.PointerUp(ev.ID, ev.Pos, ev.Time)
		case KindCancel:
			t.PointerCancel(ev.ID)
		case KindTick:
			t.Tick(ev.Time)
		case KindSize:
			t.SetSize(image.Pt(int(ev.Pos.X), int(ev.Pos.Y)))
		case KindScale:
			t.SetScale(ev.Pos.X)
		}
		if fn != nil {
			fn(i, ev)
		}
	}
}
