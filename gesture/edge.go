package gesture

import (
	"fmt"
	"image"
	"strings"

	"gioui.org/f32"
	"gioui.org/layout"
)

// Edge is the side of a surface that a dismiss gesture may start from. The
// dismiss direction points away from the edge, into the surface.
type Edge uint8

const (
	EdgeLeft Edge = iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

func (e Edge) String() string {
	switch e {
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	default:
		return fmt.Sprintf("Edge(%d)", uint8(e))
	}
}

func (e Edge) Valid() bool {
	return e <= EdgeBottom
}

func (e Edge) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid edge %d", uint8(e))
	}
	return []byte(e.String()), nil
}

func (e *Edge) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "left":
		*e = EdgeLeft
	case "right":
		*e = EdgeRight
	case "top":
		*e = EdgeTop
	case "bottom":
		*e = EdgeBottom
	default:
		return fmt.Errorf("unknown edge %q", b)
	}
	return nil
}

// Axis returns the axis the surface moves along when dragged from e.
func (e Edge) Axis() layout.Axis {
	switch e {
	case EdgeTop, EdgeBottom:
		return layout.Vertical
	default:
		return layout.Horizontal
	}
}

// Along returns the component of v in the dismiss direction.
func (e Edge) Along(v f32.Point) float32 {
	switch e {
	case EdgeRight:
		return -v.X
	case EdgeTop:
		return v.Y
	case EdgeBottom:
		return -v.Y
	default:
		return v.X
	}
}

// Across returns the absolute component of v perpendicular to the dismiss
// direction.
func (e Edge) Across(v f32.Point) float32 {
	var c float32
	if e.Axis() == layout.Horizontal {
		c = v.Y
	} else {
		c = v.X
	}
	if c < 0 {
		return -c
	}
	return c
}

// Extent returns the length of size along e's axis.
func (e Edge) Extent(size image.Point) float32 {
	if e.Axis() == layout.Horizontal {
		return float32(size.X)
	}
	return float32(size.Y)
}

// Displacement converts a distance in the dismiss direction into a
// translation.
func (e Edge) Displacement(d float32) f32.Point {
	switch e {
	case EdgeRight:
		return f32.Pt(-d, 0)
	case EdgeTop:
		return f32.Pt(0, d)
	case EdgeBottom:
		return f32.Pt(0, -d)
	default:
		return f32.Pt(d, 0)
	}
}

// InBand reports whether pos lies within band pixels of the edge of a
// rectangle of the given size.
func (e Edge) InBand(pos f32.Point, size image.Point, band float32) bool {
	if pos.X < 0 || pos.Y < 0 || pos.X > float32(size.X) || pos.Y > float32(size.Y) {
		return false
	}
	switch e {
	case EdgeRight:
		return float32(size.X)-pos.X <= band
	case EdgeTop:
		return pos.Y <= band
	case EdgeBottom:
		return float32(size.Y)-pos.Y <= band
	default:
		return pos.X <= band
	}
}
