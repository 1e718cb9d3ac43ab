package ink

import (
	"fmt"
	"image/color"
	"slices"
	"strings"
)

// Kind is the ink type a stroke was drawn with.
type Kind uint8

const (
	KindPen Kind = iota
	KindMarker
	KindPencil
)

func (k Kind) String() string {
	switch k {
	case KindPen:
		return "pen"
	case KindMarker:
		return "marker"
	case KindPencil:
		return "pencil"
	default:
		return "unknown"
	}
}

// ParseKind maps a wire name back to a Kind. "highlighter" is accepted as an
// alias of marker.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "pen":
		return KindPen, nil
	case "marker", "highlighter":
		return KindMarker, nil
	case "pencil":
		return KindPencil, nil
	default:
		return 0, fmt.Errorf("unknown ink kind %q", s)
	}
}

// Point is one sample of a stroke path in stroke-local coordinates.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Force float64 `json:"force,omitempty"`
}

// Stroke is one continuous ink gesture. Strokes are values: every operation
// that changes one returns a new Stroke and the point slice is never written
// after construction.
type Stroke struct {
	Kind      Kind
	Color     color.NRGBA
	Width     float64
	Transform Matrix2D
	Points    []Point
}

// NewStroke builds a stroke with an identity transform. The points are copied.
func NewStroke(kind Kind, c color.NRGBA, width float64, points []Point) Stroke {
	return Stroke{
		Kind:      kind,
		Color:     c,
		Width:     width,
		Transform: Identity(),
		Points:    slices.Clone(points),
	}
}

// Location returns point i in page coordinates.
func (s Stroke) Location(i int) (float64, float64) {
	p := s.Points[i]
	return s.Transform.Apply(p.X, p.Y)
}

// Bounds is the page-space bounding box of the stroke, widened by half the
// nib width so thin horizontal lines still have area.
func (s Stroke) Bounds() Rect {
	if len(s.Points) == 0 {
		return Rect{}
	}
	minX, minY := s.Location(0)
	maxX, maxY := minX, minY
	for i := 1; i < len(s.Points); i++ {
		x, y := s.Location(i)
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	r := Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	return r.Inset(s.Width / 2)
}

// Transformed returns a copy of s with m applied after its current transform.
func (s Stroke) Transformed(m Matrix2D) Stroke {
	out := s
	out.Transform = m.Multiply(s.Transform)
	return out
}

// Equal compares strokes by value: ink kind, color, width, path length,
// transform and each sample.
func (s Stroke) Equal(other Stroke) bool {
	if s.Kind != other.Kind || s.Color != other.Color || s.Width != other.Width {
		return false
	}
	if s.Transform != other.Transform {
		return false
	}
	return slices.Equal(s.Points, other.Points)
}
