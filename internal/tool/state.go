package tool

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/inkbook/inkbook/internal/ink"
)

// Tool is the palette selection.
type Tool uint8

const (
	Pen Tool = iota
	Marker
	Pencil
	Eraser
	Lasso
)

func (t Tool) String() string {
	switch t {
	case Pen:
		return "pen"
	case Marker:
		return "marker"
	case Pencil:
		return "pencil"
	case Eraser:
		return "eraser"
	case Lasso:
		return "lasso"
	default:
		return "unknown"
	}
}

func Parse(s string) (Tool, error) {
	switch strings.ToLower(s) {
	case "pen":
		return Pen, nil
	case "marker", "highlighter":
		return Marker, nil
	case "pencil":
		return Pencil, nil
	case "eraser":
		return Eraser, nil
	case "lasso":
		return Lasso, nil
	default:
		return 0, fmt.Errorf("unknown tool %q", s)
	}
}

// InkKind maps a drawing tool to the ink it lays down. Eraser and lasso
// report false.
func (t Tool) InkKind() (ink.Kind, bool) {
	switch t {
	case Pen:
		return ink.KindPen, true
	case Marker:
		return ink.KindMarker, true
	case Pencil:
		return ink.KindPencil, true
	default:
		return 0, false
	}
}

// State is the shared palette: current tool, color and width. PartialErase
// selects bitmap-style erasing instead of whole-stroke erasing.
type State struct {
	Tool         Tool
	Color        color.NRGBA
	Width        float64
	PartialErase bool
}

// DefaultState is a black 3pt pen.
func DefaultState() State {
	return State{Tool: Pen, Color: color.NRGBA{A: 0xff}, Width: 3}
}
