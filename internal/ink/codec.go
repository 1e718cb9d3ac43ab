package ink

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// FormatVersion is the version written by Marshal.
const FormatVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported drawing format version")

type wireDrawing struct {
	Version int          `json:"version"`
	Strokes []wireStroke `json:"strokes"`
}

type wireStroke struct {
	Kind      string    `json:"kind"`
	Color     string    `json:"color"`
	Width     float64   `json:"width"`
	Transform *Matrix2D `json:"transform,omitempty"`
	Points    []Point   `json:"points"`
}

func toWire(s Stroke) wireStroke {
	m := s.Transform
	return wireStroke{
		Kind:      s.Kind.String(),
		Color:     HexColor(s.Color),
		Width:     s.Width,
		Transform: &m,
		Points:    s.Points,
	}
}

// stroke validates a decoded stroke. A missing transform is the identity.
func (ws wireStroke) stroke() (Stroke, error) {
	kind, err := ParseKind(ws.Kind)
	if err != nil {
		return Stroke{}, err
	}
	c, err := ParseHexColor(ws.Color)
	if err != nil {
		return Stroke{}, err
	}
	if ws.Width < 0 {
		return Stroke{}, fmt.Errorf("negative width %v", ws.Width)
	}
	m := Identity()
	if ws.Transform != nil {
		m = *ws.Transform
	}
	return Stroke{Kind: kind, Color: c, Width: ws.Width, Transform: m, Points: ws.Points}, nil
}

// MarshalJSON encodes a single stroke the way it appears inside a drawing.
func (s Stroke) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(s))
}

func (s *Stroke) UnmarshalJSON(data []byte) error {
	var ws wireStroke
	if err := json.Unmarshal(data, &ws); err != nil {
		return err
	}
	st, err := ws.stroke()
	if err != nil {
		return fmt.Errorf("decode stroke: %w", err)
	}
	*s = st
	return nil
}

// Marshal encodes the drawing into its byte form. Callers treat the result as
// opaque; Unmarshal(Marshal(d)) is equal to d.
func Marshal(d Drawing) ([]byte, error) {
	w := wireDrawing{
		Version: FormatVersion,
		Strokes: make([]wireStroke, len(d.strokes)),
	}
	for i, s := range d.strokes {
		w.Strokes[i] = toWire(s)
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal drawing: %w", err)
	}
	return data, nil
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(data []byte) (Drawing, error) {
	var w wireDrawing
	if err := json.Unmarshal(data, &w); err != nil {
		return Drawing{}, fmt.Errorf("decode drawing: %w", err)
	}
	if w.Version != FormatVersion {
		return Drawing{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, w.Version)
	}

	strokes := make([]Stroke, len(w.Strokes))
	for i, ws := range w.Strokes {
		st, err := ws.stroke()
		if err != nil {
			return Drawing{}, fmt.Errorf("decode stroke %d: %w", i, err)
		}
		strokes[i] = st
	}
	return Drawing{strokes: strokes}, nil
}

// HexColor formats c as #rrggbbaa.
func HexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// ParseHexColor accepts #rrggbb and #rrggbbaa. A missing alpha is opaque.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	c := color.NRGBA{A: 0xff}
	var err error
	switch len(hex) {
	case 6:
		_, err = fmt.Sscanf(hex, "%02x%02x%02x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(hex, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}
