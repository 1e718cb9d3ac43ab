package ink

import "slices"

// Drawing is the ordered stroke content of one page. Index order is both
// z-order and time order. Drawing is a value: every method returns a new
// Drawing and leaves the receiver untouched, so a Drawing can be shared with
// snapshot workers without copying.
type Drawing struct {
	strokes []Stroke
}

// NewDrawing builds a drawing from strokes. The slice is copied.
func NewDrawing(strokes ...Stroke) Drawing {
	return Drawing{strokes: slices.Clone(strokes)}
}

func (d Drawing) Len() int { return len(d.strokes) }

func (d Drawing) IsEmpty() bool { return len(d.strokes) == 0 }

// Stroke returns the stroke at index i.
func (d Drawing) Stroke(i int) Stroke { return d.strokes[i] }

// Strokes returns a copy of the stroke sequence.
func (d Drawing) Strokes() []Stroke { return slices.Clone(d.strokes) }

func (d Drawing) Append(s ...Stroke) Drawing {
	out := make([]Stroke, 0, len(d.strokes)+len(s))
	out = append(out, d.strokes...)
	out = append(out, s...)
	return Drawing{strokes: out}
}

// RemoveLast drops the top-most stroke. On an empty drawing it returns the
// drawing unchanged.
func (d Drawing) RemoveLast() Drawing {
	if len(d.strokes) == 0 {
		return d
	}
	return Drawing{strokes: slices.Clone(d.strokes[:len(d.strokes)-1])}
}

// Insert places s at index i, clamping i into [0, Len].
func (d Drawing) Insert(i int, s Stroke) Drawing {
	i = max(0, min(i, len(d.strokes)))
	return Drawing{strokes: slices.Insert(slices.Clone(d.strokes), i, s)}
}

// RemoveAt drops the stroke at i. Out of range indices are ignored.
func (d Drawing) RemoveAt(i int) Drawing {
	if i < 0 || i >= len(d.strokes) {
		return d
	}
	return Drawing{strokes: slices.Delete(slices.Clone(d.strokes), i, i+1)}
}

// Replace swaps the stroke at i for s. Out of range indices are ignored.
func (d Drawing) Replace(i int, s Stroke) Drawing {
	if i < 0 || i >= len(d.strokes) {
		return d
	}
	out := slices.Clone(d.strokes)
	out[i] = s
	return Drawing{strokes: out}
}

// Filter keeps the strokes for which keep returns true.
func (d Drawing) Filter(keep func(Stroke) bool) Drawing {
	out := make([]Stroke, 0, len(d.strokes))
	for _, s := range d.strokes {
		if keep(s) {
			out = append(out, s)
		}
	}
	return Drawing{strokes: out}
}

// Transformed applies m to every stroke.
func (d Drawing) Transformed(m Matrix2D) Drawing {
	out := make([]Stroke, len(d.strokes))
	for i, s := range d.strokes {
		out[i] = s.Transformed(m)
	}
	return Drawing{strokes: out}
}

// LastIndexOf returns the highest index holding a stroke equal to s, or -1.
func (d Drawing) LastIndexOf(s Stroke) int {
	for i := len(d.strokes) - 1; i >= 0; i-- {
		if d.strokes[i].Equal(s) {
			return i
		}
	}
	return -1
}

// Bounds is the union of every stroke's bounds.
func (d Drawing) Bounds() Rect {
	var r Rect
	for _, s := range d.strokes {
		r = r.Union(s.Bounds())
	}
	return r
}

// Equal compares the two drawings stroke by stroke.
func (d Drawing) Equal(other Drawing) bool {
	return slices.EqualFunc(d.strokes, other.strokes, Stroke.Equal)
}
