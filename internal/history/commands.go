package history

import (
	"slices"

	"github.com/inkbook/inkbook/internal/ink"
)

// appeared tracks edits the ink layer already drew before the command wrapping
// them existed. The first Execute of such a command only clears the flag;
// every later Execute (a redo) mutates the surface.
type appeared bool

func (a *appeared) consume() bool {
	if *a {
		*a = false
		return true
	}
	return false
}

// AddStroke appends one stroke to the tail of the drawing.
type AddStroke struct {
	surface InkSurface
	stroke  ink.Stroke
	shown   appeared
}

// NewAddStroke returns a command that appends stroke when executed.
func NewAddStroke(surface InkSurface, stroke ink.Stroke) *AddStroke {
	return &AddStroke{surface: surface, stroke: stroke}
}

// StrokeFinalized wraps a stroke the ink layer has already appended to the
// surface on touch-up.
func StrokeFinalized(surface InkSurface, stroke ink.Stroke) *AddStroke {
	return &AddStroke{surface: surface, stroke: stroke, shown: true}
}

func (c *AddStroke) Name() string { return "stroke.add" }

func (c *AddStroke) Stroke() ink.Stroke { return c.stroke }

func (c *AddStroke) Execute() {
	if c.shown.consume() {
		return
	}
	c.surface.SetDrawing(c.surface.Drawing().Append(c.stroke))
}

// Undo removes the most recent copy of the stroke. Strokes are only ever
// appended at the tail, so that is normally the last stroke.
func (c *AddStroke) Undo() {
	d := c.surface.Drawing()
	if d.IsEmpty() {
		return
	}
	i := d.LastIndexOf(c.stroke)
	if i < 0 {
		i = d.Len() - 1
	}
	c.surface.SetDrawing(d.RemoveAt(i))
}

// Erased is a stroke removed by the eraser together with the index it held
// before the erase.
type Erased struct {
	Index  int
	Stroke ink.Stroke
}

// EraseStrokes removes a set of strokes and puts them back at their original
// indices on undo, keeping z-order intact.
type EraseStrokes struct {
	surface InkSurface
	erased  []Erased
	shown   appeared
}

// NewEraseStrokes captures the strokes at indices from the current drawing.
// Out of range indices are dropped.
func NewEraseStrokes(surface InkSurface, indices []int) *EraseStrokes {
	d := surface.Drawing()
	var erased []Erased
	for _, i := range uniqueSorted(indices) {
		if i < 0 || i >= d.Len() {
			continue
		}
		erased = append(erased, Erased{Index: i, Stroke: d.Stroke(i)})
	}
	return &EraseStrokes{surface: surface, erased: erased}
}

// StrokesErased wraps an erase the ink layer already performed.
func StrokesErased(surface InkSurface, erased []Erased) *EraseStrokes {
	sorted := slices.Clone(erased)
	slices.SortFunc(sorted, func(a, b Erased) int { return a.Index - b.Index })
	return &EraseStrokes{surface: surface, erased: sorted, shown: true}
}

func (c *EraseStrokes) Name() string { return "stroke.erase" }

func (c *EraseStrokes) Count() int { return len(c.erased) }

func (c *EraseStrokes) Execute() {
	if c.shown.consume() {
		return
	}
	d := c.surface.Drawing()
	for i := len(c.erased) - 1; i >= 0; i-- {
		d = d.RemoveAt(c.erased[i].Index)
	}
	c.surface.SetDrawing(d)
}

func (c *EraseStrokes) Undo() {
	d := c.surface.Drawing()
	for _, e := range c.erased {
		d = d.Insert(e.Index, e.Stroke)
	}
	c.surface.SetDrawing(d)
}

// TransformStrokes applies an affine transform to a lasso selection.
type TransformStrokes struct {
	surface   InkSurface
	indices   []int
	originals []ink.Stroke
	transform ink.Matrix2D
	shown     appeared
}

// NewTransformStrokes captures the selected strokes so undo can restore them.
func NewTransformStrokes(surface InkSurface, indices []int, m ink.Matrix2D) *TransformStrokes {
	d := surface.Drawing()
	c := &TransformStrokes{surface: surface, transform: m}
	for _, i := range uniqueSorted(indices) {
		if i < 0 || i >= d.Len() {
			continue
		}
		c.indices = append(c.indices, i)
		c.originals = append(c.originals, d.Stroke(i))
	}
	return c
}

// StrokesTransformed wraps a lasso drag the ink layer already applied.
// originals are the strokes as they were before the drag.
func StrokesTransformed(surface InkSurface, indices []int, originals []ink.Stroke, m ink.Matrix2D) *TransformStrokes {
	return &TransformStrokes{
		surface:   surface,
		indices:   slices.Clone(indices),
		originals: slices.Clone(originals),
		transform: m,
		shown:     true,
	}
}

func (c *TransformStrokes) Name() string { return "stroke.transform" }

func (c *TransformStrokes) Execute() {
	if c.shown.consume() {
		return
	}
	d := c.surface.Drawing()
	for k, i := range c.indices {
		d = d.Replace(i, c.originals[k].Transformed(c.transform))
	}
	c.surface.SetDrawing(d)
}

func (c *TransformStrokes) Undo() {
	d := c.surface.Drawing()
	for k, i := range c.indices {
		d = d.Replace(i, c.originals[k])
	}
	c.surface.SetDrawing(d)
}

// AddSticker places a sticker on the sticker layer. When the id is already
// placed, undo puts the replaced sticker back instead of removing it.
type AddSticker struct {
	surface  StickerSurface
	sticker  Sticker
	previous Sticker
	replaced bool
}

func NewAddSticker(surface StickerSurface, s Sticker) *AddSticker {
	return &AddSticker{surface: surface, sticker: s}
}

func (c *AddSticker) Name() string { return "sticker.add" }

func (c *AddSticker) Execute() {
	c.previous, c.replaced = c.surface.Sticker(c.sticker.ID)
	c.surface.PlaceSticker(c.sticker)
}

func (c *AddSticker) Undo() {
	if c.replaced {
		c.surface.PlaceSticker(c.previous)
		return
	}
	c.surface.RemoveSticker(c.sticker.ID)
}

// FreezeCanvas locks or unlocks a canvas for input.
type FreezeCanvas struct {
	surface  FreezeSurface
	frozen   bool
	previous bool
}

func NewFreezeCanvas(surface FreezeSurface, frozen bool) *FreezeCanvas {
	return &FreezeCanvas{surface: surface, frozen: frozen}
}

func (c *FreezeCanvas) Name() string { return "canvas.freeze" }

func (c *FreezeCanvas) Execute() {
	c.previous = c.surface.Frozen()
	c.surface.SetFrozen(c.frozen)
}

func (c *FreezeCanvas) Undo() { c.surface.SetFrozen(c.previous) }

func uniqueSorted(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}
