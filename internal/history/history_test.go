package history

import (
	"fmt"
	"image/color"
	"maps"
	"math/rand"
	"testing"

	"github.com/inkbook/inkbook/internal/ink"
)

type memSurface struct {
	drawing  ink.Drawing
	stickers map[string]Sticker
	frozen   bool
}

func newMemSurface() *memSurface {
	return &memSurface{stickers: map[string]Sticker{}}
}

func (m *memSurface) Drawing() ink.Drawing     { return m.drawing }
func (m *memSurface) SetDrawing(d ink.Drawing) { m.drawing = d }
func (m *memSurface) PlaceSticker(s Sticker)   { m.stickers[s.ID] = s }
func (m *memSurface) Frozen() bool             { return m.frozen }
func (m *memSurface) SetFrozen(f bool)         { m.frozen = f }

func (m *memSurface) Sticker(id string) (Sticker, bool) {
	s, ok := m.stickers[id]
	return s, ok
}

func (m *memSurface) RemoveSticker(id string) bool {
	_, ok := m.stickers[id]
	delete(m.stickers, id)
	return ok
}

func stroke(n int) ink.Stroke {
	return ink.NewStroke(ink.KindPen, color.NRGBA{A: 0xff}, 2, []ink.Point{
		{X: float64(n), Y: 0},
		{X: float64(n), Y: 10},
	})
}

func TestExecuteClearsRedo(t *testing.T) {
	s := newMemSurface()
	h := New()
	h.Execute(NewAddStroke(s, stroke(1)))
	h.Execute(NewAddStroke(s, stroke(2)))
	h.Undo()
	if !h.CanRedo() {
		t.Fatalf("expected redo after undo")
	}
	h.Execute(NewAddStroke(s, stroke(3)))
	if h.CanRedo() {
		t.Fatalf("execute should clear redo stack")
	}
	if s.drawing.Len() != 2 {
		t.Fatalf("expected 2 strokes, got %d", s.drawing.Len())
	}
}

func TestUndoRedoOnEmptyStacksAreNoOps(t *testing.T) {
	h := New()
	if h.Undo() || h.Redo() {
		t.Fatalf("empty history should report no-op")
	}
}

func TestStrokeFinalizedFirstExecuteIsNoOp(t *testing.T) {
	s := newMemSurface()
	h := New()

	// The ink layer has already drawn the stroke.
	st := stroke(1)
	s.drawing = s.drawing.Append(st)
	h.Execute(StrokeFinalized(s, st))
	if s.drawing.Len() != 1 {
		t.Fatalf("finalized stroke inserted twice: %d", s.drawing.Len())
	}

	before, _ := ink.Marshal(s.drawing)
	h.Undo()
	if s.drawing.Len() != 0 {
		t.Fatalf("undo should remove the stroke")
	}
	h.Redo()
	after, _ := ink.Marshal(s.drawing)
	if string(before) != string(after) {
		t.Fatalf("redo should restore byte-identical drawing")
	}
}

func TestAddStrokeUndoOnEmptyDrawingIsIgnored(t *testing.T) {
	s := newMemSurface()
	cmd := NewAddStroke(s, stroke(1))
	cmd.Undo()
	if s.drawing.Len() != 0 {
		t.Fatalf("unexpected strokes: %d", s.drawing.Len())
	}
}

func TestEraseUndoRestoresOriginalPositions(t *testing.T) {
	s := newMemSurface()
	s.drawing = ink.NewDrawing(stroke(0), stroke(1), stroke(2), stroke(3))
	original := s.drawing

	h := New()
	h.Execute(NewEraseStrokes(s, []int{2, 0, 2}))
	if s.drawing.Len() != 2 || !s.drawing.Stroke(0).Equal(stroke(1)) {
		t.Fatalf("unexpected drawing after erase")
	}
	h.Undo()
	if !s.drawing.Equal(original) {
		t.Fatalf("undo should restore z-order")
	}
	h.Redo()
	if s.drawing.Len() != 2 || !s.drawing.Stroke(1).Equal(stroke(3)) {
		t.Fatalf("redo should erase again")
	}
}

func TestStrokesErasedSkipsFirstExecute(t *testing.T) {
	s := newMemSurface()
	original := ink.NewDrawing(stroke(0), stroke(1), stroke(2))
	s.drawing = original.RemoveAt(1)

	h := New()
	h.Execute(StrokesErased(s, []Erased{{Index: 1, Stroke: stroke(1)}}))
	if s.drawing.Len() != 2 {
		t.Fatalf("first execute should not erase again")
	}
	h.Undo()
	if !s.drawing.Equal(original) {
		t.Fatalf("undo should reinsert at index 1")
	}
}

func TestTransformStrokesRoundTrip(t *testing.T) {
	s := newMemSurface()
	s.drawing = ink.NewDrawing(stroke(0), stroke(1), stroke(2))
	original := s.drawing

	h := New()
	h.Execute(NewTransformStrokes(s, []int{0, 2}, ink.Translate(10, 5)))
	if s.drawing.Stroke(0).Equal(stroke(0)) || !s.drawing.Stroke(1).Equal(stroke(1)) {
		t.Fatalf("transform applied to wrong strokes")
	}
	h.Undo()
	if !s.drawing.Equal(original) {
		t.Fatalf("undo should restore originals")
	}
}

func TestStickerAndFreezeCommands(t *testing.T) {
	s := newMemSurface()
	h := New()
	h.Execute(NewAddSticker(s, Sticker{ID: "stk_1", AssetID: "asset_1"}))
	h.Execute(NewFreezeCanvas(s, true))
	if !s.frozen || len(s.stickers) != 1 {
		t.Fatalf("commands not applied")
	}
	h.Undo()
	h.Undo()
	if s.frozen || len(s.stickers) != 0 {
		t.Fatalf("commands not inverted")
	}
}

func TestResetKeepsSurface(t *testing.T) {
	s := newMemSurface()
	h := New()
	h.Execute(NewAddStroke(s, stroke(1)))
	h.Reset()
	if h.CanUndo() || h.CanRedo() {
		t.Fatalf("reset should clear stacks")
	}
	if s.drawing.Len() != 1 {
		t.Fatalf("reset should not touch surface")
	}
}

// Random execute/undo/redo sequences over every command kind must leave the
// surface equal to a fresh replay of the commands still on the undo stack.
func TestRandomSequencesMatchNetReplay(t *testing.T) {
	type builder func(*memSurface) Command

	rng := rand.New(rand.NewSource(7))
	pick := func(n int) []int {
		var out []int
		for i := range n {
			if rng.Intn(2) == 0 {
				out = append(out, i)
			}
		}
		return out
	}

	for round := 0; round < 50; round++ {
		s := newMemSurface()
		h := New()
		var applied, undone []builder
		next := 0
		for step := 0; step < 60; step++ {
			var b builder
			switch rng.Intn(7) {
			case 0:
				st := stroke(next)
				next++
				b = func(m *memSurface) Command { return NewAddStroke(m, st) }
			case 1:
				indices := pick(s.drawing.Len())
				b = func(m *memSurface) Command { return NewEraseStrokes(m, indices) }
			case 2:
				indices := pick(s.drawing.Len())
				shift := ink.Translate(float64(rng.Intn(20)), float64(rng.Intn(20)))
				b = func(m *memSurface) Command { return NewTransformStrokes(m, indices, shift) }
			case 3:
				st := Sticker{
					ID:      fmt.Sprintf("stk_%d", rng.Intn(3)),
					AssetID: fmt.Sprintf("asset_%d", rng.Intn(5)),
					Frame:   ink.Rect{Width: float64(1 + rng.Intn(50)), Height: 10},
				}
				b = func(m *memSurface) Command { return NewAddSticker(m, st) }
			case 4:
				frozen := rng.Intn(2) == 0
				b = func(m *memSurface) Command { return NewFreezeCanvas(m, frozen) }
			case 5:
				if h.Undo() {
					undone = append(undone, applied[len(applied)-1])
					applied = applied[:len(applied)-1]
				}
			case 6:
				if h.Redo() {
					applied = append(applied, undone[len(undone)-1])
					undone = undone[:len(undone)-1]
				}
			}
			if b != nil {
				h.Execute(b(s))
				applied = append(applied, b)
				undone = nil
			}

			replay := newMemSurface()
			for _, build := range applied {
				build(replay).Execute()
			}
			if !s.drawing.Equal(replay.drawing) || !maps.Equal(s.stickers, replay.stickers) || s.frozen != replay.frozen {
				t.Fatalf("round %d step %d: surface diverged from replay", round, step)
			}
		}
	}
}

func TestAddStickerUndoRestoresReplacedSticker(t *testing.T) {
	s := newMemSurface()
	old := Sticker{ID: "stk_1", AssetID: "asset_a"}
	s.PlaceSticker(old)

	h := New()
	h.Execute(NewAddSticker(s, Sticker{ID: "stk_1", AssetID: "asset_b"}))
	if s.stickers["stk_1"].AssetID != "asset_b" {
		t.Fatalf("sticker not replaced")
	}
	h.Undo()
	if got, ok := s.stickers["stk_1"]; !ok || got != old {
		t.Fatalf("undo should restore the replaced sticker, got %+v (present %v)", got, ok)
	}
	h.Redo()
	if s.stickers["stk_1"].AssetID != "asset_b" {
		t.Fatalf("redo should replace again")
	}
}
