package notebook

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/inkbook/inkbook/internal/canvas"
	"github.com/inkbook/inkbook/internal/history"
	"github.com/inkbook/inkbook/internal/ink"
)

// HistoryMode selects how ink edits are undone.
type HistoryMode int

const (
	// HistoryCommands records every edit as a reversible command.
	HistoryCommands HistoryMode = iota
	// HistorySnapshots records whole-drawing snapshots built off the
	// interactive goroutine.
	HistorySnapshots
)

func (m HistoryMode) String() string {
	if m == HistorySnapshots {
		return "snapshots"
	}
	return "commands"
}

func ParseHistoryMode(s string) (HistoryMode, error) {
	switch strings.ToLower(s) {
	case "", "commands":
		return HistoryCommands, nil
	case "snapshots":
		return HistorySnapshots, nil
	default:
		return 0, fmt.Errorf("unknown history mode %q", s)
	}
}

// Page is one sheet of the notebook: a canvas plus the undo machinery for it.
// Edits are expected from a single goroutine; snapshot deliveries arrive on
// the page's worker goroutine and are folded in under mu.
type Page struct {
	id     string
	canvas *canvas.Canvas
	mode   HistoryMode

	commands *history.History

	drag *drag

	mu         sync.Mutex
	snapshots  *history.SnapshotHistory
	generation uint64
	closed     bool
	worker     *history.SnapshotWorker
}

// NewPage builds an empty page. In snapshot mode it starts a worker
// goroutine that lives until Close.
func NewPage(id string, mode HistoryMode, maxSnapshots int) *Page {
	p := &Page{
		id:       id,
		canvas:   canvas.New(),
		mode:     mode,
		commands: history.New(),
	}
	p.snapshots = history.NewSnapshotHistory(history.NewPageSnapshot(ink.Drawing{}), maxSnapshots)
	if mode == HistorySnapshots {
		p.worker = history.NewSnapshotWorker(id, p.deliver)
	}
	return p
}

func (p *Page) ID() string                 { return p.id }
func (p *Page) Canvas() *canvas.Canvas     { return p.canvas }
func (p *Page) Mode() HistoryMode          { return p.mode }
func (p *Page) Drawing() ink.Drawing       { return p.canvas.Drawing() }
func (p *Page) Commands() *history.History { return p.commands }

// StrokeFinished records a stroke the user just finished drawing. The stroke
// joins the drawing the way the ink layer adds it, and the history records
// it without applying it a second time. Frozen pages reject ink.
func (p *Page) StrokeFinished(s ink.Stroke) bool {
	if p.canvas.Frozen() {
		slog.Debug("stroke rejected", "page", p.id, "reason", "frozen")
		return false
	}
	p.canvas.SetDrawing(p.canvas.Drawing().Append(s))
	if p.mode == HistorySnapshots {
		p.capture()
		return true
	}
	p.commands.Execute(history.StrokeFinalized(p.canvas, s))
	return true
}

// EraseFinished removes the strokes at indices and reports how many went.
func (p *Page) EraseFinished(indices []int) int {
	if p.canvas.Frozen() {
		return 0
	}
	cmd := history.NewEraseStrokes(p.canvas, indices)
	if cmd.Count() == 0 {
		return 0
	}
	p.apply(cmd)
	return cmd.Count()
}

// ErasePath erases every stroke the eraser touched along path.
func (p *Page) ErasePath(path []ink.Point, radius float64) int {
	return p.EraseFinished(ink.Hit(p.canvas.Drawing(), path, radius))
}

// TransformSelection applies m to the strokes inside the lasso and returns
// the indices it moved. A transform that is degenerate, or that would leave
// any selected stroke with a degenerate transform, is rejected whole with
// ink.ErrDegenerateTransform.
func (p *Page) TransformSelection(lasso ink.Lasso, m ink.Matrix2D) ([]int, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if p.canvas.Frozen() || m.IsIdentity() {
		return nil, nil
	}
	d := p.canvas.Drawing()
	indices := lasso.Select(d)
	for _, i := range indices {
		if err := m.Multiply(d.Stroke(i).Transform).Validate(); err != nil {
			return nil, fmt.Errorf("stroke %d: %w", i, err)
		}
	}
	if len(indices) == 0 {
		return nil, nil
	}
	p.apply(history.NewTransformStrokes(p.canvas, indices, m))
	return indices, nil
}

// PivotSelection scales the lasso selection by scale and rotates it by
// radians, both around the center of the selected strokes.
func (p *Page) PivotSelection(lasso ink.Lasso, scale, radians float64) ([]int, error) {
	bounds := ink.SelectionBounds(p.canvas.Drawing(), lasso.Select(p.canvas.Drawing()))
	if bounds.IsEmpty() {
		return nil, nil
	}
	cx, cy := bounds.Center()
	m := ink.RotateAround(radians, cx, cy).Multiply(ink.ScaleAround(scale, scale, cx, cy))
	return p.TransformSelection(lasso, m)
}

// drag is a lasso selection being moved live. The canvas already shows
// the moved strokes; history learns about the move when it ends.
type drag struct {
	indices   []int
	originals []ink.Stroke
	transform ink.Matrix2D
}

// BeginDrag picks up the strokes inside the lasso for a live move and returns
// their indices. A drag already in progress is ended first.
func (p *Page) BeginDrag(lasso ink.Lasso) []int {
	p.EndDrag()
	if p.canvas.Frozen() {
		return nil
	}
	d := p.canvas.Drawing()
	indices := lasso.Select(d)
	if len(indices) == 0 {
		return nil
	}
	originals := make([]ink.Stroke, len(indices))
	for k, i := range indices {
		originals[k] = d.Stroke(i)
	}
	p.drag = &drag{indices: indices, originals: originals, transform: ink.Identity()}
	return indices
}

// DragTo shows the picked up strokes moved by m, measured from where the
// drag began. Nothing is recorded until EndDrag.
func (p *Page) DragTo(m ink.Matrix2D) error {
	if p.drag == nil {
		return nil
	}
	if err := m.Validate(); err != nil {
		return err
	}
	for _, s := range p.drag.originals {
		if err := m.Multiply(s.Transform).Validate(); err != nil {
			return err
		}
	}
	d := p.canvas.Drawing()
	for k, i := range p.drag.indices {
		d = d.Replace(i, p.drag.originals[k].Transformed(m))
	}
	p.canvas.SetDrawing(d)
	p.drag.transform = m
	return nil
}

// EndDrag records the move as one undo step. A drag that ends where it
// began leaves no history.
func (p *Page) EndDrag() bool {
	g := p.drag
	p.drag = nil
	if g == nil || g.transform.IsIdentity() {
		return false
	}
	if p.mode == HistorySnapshots {
		p.capture()
		return true
	}
	p.commands.Execute(history.StrokesTransformed(p.canvas, g.indices, g.originals, g.transform))
	return true
}

// PlaceSticker puts s on the page. In snapshot mode stickers are not part of
// the undo history.
func (p *Page) PlaceSticker(s history.Sticker) bool {
	if p.canvas.Frozen() {
		return false
	}
	if p.mode == HistorySnapshots {
		p.canvas.PlaceSticker(s)
		return true
	}
	p.commands.Execute(history.NewAddSticker(p.canvas, s))
	return true
}

// SetFrozen toggles input on the page. Setting the current value is a no-op.
func (p *Page) SetFrozen(frozen bool) bool {
	if p.canvas.Frozen() == frozen {
		return false
	}
	if p.mode == HistorySnapshots {
		p.canvas.SetFrozen(frozen)
		return true
	}
	p.commands.Execute(history.NewFreezeCanvas(p.canvas, frozen))
	return true
}

// Undo ends any live drag first, so the drag is the step undone.
func (p *Page) Undo() bool {
	p.EndDrag()
	if p.mode == HistoryCommands {
		return p.commands.Undo()
	}
	p.worker.Flush()
	p.mu.Lock()
	s, ok := p.snapshots.Undo()
	p.mu.Unlock()
	if ok {
		p.canvas.SetDrawing(s.Drawing())
	}
	return ok
}

func (p *Page) Redo() bool {
	p.EndDrag()
	if p.mode == HistoryCommands {
		return p.commands.Redo()
	}
	p.worker.Flush()
	p.mu.Lock()
	s, ok := p.snapshots.Redo()
	p.mu.Unlock()
	if ok {
		p.canvas.SetDrawing(s.Drawing())
	}
	return ok
}

func (p *Page) CanUndo() bool {
	if p.mode == HistoryCommands {
		return p.commands.CanUndo()
	}
	p.worker.Flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshots.CanUndo()
}

func (p *Page) CanRedo() bool {
	if p.mode == HistoryCommands {
		return p.commands.CanRedo()
	}
	p.worker.Flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshots.CanRedo()
}

// ResetHistory forgets every undo step and takes the current drawing as the
// new baseline. Snapshots still in flight are discarded.
func (p *Page) ResetHistory() {
	p.commands.Reset()
	baseline := history.NewPageSnapshot(p.canvas.Drawing())
	p.mu.Lock()
	p.generation++
	p.snapshots.Reset(baseline)
	p.mu.Unlock()
}

// Load replaces the page content with stored drawing bytes and starts a
// fresh history. A bad payload leaves a blank page.
func (p *Page) Load(data []byte) error {
	err := p.canvas.Load(data)
	p.ResetHistory()
	return err
}

func (p *Page) Export() ([]byte, error) {
	return p.canvas.Export()
}

// Close stops the snapshot worker. Deliveries still queued are dropped.
func (p *Page) Close() {
	p.mu.Lock()
	p.closed = true
	p.generation++
	p.mu.Unlock()
	if p.worker != nil {
		p.worker.Close()
	}
}

// apply runs an edit that has not been drawn yet.
func (p *Page) apply(cmd history.Command) {
	if p.mode == HistorySnapshots {
		cmd.Execute()
		p.capture()
		return
	}
	p.commands.Execute(cmd)
}

func (p *Page) capture() {
	p.mu.Lock()
	gen := p.generation
	p.mu.Unlock()
	p.worker.Submit(gen, p.canvas.Drawing())
}

func (p *Page) deliver(generation uint64, s *history.PageSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || generation != p.generation {
		slog.Debug("stale snapshot dropped", "page", p.id, "generation", generation)
		return
	}
	p.snapshots.Add(s)
}
