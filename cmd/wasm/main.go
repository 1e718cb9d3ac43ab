//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"
	"time"

	"github.com/inkbook/inkbook/internal/ink"
	"github.com/inkbook/inkbook/internal/notebook"
	"github.com/inkbook/inkbook/internal/tool"
	"github.com/inkbook/inkbook/internal/typeid"
)

var book *notebook.Notebook

var (
	errNoPage     = errors.New("no such page")
	errMissingArg = errors.New("missing argument")
)

func main() {
	book = newBook(24)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → notebook) ---
	api.Set("openNotebook", js.FuncOf(openNotebook))
	api.Set("strokeFinished", js.FuncOf(strokeFinished))
	api.Set("eraseFinished", js.FuncOf(eraseFinished))
	api.Set("erasePath", js.FuncOf(erasePath))
	api.Set("transformSelection", js.FuncOf(transformSelection))
	api.Set("pivotSelection", js.FuncOf(pivotSelection))
	api.Set("beginDrag", js.FuncOf(beginDrag))
	api.Set("dragTo", js.FuncOf(dragTo))
	api.Set("endDrag", js.FuncOf(endDrag))
	api.Set("setFrozen", js.FuncOf(setFrozen))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("setColor", js.FuncOf(setColor))
	api.Set("setWidth", js.FuncOf(setWidth))
	api.Set("setPartialErase", js.FuncOf(setPartialErase))
	api.Set("setContentWidth", js.FuncOf(setContentWidth))
	api.Set("panBegan", js.FuncOf(panBegan))
	api.Set("panChanged", js.FuncOf(panChanged))
	api.Set("panEnded", js.FuncOf(panEnded))
	api.Set("goToPage", js.FuncOf(goToPage))
	api.Set("loadPage", js.FuncOf(loadPage))
	api.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← notebook) ---
	api.Set("exportPage", js.FuncOf(exportPage))
	api.Set("canUndo", js.FuncOf(canUndo))
	api.Set("canRedo", js.FuncOf(canRedo))
	api.Set("getSpread", js.FuncOf(getSpread))
	api.Set("getLayout", js.FuncOf(getLayout))
	api.Set("getFlipState", js.FuncOf(getFlipState))
	api.Set("getTool", js.FuncOf(getTool))

	js.Global().Set("inkbook", api)
	js.Global().Set("inkbookWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func newBook(pages int) *notebook.Notebook {
	ids := make([]string, pages)
	for i := range ids {
		ids[i] = typeid.NewPageID()
	}
	return notebook.New(typeid.NewNotebookID(), ids, notebook.DefaultOptions())
}

func ok() any { return js.ValueOf(map[string]any{"ok": true}) }

func fail(err error) any { return js.ValueOf(map[string]any{"error": err.Error()}) }

func page(args []js.Value) (*notebook.Page, error) {
	if len(args) < 1 {
		return nil, errNoPage
	}
	p, found := book.Page(args[0].Int())
	if !found {
		return nil, errNoPage
	}
	return p, nil
}

func jsonArg(args []js.Value, i int, v any) error {
	if len(args) <= i {
		return errMissingArg
	}
	return json.Unmarshal([]byte(args[i].String()), v)
}

func marshal(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func openNotebook(this js.Value, args []js.Value) any {
	pages := 24
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		pages = max(2, args[0].Int())
	}
	book.Close()
	book = newBook(pages)
	return ok()
}

func strokeFinished(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	var s ink.Stroke
	if err := jsonArg(args, 1, &s); err != nil {
		return fail(err)
	}
	return js.ValueOf(p.StrokeFinished(s))
}

func eraseFinished(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	var indices []int
	if err := jsonArg(args, 1, &indices); err != nil {
		return fail(err)
	}
	return js.ValueOf(p.EraseFinished(indices))
}

func erasePath(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	var path []ink.Point
	if err := jsonArg(args, 1, &path); err != nil {
		return fail(err)
	}
	radius := p.Canvas().Eraser().Size
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		radius = args[2].Float()
	}
	return js.ValueOf(p.ErasePath(path, radius))
}

func transformSelection(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	var lasso ink.Lasso
	if err := jsonArg(args, 1, &lasso); err != nil {
		return fail(err)
	}
	var m ink.Matrix2D
	if err := jsonArg(args, 2, &m); err != nil {
		return fail(err)
	}
	moved, err := p.TransformSelection(lasso, m)
	if err != nil {
		return fail(err)
	}
	return marshal(moved)
}

// pivotSelection(page, lasso, scale, radians) scales and rotates the
// selection around its own center.
func pivotSelection(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	var lasso ink.Lasso
	if err := jsonArg(args, 1, &lasso); err != nil {
		return fail(err)
	}
	if len(args) < 4 {
		return fail(errMissingArg)
	}
	moved, err := p.PivotSelection(lasso, args[2].Float(), args[3].Float())
	if err != nil {
		return fail(err)
	}
	return marshal(moved)
}

// beginDrag(page, lasso) picks up the selection for a live move.
func beginDrag(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	var lasso ink.Lasso
	if err := jsonArg(args, 1, &lasso); err != nil {
		return fail(err)
	}
	return marshal(p.BeginDrag(lasso))
}

// dragTo(page, matrix) moves the picked up strokes, relative to where the
// drag began.
func dragTo(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	var m ink.Matrix2D
	if err := jsonArg(args, 1, &m); err != nil {
		return fail(err)
	}
	if err := p.DragTo(m); err != nil {
		return fail(err)
	}
	return js.ValueOf(true)
}

func endDrag(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(p.EndDrag())
}

func setFrozen(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil || len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(p.SetFrozen(args[1].Bool()))
}

func undo(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(p.Undo())
}

func redo(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(p.Redo())
}

func setTool(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	t, err := tool.Parse(args[0].String())
	if err != nil {
		return fail(err)
	}
	book.Tools().SetTool(t)
	return ok()
}

func setColor(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	c, err := ink.ParseHexColor(args[0].String())
	if err != nil {
		return fail(err)
	}
	book.Tools().SetColor(c)
	return ok()
}

func setWidth(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Float() <= 0 {
		return nil
	}
	book.Tools().SetWidth(args[0].Float())
	return ok()
}

func setPartialErase(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	book.Tools().SetPartialErase(args[0].Bool())
	return ok()
}

func setContentWidth(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	book.SetContentWidth(args[0].Float())
	return nil
}

func panBegan(this js.Value, args []js.Value) any {
	book.Pager().PanBegan()
	return nil
}

func panChanged(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	book.Pager().PanChanged(args[0].Float())
	return nil
}

func panEnded(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(book.Pager().PanEnded(args[0].Float(), args[1].Float()))
}

func goToPage(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(book.GoTo(args[0].Int()))
}

func loadPage(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	if len(args) < 2 {
		return fail(errors.New("missing drawing"))
	}
	if err := p.Load([]byte(args[1].String())); err != nil {
		return fail(err)
	}
	return ok()
}

// tick advances a settling page turn by dt milliseconds and reports whether
// another frame is needed.
func tick(this js.Value, args []js.Value) any {
	dt := 16 * time.Millisecond
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		dt = time.Duration(args[0].Float() * float64(time.Millisecond))
	}
	return js.ValueOf(book.Tick(dt))
}

// --- Query Handlers ---

func exportPage(this js.Value, args []js.Value) any {
	p, err := page(args)
	if err != nil {
		return fail(err)
	}
	data, err := p.Export()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

func canUndo(this js.Value, args []js.Value) any {
	p, err := page(args)
	return js.ValueOf(err == nil && p.CanUndo())
}

func canRedo(this js.Value, args []js.Value) any {
	p, err := page(args)
	return js.ValueOf(err == nil && p.CanRedo())
}

func getSpread(this js.Value, args []js.Value) any {
	left, right := book.Spread()
	return js.ValueOf([]any{left, right})
}

func getLayout(this js.Value, args []js.Value) any {
	return marshal(book.Layout())
}

func getFlipState(this js.Value, args []js.Value) any {
	_, progress := book.FlipProgress()
	return marshal(map[string]any{
		"state":    book.FlipState(),
		"progress": progress,
		"layers":   book.Scene().Layers(),
	})
}

func getTool(this js.Value, args []js.Value) any {
	s := book.Tools().State()
	return js.ValueOf(map[string]any{
		"tool":         s.Tool.String(),
		"color":        ink.HexColor(s.Color),
		"width":        s.Width,
		"partialErase": s.PartialErase,
	})
}
