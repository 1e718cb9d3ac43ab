package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/inkbook/inkbook/internal/document"
	"github.com/inkbook/inkbook/internal/flip"
	"github.com/inkbook/inkbook/internal/ink"
	"github.com/inkbook/inkbook/internal/notebook"
)

type memBooks struct {
	mu    sync.Mutex
	books map[string][]document.Page
	saved chan []document.Page
}

func newMemBooks(id string, pages int) *memBooks {
	n := 0
	_, recs := document.NewNotebook(id, "test", "user_1", pages, func() string {
		n++
		return fmt.Sprintf("page_%d", n)
	})
	return &memBooks{
		books: map[string][]document.Page{id: recs},
		saved: make(chan []document.Page, 16),
	}
}

func (m *memBooks) load(_ context.Context, id string) ([]document.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.books[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return pages, nil
}

func (m *memBooks) save(_ context.Context, pages []document.Page) error {
	m.saved <- pages
	return nil
}

func startHub(t *testing.T, books *memBooks, cfg HubConfig) *Hub {
	t.Helper()
	cfg.Load = books.load
	cfg.Save = books.save
	if cfg.Notebook.ContentWidth == 0 {
		cfg.Notebook = notebook.DefaultOptions()
	}
	h := NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func join(t *testing.T, h *Hub, notebookID, clientID string) *Client {
	t.Helper()
	c := NewClient(h, nil, "user_1", "Ann", notebookID, clientID)
	h.Register(c)
	expect(t, c, TypeWelcome)
	expect(t, c, TypePresenceState)
	return c
}

// expect reads from c until a message of msgType arrives.
func expect(t *testing.T, c *Client, msgType string) *Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				t.Fatalf("client closed while waiting for %s", msgType)
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg.Type == msgType {
				return &msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", msgType)
		}
	}
}

func request(t *testing.T, h *Hub, c *Client, msgType string, payload any) {
	t.Helper()
	msg, err := newMessage(msgType, payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	msg.ClientID = c.ClientID
	h.handleMessage(c, msg)
}

func testStroke() ink.Stroke {
	return ink.NewStroke(ink.KindPen, color.NRGBA{A: 255}, 2, []ink.Point{{X: 1, Y: 1}, {X: 20, Y: 20}})
}

func TestJoinSendsCurrentSpread(t *testing.T) {
	books := newMemBooks("nb_1", 4)
	h := startHub(t, books, HubConfig{})

	c := NewClient(h, nil, "user_1", "Ann", "nb_1", "c1")
	h.Register(c)

	var welcome WelcomePayload
	json.Unmarshal(expect(t, c, TypeWelcome).Payload, &welcome)
	if welcome.PageCount != 4 || welcome.ClientID != "c1" || welcome.HistoryMode != "commands" {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
	for want := range 2 {
		var ps PageStatePayload
		json.Unmarshal(expect(t, c, TypePageState).Payload, &ps)
		if ps.Page != want {
			t.Fatalf("expected page %d of the spread, got %d", want, ps.Page)
		}
	}
	if !h.IsOpen("nb_1") {
		t.Fatalf("room should be open while a client is joined")
	}
}

func TestStrokeIsBroadcastAndSavedOnLeave(t *testing.T) {
	books := newMemBooks("nb_1", 4)
	h := startHub(t, books, HubConfig{})

	a := join(t, h, "nb_1", "a")
	b := join(t, h, "nb_1", "b")

	request(t, h, a, TypeStrokeFinish, StrokeFinishPayload{Page: 1, Stroke: testStroke()})

	var ps PageStatePayload
	json.Unmarshal(expect(t, b, TypePageState).Payload, &ps)
	d, err := ink.Unmarshal(ps.Drawing)
	if err != nil {
		t.Fatalf("drawing: %v", err)
	}
	if ps.Page != 1 || d.Len() != 1 || !ps.CanUndo {
		t.Fatalf("unexpected page state %+v", ps)
	}

	h.Unregister(a)
	h.Unregister(b)

	select {
	case pages := <-books.saved:
		if len(pages) != 1 || pages[0].Index != 1 || pages[0].ID != "page_2" {
			t.Fatalf("expected page 1 saved, got %+v", pages)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pages not saved when the last client left")
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.IsOpen("nb_1") {
		if time.Now().After(deadline) {
			t.Fatalf("room still open")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFrozenPageRejectsStroke(t *testing.T) {
	h := startHub(t, newMemBooks("nb_1", 2), HubConfig{})
	c := join(t, h, "nb_1", "c")

	request(t, h, c, TypeCanvasFreeze, CanvasFreezePayload{Page: 0, Frozen: true})
	var ps PageStatePayload
	json.Unmarshal(expect(t, c, TypePageState).Payload, &ps)
	if !ps.Frozen {
		t.Fatalf("page should report frozen")
	}

	request(t, h, c, TypeStrokeFinish, StrokeFinishPayload{Page: 0, Stroke: testStroke()})
	var e ErrorPayload
	json.Unmarshal(expect(t, c, TypeError).Payload, &e)
	if e.Request != TypeStrokeFinish || e.Reason != errFrozen.Error() {
		t.Fatalf("unexpected error %+v", e)
	}
}

func TestUndoRedoOverTheWire(t *testing.T) {
	h := startHub(t, newMemBooks("nb_1", 2), HubConfig{})
	c := join(t, h, "nb_1", "c")

	request(t, h, c, TypeStrokeFinish, StrokeFinishPayload{Page: 0, Stroke: testStroke()})
	expect(t, c, TypePageState)

	request(t, h, c, TypeHistoryUndo, PageRefPayload{Page: 0})
	var ps PageStatePayload
	json.Unmarshal(expect(t, c, TypePageState).Payload, &ps)
	if ps.CanUndo || !ps.CanRedo {
		t.Fatalf("after undo: %+v", ps)
	}

	request(t, h, c, TypeHistoryRedo, PageRefPayload{Page: 0})
	json.Unmarshal(expect(t, c, TypePageState).Payload, &ps)
	if d, _ := ink.Unmarshal(ps.Drawing); d.Len() != 1 {
		t.Fatalf("redo should bring the stroke back")
	}
}

func TestToolSetBroadcastsPalette(t *testing.T) {
	h := startHub(t, newMemBooks("nb_1", 2), HubConfig{})
	c := join(t, h, "nb_1", "c")

	toolName, col := "marker", "#ff0000"
	request(t, h, c, TypeToolSet, ToolPayload{Tool: &toolName, Color: &col})
	var ts ToolStatePayload
	json.Unmarshal(expect(t, c, TypeToolState).Payload, &ts)
	if ts.Tool != "marker" || ts.Color != "#ff0000ff" {
		t.Fatalf("unexpected palette %+v", ts)
	}

	width := -1.0
	request(t, h, c, TypeToolSet, ToolPayload{Width: &width})
	var e ErrorPayload
	json.Unmarshal(expect(t, c, TypeError).Payload, &e)
	if e.Request != TypeToolSet {
		t.Fatalf("negative width should be rejected, got %+v", e)
	}
}

func TestStickerRequiresKnownAsset(t *testing.T) {
	cfg := HubConfig{AssetExists: func(id string) bool { return id == "asset_ok" }}
	h := startHub(t, newMemBooks("nb_1", 2), cfg)
	c := join(t, h, "nb_1", "c")

	frame := ink.Rect{Width: 10, Height: 10}
	request(t, h, c, TypeStickerPlace, StickerPlacePayload{Page: 1, AssetID: "asset_missing", Frame: frame})
	expect(t, c, TypeError)

	request(t, h, c, TypeStickerPlace, StickerPlacePayload{Page: 1, AssetID: "asset_ok", Frame: frame})
	var ps PageStatePayload
	json.Unmarshal(expect(t, c, TypePageState).Payload, &ps)
	if len(ps.Stickers) != 1 || ps.Stickers[0].ID == "" {
		t.Fatalf("sticker not placed: %+v", ps.Stickers)
	}
}

func TestPanFlipAnimatesToNextSpread(t *testing.T) {
	opts := notebook.DefaultOptions()
	opts.ContentWidth = 100
	opts.Flip = flip.Config{CompleteDuration: 20 * time.Millisecond, CompleteCurve: flip.EaseLinear}
	h := startHub(t, newMemBooks("nb_1", 6), HubConfig{Notebook: opts, FrameInterval: 2 * time.Millisecond})
	c := join(t, h, "nb_1", "c")

	request(t, h, c, TypePanBegin, PanPayload{})
	expect(t, c, TypeFlipState)
	request(t, h, c, TypePanChange, PanPayload{TranslationX: -30})
	var fs FlipStatePayload
	json.Unmarshal(expect(t, c, TypeFlipState).Payload, &fs)
	if fs.Phase != flip.FlippingToNext.String() {
		t.Fatalf("pan left should flip forward, got %+v", fs)
	}

	request(t, h, c, TypePanEnd, PanPayload{TranslationX: -70})
	timeout := time.After(2 * time.Second)
	for {
		var ls LayoutStatePayload
		json.Unmarshal(expect(t, c, TypeLayoutState).Payload, &ls)
		if ls.Current == 2 {
			break
		}
		select {
		case <-timeout:
			t.Fatalf("flip never landed")
		default:
		}
	}
	var ps PageStatePayload
	json.Unmarshal(expect(t, c, TypePageState).Payload, &ps)
	if ps.Page != 2 {
		t.Fatalf("expected the new spread's pages, got page %d", ps.Page)
	}
}

func TestPageGotoOutOfRange(t *testing.T) {
	h := startHub(t, newMemBooks("nb_1", 4), HubConfig{})
	c := join(t, h, "nb_1", "c")

	request(t, h, c, TypePageGoto, PageGotoPayload{Index: 9})
	expect(t, c, TypeError)

	request(t, h, c, TypePageGoto, PageGotoPayload{Index: 3})
	var ls LayoutStatePayload
	json.Unmarshal(expect(t, c, TypeLayoutState).Payload, &ls)
	if ls.Current != 2 || ls.Left != 2 || ls.Right != 3 {
		t.Fatalf("unexpected spread %+v", ls)
	}
}

func TestUnknownNotebookClosesClient(t *testing.T) {
	h := startHub(t, newMemBooks("nb_1", 2), HubConfig{})
	c := NewClient(h, nil, "user_1", "Ann", "nb_missing", "c")
	h.Register(c)

	expect(t, c, TypeError)
	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatalf("client should be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("client left open")
	}
	if h.IsOpen("nb_missing") {
		t.Fatalf("failed notebook should not have a room")
	}
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	c := NewClient(nil, nil, "u", "", "nb", "c")
	c.close()
	c.close()
	c.Send(&Message{Type: TypeWelcome})
}

func TestPresenceRelaysSessionName(t *testing.T) {
	books := newMemBooks("nb_1", 4)
	h := startHub(t, books, HubConfig{})
	a := join(t, h, "nb_1", "a")
	b := join(t, h, "nb_1", "b")
	expect(t, a, TypePresenceJoin)

	page := 2
	request(t, h, b, TypePresenceUpdate, PresencePayload{
		Cursor:      &CursorPos{X: 10, Y: 20},
		Page:        &page,
		DisplayName: "spoofed",
	})
	msg := expect(t, a, TypePresenceUpdate)
	var p PresencePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.DisplayName != "Ann" || p.Page == nil || *p.Page != 2 || msg.ClientID != "b" {
		t.Fatalf("unexpected presence %+v from %q", p, msg.ClientID)
	}

	h.Unregister(b)
	leave := expect(t, a, TypePresenceLeave)
	if leave.ClientID != "b" {
		t.Fatalf("leave from %q", leave.ClientID)
	}
}

func TestLassoOverflowIsRejectedAndPageStillSaves(t *testing.T) {
	books := newMemBooks("nb_1", 4)
	h := startHub(t, books, HubConfig{})
	c := join(t, h, "nb_1", "c")

	// Wide enough to still hold the stroke once it has been stretched.
	lasso := ink.Lasso{{X: -1, Y: -1}, {X: 1e201, Y: -1}, {X: 1e201, Y: 30}, {X: -1, Y: 30}}
	huge := ink.Scale(1e200, 1)
	request(t, h, c, TypeStrokeFinish, StrokeFinishPayload{Page: 1, Stroke: testStroke()})
	expect(t, c, TypePageState)
	request(t, h, c, TypeLassoTransform, LassoTransformPayload{Page: 1, Lasso: lasso, Transform: &huge})
	expect(t, c, TypePageState)

	// A second pass would overflow the stroke transform.
	request(t, h, c, TypeLassoTransform, LassoTransformPayload{Page: 1, Lasso: lasso, Transform: &huge})
	var e ErrorPayload
	json.Unmarshal(expect(t, c, TypeError).Payload, &e)
	if e.Request != TypeLassoTransform {
		t.Fatalf("unexpected error %+v", e)
	}

	zero := ink.Matrix2D{}
	request(t, h, c, TypeLassoTransform, LassoTransformPayload{Page: 1, Lasso: lasso, Transform: &zero})
	expect(t, c, TypeError)

	request(t, h, c, TypeStrokeFinish, StrokeFinishPayload{Page: 0, Stroke: testStroke()})
	expect(t, c, TypePageState)

	h.Unregister(c)
	select {
	case pages := <-books.saved:
		if len(pages) != 2 {
			t.Fatalf("expected both edited pages saved, got %d", len(pages))
		}
		for _, p := range pages {
			if _, err := ink.Unmarshal(p.Drawing); err != nil {
				t.Fatalf("page %d: %v", p.Index, err)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pages not saved")
	}
}

func TestLassoPivotOverTheWire(t *testing.T) {
	h := startHub(t, newMemBooks("nb_1", 2), HubConfig{})
	c := join(t, h, "nb_1", "c")

	request(t, h, c, TypeStrokeFinish, StrokeFinishPayload{Page: 0, Stroke: testStroke()})
	expect(t, c, TypePageState)

	lasso := ink.Lasso{{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 30}, {X: 0, Y: 30}}
	request(t, h, c, TypeLassoTransform, LassoTransformPayload{Page: 0, Lasso: lasso, Scale: 0.5})
	var ps PageStatePayload
	json.Unmarshal(expect(t, c, TypePageState).Payload, &ps)
	d, err := ink.Unmarshal(ps.Drawing)
	if err != nil {
		t.Fatalf("drawing: %v", err)
	}
	if got := d.Stroke(0).Transform; got[0] != 0.5 || got[3] != 0.5 {
		t.Fatalf("expected half scale, got %v", got)
	}

	request(t, h, c, TypeLassoTransform, LassoTransformPayload{Page: 0, Lasso: lasso})
	expect(t, c, TypeError)
}

func TestToolStateIsSequenced(t *testing.T) {
	h := startHub(t, newMemBooks("nb_1", 2), HubConfig{})
	c := join(t, h, "nb_1", "c")

	request(t, h, c, TypeStrokeFinish, StrokeFinishPayload{Page: 0, Stroke: testStroke()})
	page := expect(t, c, TypePageState)

	toolName := "pencil"
	request(t, h, c, TypeToolSet, ToolPayload{Tool: &toolName})
	ts := expect(t, c, TypeToolState)
	if ts.Seq <= page.Seq {
		t.Fatalf("tool.state seq %d not after page.state seq %d", ts.Seq, page.Seq)
	}
	if ts.NotebookID != "nb_1" {
		t.Fatalf("tool.state not stamped with notebook, got %q", ts.NotebookID)
	}
}
