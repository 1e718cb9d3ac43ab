package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/inkbook/inkbook/internal/document"
	"github.com/inkbook/inkbook/internal/history"
	"github.com/inkbook/inkbook/internal/ink"
	"github.com/inkbook/inkbook/internal/notebook"
	"github.com/inkbook/inkbook/internal/tool"
	"github.com/inkbook/inkbook/internal/typeid"
)

var (
	errUnknownType  = errors.New("unknown message type")
	errBadPayload   = errors.New("invalid payload")
	errNoPage       = errors.New("no such page")
	errFrozen       = errors.New("page is frozen")
	errUnknownAsset = errors.New("unknown sticker asset")
	errRoomClosed   = errors.New("notebook closed")
)

// Room is the live session of one notebook. The notebook itself is not
// safe for concurrent use; mu serializes every client touching it.
type Room struct {
	hub        *Hub
	notebookID string
	clients    map[string]*Client // guarded by hub.mu
	presence   *roster

	// relay is observed weakly by the palette; the room keeps it alive.
	relay *toolRelay

	mu        sync.Mutex
	book      *notebook.Notebook
	dirty     map[int]struct{}
	seq       int64
	shown     int
	animating bool
	closed    bool
}

func newRoom(h *Hub, book *notebook.Notebook) *Room {
	r := &Room{
		hub:        h,
		notebookID: book.ID(),
		clients:    make(map[string]*Client),
		presence:   newRoster(),
		book:       book,
		dirty:      make(map[int]struct{}),
		shown:      book.CurrentIndex(),
	}
	r.relay = &toolRelay{room: r}
	tool.Observe(book.Tools(), r.relay, (*toolRelay).forward)
	return r
}

// toolRelay pushes palette changes to every client of a room. Palette
// changes only happen inside apply, so forward runs with room.mu held and
// shares the room's event sequence.
type toolRelay struct {
	room *Room
}

func (t *toolRelay) forward(s tool.State) {
	r := t.room
	for _, msg := range r.emit(nil, TypeToolState, toolStatePayload(s)) {
		r.hub.broadcastToRoom(r.notebookID, msg, "")
	}
}

func toolStatePayload(s tool.State) ToolStatePayload {
	return ToolStatePayload{
		Tool:         s.Tool.String(),
		Color:        ink.HexColor(s.Color),
		Width:        s.Width,
		PartialErase: s.PartialErase,
	}
}

// welcome is everything a joining client needs to draw the current spread.
func (r *Room) welcome(c *Client) []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Message, 0, 6)
	out = r.emit(out, TypeWelcome, WelcomePayload{
		ClientID:    c.ClientID,
		NotebookID:  r.notebookID,
		PageCount:   r.book.PageCount(),
		HistoryMode: r.hub.cfg.Notebook.HistoryMode.String(),
	})
	out = r.emit(out, TypeToolState, toolStatePayload(r.book.Tools().State()))
	out = r.flipMessages(out)
	return r.spreadMessages(out)
}

// handle applies a client request and broadcasts the resulting events.
// Rejected requests are answered to the sender only.
func (r *Room) handle(sender *Client, msg *Message) {
	r.mu.Lock()
	out, err := r.apply(msg)
	r.mu.Unlock()

	if err != nil {
		slog.Debug("request rejected", "type", msg.Type, "client", sender.ClientID, "error", err)
		sender.Send(errorMessage(msg.Type, err.Error()))
		return
	}
	for _, m := range out {
		r.hub.broadcastToRoom(r.notebookID, m, "")
	}
}

func (r *Room) apply(msg *Message) ([]*Message, error) {
	if r.closed {
		return nil, errRoomClosed
	}

	switch msg.Type {
	case TypeStrokeFinish:
		var p StrokeFinishPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		page, err := r.page(p.Page)
		if err != nil {
			return nil, err
		}
		if !page.StrokeFinished(p.Stroke) {
			return nil, errFrozen
		}
		return r.edited(p.Page)

	case TypeStrokeErase:
		var p StrokeErasePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		page, err := r.page(p.Page)
		if err != nil {
			return nil, err
		}
		var n int
		if len(p.Path) > 0 {
			radius := p.Radius
			if radius <= 0 {
				radius = page.Canvas().Eraser().Size
			}
			n = page.ErasePath(p.Path, radius)
		} else {
			n = page.EraseFinished(p.Indices)
		}
		if n == 0 {
			return nil, nil
		}
		return r.edited(p.Page)

	case TypeLassoTransform:
		var p LassoTransformPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		page, err := r.page(p.Page)
		if err != nil {
			return nil, err
		}
		var moved []int
		switch {
		case p.Transform != nil:
			moved, err = page.TransformSelection(p.Lasso, *p.Transform)
		case p.Scale != 0 || p.Rotation != 0:
			scale := p.Scale
			if scale == 0 {
				scale = 1
			}
			moved, err = page.PivotSelection(p.Lasso, scale, p.Rotation)
		default:
			return nil, errBadPayload
		}
		if err != nil {
			return nil, err
		}
		if len(moved) == 0 {
			return nil, nil
		}
		return r.edited(p.Page)

	case TypeStickerPlace:
		var p StickerPlacePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		page, err := r.page(p.Page)
		if err != nil {
			return nil, err
		}
		if p.AssetID == "" || p.Frame.IsEmpty() {
			return nil, errBadPayload
		}
		if exists := r.hub.cfg.AssetExists; exists != nil && !exists(p.AssetID) {
			return nil, errUnknownAsset
		}
		s := history.Sticker{ID: typeid.NewStickerID(), AssetID: p.AssetID, Frame: p.Frame, Rotation: p.Rotation}
		if !page.PlaceSticker(s) {
			return nil, errFrozen
		}
		return r.edited(p.Page)

	case TypeCanvasFreeze:
		var p CanvasFreezePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		page, err := r.page(p.Page)
		if err != nil {
			return nil, err
		}
		if !page.SetFrozen(p.Frozen) {
			return nil, nil
		}
		return r.edited(p.Page)

	case TypeHistoryUndo, TypeHistoryRedo:
		var p PageRefPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		page, err := r.page(p.Page)
		if err != nil {
			return nil, err
		}
		step := page.Undo
		if msg.Type == TypeHistoryRedo {
			step = page.Redo
		}
		if !step() {
			return nil, nil
		}
		return r.edited(p.Page)

	case TypeToolSet:
		var p ToolPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		s, err := applyTool(r.book.Tools().State(), p)
		if err != nil {
			return nil, err
		}
		// The relay broadcasts the new palette.
		r.book.Tools().Set(s)
		return nil, nil

	case TypePanBegin, TypePanChange, TypePanEnd:
		var p PanPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if p.ContentWidth > 0 {
			r.book.SetContentWidth(p.ContentWidth)
		}
		pager := r.book.Pager()
		switch msg.Type {
		case TypePanBegin:
			pager.PanBegan()
		case TypePanChange:
			pager.PanChanged(p.TranslationX)
		default:
			pager.PanEnded(p.TranslationX, p.VelocityX)
			if r.book.Machine().Settling() {
				r.startAnimation()
			}
		}
		return r.flipMessages(nil), nil

	case TypePageGoto:
		var p PageGotoPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if !r.book.GoTo(p.Index) {
			return nil, errNoPage
		}
		return r.flipMessages(nil), nil

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownType, msg.Type)
	}
}

func decode(msg *Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

func applyTool(s tool.State, p ToolPayload) (tool.State, error) {
	if p.Tool != nil {
		t, err := tool.Parse(*p.Tool)
		if err != nil {
			return s, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		s.Tool = t
	}
	if p.Color != nil {
		c, err := ink.ParseHexColor(*p.Color)
		if err != nil {
			return s, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		s.Color = c
	}
	if p.Width != nil {
		if *p.Width <= 0 {
			return s, fmt.Errorf("%w: width must be positive", errBadPayload)
		}
		s.Width = *p.Width
	}
	if p.PartialErase != nil {
		s.PartialErase = *p.PartialErase
	}
	return s, nil
}

func (r *Room) page(index int) (*notebook.Page, error) {
	p, ok := r.book.Page(index)
	if !ok {
		return nil, errNoPage
	}
	return p, nil
}

// edited marks a page for the next save and reports its new state.
func (r *Room) edited(index int) ([]*Message, error) {
	r.dirty[index] = struct{}{}
	return r.pageMessage(nil, index), nil
}

func (r *Room) emit(out []*Message, msgType string, payload any) []*Message {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		slog.Error("marshal event", "type", msgType, "error", err)
		return out
	}
	r.seq++
	msg.Seq = r.seq
	msg.NotebookID = r.notebookID
	return append(out, msg)
}

func (r *Room) pageMessage(out []*Message, index int) []*Message {
	p, ok := r.book.Page(index)
	if !ok {
		return out
	}
	data, err := p.Export()
	if err != nil {
		slog.Error("export page", "notebook", r.notebookID, "page", p.ID(), "error", err)
		return out
	}
	return r.emit(out, TypePageState, PageStatePayload{
		Page:     index,
		PageID:   p.ID(),
		Drawing:  data,
		Stickers: p.Canvas().Stickers(),
		Frozen:   p.Canvas().Frozen(),
		CanUndo:  p.CanUndo(),
		CanRedo:  p.CanRedo(),
	})
}

func (r *Room) spreadMessages(out []*Message) []*Message {
	left, right := r.book.Spread()
	out = r.pageMessage(out, left)
	if right >= 0 {
		out = r.pageMessage(out, right)
	}
	return out
}

// flipMessages reports the page-turn state and the container layout, plus
// the newly visible pages once a flip has landed.
func (r *Room) flipMessages(out []*Message) []*Message {
	st := r.book.FlipState()
	fp := FlipStatePayload{
		Phase:    st.Phase.String(),
		Progress: st.Progress,
		Current:  r.book.CurrentIndex(),
		Layers:   r.book.Scene().Layers(),
	}
	if target, ok := r.book.Machine().Target(); ok {
		fp.Target = &target
	}
	out = r.emit(out, TypeFlipState, fp)

	left, right := r.book.Spread()
	out = r.emit(out, TypeLayoutState, LayoutStatePayload{
		Current: r.book.CurrentIndex(),
		Left:    left,
		Right:   right,
		Layout:  r.book.Layout(),
	})

	if r.book.CurrentIndex() != r.shown {
		r.shown = r.book.CurrentIndex()
		out = r.spreadMessages(out)
	}
	return out
}

// startAnimation drives a settling flip to the end on its own goroutine.
// Must be called with mu held.
func (r *Room) startAnimation() {
	if r.animating {
		return
	}
	r.animating = true
	go r.animate(r.hub.cfg.FrameInterval)
}

func (r *Room) animate(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-r.hub.done:
			return
		case now := <-ticker.C:
			r.mu.Lock()
			if r.closed {
				r.animating = false
				r.mu.Unlock()
				return
			}
			running := r.book.Tick(now.Sub(last))
			last = now
			out := r.flipMessages(nil)
			if !running {
				r.animating = false
			}
			r.mu.Unlock()

			for _, m := range out {
				r.hub.broadcastToRoom(r.notebookID, m, "")
			}
			if !running {
				return
			}
		}
	}
}

// collect snapshots the dirty pages. Captured pages leave the dirty set; a
// page that fails to capture stays dirty and does not hold back the others.
func (r *Room) collect() ([]int, []document.Page, error) {
	if len(r.dirty) == 0 {
		return nil, nil, nil
	}
	recs, err := r.book.Records(slices.Sorted(maps.Keys(r.dirty)))
	indices := make([]int, len(recs))
	for k, rec := range recs {
		indices[k] = rec.Index
		delete(r.dirty, rec.Index)
	}
	return indices, recs, err
}

func (r *Room) save(ctx context.Context) {
	r.mu.Lock()
	indices, recs, err := r.collect()
	r.mu.Unlock()
	r.store(ctx, indices, recs, err)
}

// close saves pending edits and stops the notebook. Requests arriving later
// are rejected.
func (r *Room) close(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	indices, recs, err := r.collect()
	r.book.Close()
	r.mu.Unlock()
	r.store(ctx, indices, recs, err)
}

func (r *Room) store(ctx context.Context, indices []int, recs []document.Page, err error) {
	if err != nil {
		slog.Error("capture pages", "notebook", r.notebookID, "error", err)
	}
	if len(recs) == 0 || r.hub.cfg.Save == nil {
		return
	}
	if err := r.hub.cfg.Save(ctx, recs); err != nil {
		slog.Error("save pages", "notebook", r.notebookID, "pages", indices, "error", err)
		r.mu.Lock()
		if !r.closed {
			for _, i := range indices {
				r.dirty[i] = struct{}{}
			}
		}
		r.mu.Unlock()
		return
	}
	slog.Debug("pages saved", "notebook", r.notebookID, "pages", indices)
}
