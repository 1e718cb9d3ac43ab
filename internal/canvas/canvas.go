package canvas

import (
	"fmt"
	"image/color"
	"log/slog"
	"slices"
	"sync"

	"github.com/inkbook/inkbook/internal/history"
	"github.com/inkbook/inkbook/internal/ink"
	"github.com/inkbook/inkbook/internal/tool"
)

// Mode is what a touch on the canvas does.
type Mode int

const (
	ModeDraw Mode = iota
	ModeErase
	ModeLasso
)

func (m Mode) String() string {
	switch m {
	case ModeDraw:
		return "draw"
	case ModeErase:
		return "erase"
	case ModeLasso:
		return "lasso"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Brush is the ink laid down in ModeDraw.
type Brush struct {
	Kind  ink.Kind
	Color color.NRGBA
	Width float64
}

// Eraser is the eraser nib used in ModeErase.
type Eraser struct {
	Partial bool
	Size    float64
}

// DefaultEraserSize is the eraser radius in points.
const DefaultEraserSize = 10

// Canvas is one page's drawing surface: ink, stickers, a frozen flag and
// the active tool configuration. It implements the history surfaces.
type Canvas struct {
	mu       sync.RWMutex
	drawing  ink.Drawing
	stickers []history.Sticker
	frozen   bool

	mode   Mode
	brush  Brush
	eraser Eraser
}

func New() *Canvas {
	def := tool.DefaultState()
	return &Canvas{
		brush:  Brush{Kind: ink.KindPen, Color: def.Color, Width: def.Width},
		eraser: Eraser{Size: DefaultEraserSize},
	}
}

func (c *Canvas) Drawing() ink.Drawing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.drawing
}

func (c *Canvas) SetDrawing(d ink.Drawing) {
	c.mu.Lock()
	c.drawing = d
	c.mu.Unlock()
}

// PlaceSticker adds s on top of the sticker layer. A sticker with the same
// id is replaced in place.
func (c *Canvas) PlaceSticker(s history.Sticker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.stickerIndex(s.ID); i >= 0 {
		c.stickers[i] = s
		return
	}
	c.stickers = append(c.stickers, s)
}

// Sticker returns the placed sticker with id.
func (c *Canvas) Sticker(id string) (history.Sticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.stickerIndex(id); i >= 0 {
		return c.stickers[i], true
	}
	return history.Sticker{}, false
}

func (c *Canvas) RemoveSticker(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.stickerIndex(id)
	if i < 0 {
		return false
	}
	c.stickers = slices.Delete(c.stickers, i, i+1)
	return true
}

func (c *Canvas) Stickers() []history.Sticker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.stickers)
}

func (c *Canvas) stickerIndex(id string) int {
	return slices.IndexFunc(c.stickers, func(s history.Sticker) bool { return s.ID == id })
}

func (c *Canvas) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

func (c *Canvas) SetFrozen(frozen bool) {
	c.mu.Lock()
	c.frozen = frozen
	c.mu.Unlock()
}

// SetBrush switches the canvas to drawing with the given ink.
func (c *Canvas) SetBrush(col color.NRGBA, width float64, kind ink.Kind) {
	c.mu.Lock()
	c.mode = ModeDraw
	c.brush = Brush{Kind: kind, Color: col, Width: width}
	c.mu.Unlock()
}

// SetEraser switches the canvas to erasing. A non-positive size keeps the
// current nib.
func (c *Canvas) SetEraser(partial bool, size float64) {
	c.mu.Lock()
	c.mode = ModeErase
	c.eraser.Partial = partial
	if size > 0 {
		c.eraser.Size = size
	}
	c.mu.Unlock()
}

func (c *Canvas) SetLasso() {
	c.mu.Lock()
	c.mode = ModeLasso
	c.mu.Unlock()
}

func (c *Canvas) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Canvas) Brush() Brush {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.brush
}

func (c *Canvas) Eraser() Eraser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eraser
}

// Follow keeps the canvas tool in sync with b. The broadcaster holds the
// canvas weakly, so following does not keep a discarded page alive.
func (c *Canvas) Follow(b *tool.Broadcaster) {
	tool.Observe(b, c, (*Canvas).applyTool)
}

func (c *Canvas) applyTool(s tool.State) {
	switch s.Tool {
	case tool.Eraser:
		c.SetEraser(s.PartialErase, 0)
	case tool.Lasso:
		c.SetLasso()
	default:
		kind, _ := s.Tool.InkKind()
		c.SetBrush(s.Color, s.Width, kind)
	}
}

// Export encodes the drawing.
func (c *Canvas) Export() ([]byte, error) {
	data, err := ink.Marshal(c.Drawing())
	if err != nil {
		return nil, fmt.Errorf("export drawing: %w", err)
	}
	return data, nil
}

// Load replaces the drawing with the decoded data. Empty data is an empty
// drawing. Undecodable data leaves the canvas empty and usable; the error is
// still returned so callers can report it.
func (c *Canvas) Load(data []byte) error {
	if len(data) == 0 {
		c.SetDrawing(ink.Drawing{})
		return nil
	}
	d, err := ink.Unmarshal(data)
	if err != nil {
		slog.Warn("drawing decode failed, starting blank", "bytes", len(data), "error", err)
		c.SetDrawing(ink.Drawing{})
		return fmt.Errorf("load drawing: %w", err)
	}
	c.SetDrawing(d)
	return nil
}
