package notebook

import (
	"log/slog"
	"time"

	"github.com/inkbook/inkbook/internal/flip"
	"github.com/inkbook/inkbook/internal/layout"
	"github.com/inkbook/inkbook/internal/tool"
)

// Options configures a notebook session.
type Options struct {
	HistoryMode  HistoryMode
	MaxSnapshots int
	BaseOffset   float64
	ContentWidth float64
	Flip         flip.Config
	Thresholds   flip.Thresholds
}

func DefaultOptions() Options {
	return Options{
		HistoryMode:  HistoryCommands,
		MaxSnapshots: 50,
		BaseOffset:   4,
		ContentWidth: 768,
		Flip:         flip.DefaultConfig(),
		Thresholds:   flip.DefaultThresholds(),
	}
}

// Notebook is a live session over a bound book: its pages, the shared tool
// palette, and the page-turn machinery. Pages are shown two at a time; the
// spread is identified by its left page index.
//
// A Notebook is not safe for concurrent use. Callers serialize access the
// way a UI thread would.
type Notebook struct {
	id    string
	pages []*Page
	tools *tool.Broadcaster

	current      int
	contentWidth float64

	scene   *flip.Scene
	machine *flip.Machine
	engine  layout.Engine
	pager   *layout.Pager

	flipDirection flip.Direction
	flipProgress  float64
}

// New opens a notebook whose pages carry the given ids, in order.
func New(id string, pageIDs []string, opts Options) *Notebook {
	n := &Notebook{
		id:           id,
		tools:        tool.NewBroadcaster(tool.DefaultState()),
		contentWidth: opts.ContentWidth,
		scene:        flip.NewScene(len(pageIDs)),
	}
	for _, pid := range pageIDs {
		p := NewPage(pid, opts.HistoryMode, opts.MaxSnapshots)
		p.Canvas().Follow(n.tools)
		n.pages = append(n.pages, p)
	}
	n.engine = layout.Engine{ContainerCount: containerCount(len(pageIDs)), BaseOffset: opts.BaseOffset}
	n.machine = flip.NewMachine(n, n.scene, opts.Flip)
	n.pager = layout.NewPager(n, n.machine, opts.Thresholds)
	return n
}

func containerCount(pages int) int {
	return (pages + 1) / 2
}

func (n *Notebook) ID() string                  { return n.id }
func (n *Notebook) Tools() *tool.Broadcaster    { return n.tools }
func (n *Notebook) Machine() *flip.Machine      { return n.machine }
func (n *Notebook) Pager() *layout.Pager        { return n.pager }
func (n *Notebook) Scene() *flip.Scene          { return n.scene }
func (n *Notebook) FlipState() flip.State       { return n.machine.State() }
func (n *Notebook) Pages() []*Page              { return n.pages }
func (n *Notebook) SetContentWidth(w float64)   { n.contentWidth = w }
func (n *Notebook) LayoutEngine() layout.Engine { return n.engine }

// Page returns the page at index.
func (n *Notebook) Page(index int) (*Page, bool) {
	if index < 0 || index >= len(n.pages) {
		return nil, false
	}
	return n.pages[index], true
}

// PageByID finds a page by id.
func (n *Notebook) PageByID(id string) (*Page, int, bool) {
	for i, p := range n.pages {
		if p.ID() == id {
			return p, i, true
		}
	}
	return nil, -1, false
}

// Spread returns the pages visible at the current index. right is -1 when
// the left page is the last one.
func (n *Notebook) Spread() (left, right int) {
	left, right = n.current, n.current+1
	if right >= len(n.pages) {
		right = -1
	}
	return left, right
}

// Layout returns the container geometry for the current spread, blended
// toward the target spread while a page is turning.
func (n *Notebook) Layout() layout.Layout {
	base := n.engine.Compute(n.current)
	target, ok := n.machine.Target()
	if !ok {
		return base
	}
	return layout.Interpolate(base, n.engine.Compute(target), n.flipProgress)
}

// Tick advances a running page-turn animation and reports whether one is
// still running.
func (n *Notebook) Tick(dt time.Duration) bool {
	return n.machine.Tick(dt)
}

// Close tears down the flip and stops every page worker.
func (n *Notebook) Close() {
	n.machine.Cleanup()
	for _, p := range n.pages {
		p.Close()
	}
}

// PageCount implements flip.Host.
func (n *Notebook) PageCount() int { return len(n.pages) }

// CurrentIndex implements flip.Host.
func (n *Notebook) CurrentIndex() int { return n.current }

// GoToPagePair shows the spread containing index. Out of range indices are
// ignored.
func (n *Notebook) GoToPagePair(index int) {
	if index < 0 || index >= len(n.pages) {
		slog.Debug("go to page pair ignored", "notebook", n.id, "index", index, "pages", len(n.pages))
		return
	}
	n.current = index - index%2
	n.flipProgress = 0
}

// GoTo jumps straight to the spread containing index, abandoning any page
// turn in flight.
func (n *Notebook) GoTo(index int) bool {
	if index < 0 || index >= len(n.pages) {
		return false
	}
	n.machine.Cleanup()
	n.GoToPagePair(index)
	return true
}

// UpdateProgressOffset implements flip.Host.
func (n *Notebook) UpdateProgressOffset(direction flip.Direction, progress float64) {
	n.flipDirection = direction
	n.flipProgress = progress
}

// FlipProgress is the last progress reported by the flip machine.
func (n *Notebook) FlipProgress() (flip.Direction, float64) {
	return n.flipDirection, n.flipProgress
}

// CurrentContentWidth implements layout.Host.
func (n *Notebook) CurrentContentWidth() float64 { return n.contentWidth }
