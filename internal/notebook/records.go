package notebook

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkbook/inkbook/internal/document"
)

// Open builds a live notebook from stored pages. Pages must be ordered by
// index. A page whose drawing cannot be decoded opens blank and is logged.
func Open(notebookID string, pages []document.Page, opts Options) *Notebook {
	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	n := New(notebookID, ids, opts)
	for i, rec := range pages {
		if err := n.pages[i].Restore(rec); err != nil {
			slog.Warn("page opened blank", "notebook", notebookID, "page", rec.ID, "error", err)
		}
	}
	return n
}

// Restore replaces the page content with a stored record and clears its
// history.
func (p *Page) Restore(rec document.Page) error {
	for _, s := range p.canvas.Stickers() {
		p.canvas.RemoveSticker(s.ID)
	}
	for _, s := range rec.Stickers {
		p.canvas.PlaceSticker(s)
	}
	p.canvas.SetFrozen(rec.Frozen)
	return p.Load(rec.Drawing)
}

// Record captures the page content for storage.
func (p *Page) Record(notebookID string, index int) (document.Page, error) {
	data, err := p.Export()
	if err != nil {
		return document.Page{}, fmt.Errorf("record page %s: %w", p.id, err)
	}
	return document.Page{
		ID:         p.id,
		NotebookID: notebookID,
		Index:      index,
		Drawing:    data,
		Stickers:   p.canvas.Stickers(),
		Frozen:     p.canvas.Frozen(),
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// Records captures the pages at indices. Out of range indices are skipped. A
// page that cannot be captured is left out; the rest are still returned,
// along with the joined errors of the pages that failed.
func (n *Notebook) Records(indices []int) ([]document.Page, error) {
	out := make([]document.Page, 0, len(indices))
	var errs []error
	for _, i := range indices {
		p, ok := n.Page(i)
		if !ok {
			continue
		}
		rec, err := p.Record(n.id, i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rec)
	}
	return out, errors.Join(errs...)
}
