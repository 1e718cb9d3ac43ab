package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inkbook/inkbook/internal/document"
	"github.com/inkbook/inkbook/internal/ink"
	"github.com/inkbook/inkbook/internal/store"
	"github.com/inkbook/inkbook/internal/typeid"
)

var (
	ErrNotFound       = errors.New("notebook not found")
	ErrForbidden      = errors.New("forbidden")
	ErrPageNotFound   = errors.New("page not found")
	ErrInvalidDrawing = errors.New("invalid drawing")
	ErrLive           = errors.New("notebook is open in a live session")
)

const (
	MinPages = 2
	MaxPages = 400
)

// Service manages a user's shelf of notebooks and the stored page drawings.
type Service struct {
	store       store.Store
	defaultSize int
	live        func(notebookID string) bool
}

// NewService returns a library over st. New notebooks without an explicit
// size get defaultPages pages.
func NewService(st store.Store, defaultPages int) *Service {
	return &Service{store: st, defaultSize: defaultPages}
}

// SetLiveCheck installs the check used to refuse drawing uploads while a
// notebook is being edited live.
func (s *Service) SetLiveCheck(live func(notebookID string) bool) {
	s.live = live
}

func (s *Service) Create(ctx context.Context, title, ownerID string, pages int) (*document.Notebook, error) {
	if pages == 0 {
		pages = s.defaultSize
	}
	if pages < MinPages || pages > MaxPages {
		return nil, fmt.Errorf("page count %d outside [%d, %d]", pages, MinPages, MaxPages)
	}
	nb, pageRecords := document.NewNotebook(typeid.NewNotebookID(), strings.TrimSpace(title), ownerID, pages, typeid.NewPageID)
	if err := s.store.CreateNotebook(ctx, nb, pageRecords); err != nil {
		return nil, fmt.Errorf("create notebook: %w", err)
	}
	return &nb, nil
}

func (s *Service) Get(ctx context.Context, notebookID, userID string) (*document.Notebook, error) {
	nb, err := s.store.GetNotebook(ctx, notebookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notebook: %w", err)
	}
	if nb.OwnerID != userID {
		return nil, ErrForbidden
	}
	return nb, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]document.Notebook, error) {
	notebooks, err := s.store.ListNotebooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	if notebooks == nil {
		notebooks = []document.Notebook{}
	}
	return notebooks, nil
}

func (s *Service) Rename(ctx context.Context, notebookID, userID, title string) error {
	if _, err := s.Get(ctx, notebookID, userID); err != nil {
		return err
	}
	return s.store.RenameNotebook(ctx, notebookID, strings.TrimSpace(title))
}

func (s *Service) Delete(ctx context.Context, notebookID, userID string) error {
	if _, err := s.Get(ctx, notebookID, userID); err != nil {
		return err
	}
	if s.isLive(notebookID) {
		return ErrLive
	}
	return s.store.DeleteNotebook(ctx, notebookID)
}

// PageSummary describes a page without its drawing bytes.
type PageSummary struct {
	ID       string `json:"id"`
	Index    int    `json:"index"`
	Strokes  int    `json:"strokes"`
	Stickers int    `json:"stickers"`
	Frozen   bool   `json:"frozen"`
}

func (s *Service) ListPages(ctx context.Context, notebookID, userID string) ([]PageSummary, error) {
	if _, err := s.Get(ctx, notebookID, userID); err != nil {
		return nil, err
	}
	pages, err := s.store.ListPages(ctx, notebookID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	out := make([]PageSummary, len(pages))
	for i, p := range pages {
		out[i] = PageSummary{ID: p.ID, Index: p.Index, Stickers: len(p.Stickers), Frozen: p.Frozen}
		if len(p.Drawing) > 0 {
			if d, err := ink.Unmarshal(p.Drawing); err == nil {
				out[i].Strokes = d.Len()
			}
		}
	}
	return out, nil
}

// PageDrawing returns the stored drawing bytes of the page at index.
func (s *Service) PageDrawing(ctx context.Context, notebookID, userID string, index int) ([]byte, error) {
	p, err := s.page(ctx, notebookID, userID, index)
	if err != nil {
		return nil, err
	}
	return p.Drawing, nil
}

// PutPageDrawing replaces the drawing of the page at index. The payload must
// decode as a drawing.
func (s *Service) PutPageDrawing(ctx context.Context, notebookID, userID string, index int, data []byte) error {
	if _, err := ink.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDrawing, err)
	}
	if s.isLive(notebookID) {
		return ErrLive
	}
	p, err := s.page(ctx, notebookID, userID, index)
	if err != nil {
		return err
	}
	p.Drawing = data
	return s.store.SavePage(ctx, *p)
}

func (s *Service) page(ctx context.Context, notebookID, userID string, index int) (*document.Page, error) {
	if _, err := s.Get(ctx, notebookID, userID); err != nil {
		return nil, err
	}
	pages, err := s.store.ListPages(ctx, notebookID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if index < 0 || index >= len(pages) {
		return nil, ErrPageNotFound
	}
	p := pages[index]
	return &p, nil
}

// Pages loads every page of a notebook for a live session.
func (s *Service) Pages(ctx context.Context, notebookID string) ([]document.Page, error) {
	pages, err := s.store.ListPages(ctx, notebookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load pages: %w", err)
	}
	return pages, nil
}

// SavePages writes back the pages of a live session.
func (s *Service) SavePages(ctx context.Context, pages []document.Page) error {
	for _, p := range pages {
		if err := s.store.SavePage(ctx, p); err != nil {
			return fmt.Errorf("save page %s: %w", p.ID, err)
		}
	}
	return nil
}

// CanOpen reports whether userID may join the live session of notebookID.
func (s *Service) CanOpen(ctx context.Context, notebookID, userID string) error {
	_, err := s.Get(ctx, notebookID, userID)
	return err
}

func (s *Service) isLive(notebookID string) bool {
	return s.live != nil && s.live(notebookID)
}
