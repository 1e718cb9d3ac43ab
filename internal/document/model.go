package document

import (
	"time"

	"github.com/inkbook/inkbook/internal/history"
)

// Notebook is the stored description of a bound book.
type Notebook struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"ownerId"`
	PageCount int       `json:"pageCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is the stored content of one sheet. Drawing holds the encoded ink
// drawing exactly as the canvas exported it.
type Page struct {
	ID         string            `json:"id"`
	NotebookID string            `json:"notebookId"`
	Index      int               `json:"index"`
	Drawing    []byte            `json:"drawing,omitempty"`
	Stickers   []history.Sticker `json:"stickers"`
	Frozen     bool              `json:"frozen"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewNotebook builds a fresh notebook with pageCount blank pages. newPageID
// mints the page ids.
func NewNotebook(id, title, ownerID string, pageCount int, newPageID func() string) (Notebook, []Page) {
	now := time.Now().UTC()
	nb := Notebook{
		ID:        id,
		Title:     title,
		OwnerID:   ownerID,
		PageCount: pageCount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	pages := make([]Page, pageCount)
	for i := range pages {
		pages[i] = Page{
			ID:         newPageID(),
			NotebookID: id,
			Index:      i,
			Stickers:   []history.Sticker{},
			UpdatedAt:  now,
		}
	}
	return nb, pages
}
