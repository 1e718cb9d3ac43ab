package store

import (
	"context"
	"errors"

	"github.com/inkbook/inkbook/internal/document"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Store persists users, notebooks and page contents.
type Store interface {
	CreateUser(ctx context.Context, u document.User) error
	GetUserByID(ctx context.Context, id string) (*document.User, error)
	GetUserByEmail(ctx context.Context, email string) (*document.User, error)

	// CreateNotebook stores the notebook and all of its pages together.
	CreateNotebook(ctx context.Context, nb document.Notebook, pages []document.Page) error
	GetNotebook(ctx context.Context, id string) (*document.Notebook, error)
	ListNotebooks(ctx context.Context, ownerID string) ([]document.Notebook, error)
	RenameNotebook(ctx context.Context, id, title string) error
	DeleteNotebook(ctx context.Context, id string) error

	// ListPages returns the pages of a notebook ordered by index.
	ListPages(ctx context.Context, notebookID string) ([]document.Page, error)
	GetPage(ctx context.Context, id string) (*document.Page, error)
	// SavePage overwrites the content of an existing page.
	SavePage(ctx context.Context, p document.Page) error
}
