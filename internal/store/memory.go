package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/inkbook/inkbook/internal/document"
)

// Memory is a Store kept in process memory. It is used when no database is
// configured and in tests.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]document.User
	notebooks map[string]document.Notebook
	pages     map[string]document.Page
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]document.User),
		notebooks: make(map[string]document.Notebook),
		pages:     make(map[string]document.Page),
	}
}

func (m *Memory) CreateUser(_ context.Context, u document.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return ErrConflict
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (*document.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*document.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateNotebook(_ context.Context, nb document.Notebook, pages []document.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notebooks[nb.ID]; ok {
		return ErrConflict
	}
	for _, p := range pages {
		if _, ok := m.pages[p.ID]; ok {
			return ErrConflict
		}
	}
	m.notebooks[nb.ID] = nb
	for _, p := range pages {
		m.pages[p.ID] = clonePage(p)
	}
	return nil
}

func (m *Memory) GetNotebook(_ context.Context, id string) (*document.Notebook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nb, ok := m.notebooks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &nb, nil
}

func (m *Memory) ListNotebooks(_ context.Context, ownerID string) ([]document.Notebook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []document.Notebook
	for _, nb := range m.notebooks {
		if nb.OwnerID == ownerID {
			out = append(out, nb)
		}
	}
	slices.SortFunc(out, func(a, b document.Notebook) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (m *Memory) RenameNotebook(_ context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	nb, ok := m.notebooks[id]
	if !ok {
		return ErrNotFound
	}
	nb.Title = title
	nb.UpdatedAt = time.Now().UTC()
	m.notebooks[id] = nb
	return nil
}

func (m *Memory) DeleteNotebook(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notebooks[id]; !ok {
		return ErrNotFound
	}
	delete(m.notebooks, id)
	for pid, p := range m.pages {
		if p.NotebookID == id {
			delete(m.pages, pid)
		}
	}
	return nil
}

func (m *Memory) ListPages(_ context.Context, notebookID string) ([]document.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.notebooks[notebookID]; !ok {
		return nil, ErrNotFound
	}
	var out []document.Page
	for _, p := range m.pages {
		if p.NotebookID == notebookID {
			out = append(out, clonePage(p))
		}
	}
	slices.SortFunc(out, func(a, b document.Page) int { return a.Index - b.Index })
	return out, nil
}

func (m *Memory) GetPage(_ context.Context, id string) (*document.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePage(p)
	return &p, nil
}

func (m *Memory) SavePage(_ context.Context, p document.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.pages[p.ID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	existing.Drawing = p.Drawing
	existing.Stickers = p.Stickers
	existing.Frozen = p.Frozen
	existing.UpdatedAt = now
	m.pages[p.ID] = clonePage(existing)

	if nb, ok := m.notebooks[existing.NotebookID]; ok {
		nb.UpdatedAt = now
		m.notebooks[nb.ID] = nb
	}
	return nil
}

func clonePage(p document.Page) document.Page {
	p.Drawing = slices.Clone(p.Drawing)
	p.Stickers = slices.Clone(p.Stickers)
	return p
}
