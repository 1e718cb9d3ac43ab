package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/inkbook/inkbook/internal/document"
	"github.com/inkbook/inkbook/internal/history"
)

var _ Store = (*Memory)(nil)
var _ Store = (*Postgres)(nil)

func seed(t *testing.T, m *Memory, id string, pages int) []document.Page {
	t.Helper()
	n := 0
	nb, ps := document.NewNotebook(id, "Diary", "user_1", pages, func() string {
		n++
		return fmt.Sprintf("%s_page_%d", id, n)
	})
	if err := m.CreateNotebook(context.Background(), nb, ps); err != nil {
		t.Fatalf("create notebook: %v", err)
	}
	return ps
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := document.User{ID: "user_1", Email: "ink@example.com", DisplayName: "Ink"}
	if err := m.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := m.CreateUser(ctx, document.User{ID: "user_2", Email: "INK@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
	got, err := m.GetUserByEmail(ctx, "Ink@Example.com")
	if err != nil || got.ID != "user_1" {
		t.Fatalf("lookup by email: %v %+v", err, got)
	}
	if _, err := m.GetUserByID(ctx, "user_9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryPages(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	pages := seed(t, m, "nb_1", 4)

	p := pages[2]
	p.Drawing = []byte(`{"version":1,"strokes":[]}`)
	p.Stickers = []history.Sticker{{ID: "stk_1"}}
	p.Index = 99
	if err := m.SavePage(ctx, p); err != nil {
		t.Fatalf("save page: %v", err)
	}

	listed, err := m.ListPages(ctx, "nb_1")
	if err != nil {
		t.Fatalf("list pages: %v", err)
	}
	if len(listed) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(listed))
	}
	for i, lp := range listed {
		if lp.Index != i {
			t.Fatalf("pages out of order at %d: %d", i, lp.Index)
		}
	}
	if string(listed[2].Drawing) != string(p.Drawing) || len(listed[2].Stickers) != 1 {
		t.Fatalf("page content not saved: %+v", listed[2])
	}

	listed[2].Drawing[0] = 'x'
	again, _ := m.GetPage(ctx, p.ID)
	if again.Drawing[0] != '{' {
		t.Fatalf("store leaked its buffer")
	}

	if err := m.SavePage(ctx, document.Page{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryNotebookLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seed(t, m, "nb_1", 2)
	seed(t, m, "nb_2", 2)

	if err := m.RenameNotebook(ctx, "nb_1", "Travel"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	list, _ := m.ListNotebooks(ctx, "user_1")
	if len(list) != 2 || list[0].ID != "nb_1" {
		t.Fatalf("most recently touched notebook should be first: %+v", list)
	}
	if err := m.DeleteNotebook(ctx, "nb_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.ListPages(ctx, "nb_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pages of deleted notebook should be gone, got %v", err)
	}
	if _, err := m.GetPage(ctx, "nb_1_page_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("page should be deleted with its notebook")
	}
}
