package library

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inkbook/inkbook/internal/auth"
	"github.com/inkbook/inkbook/internal/ink"
	"github.com/inkbook/inkbook/internal/store"
)

func drawingBytes(t *testing.T, strokes int) []byte {
	t.Helper()
	d := ink.Drawing{}
	for i := range strokes {
		d = d.Append(ink.NewStroke(ink.KindPen, color.NRGBA{A: 255}, 2, []ink.Point{{X: float64(i)}, {X: float64(i + 1)}}))
	}
	data, err := ink.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestServiceOwnership(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory(), 8)

	nb, err := s.Create(ctx, "  Diary ", "user_a", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if nb.Title != "Diary" || nb.PageCount != 8 {
		t.Fatalf("unexpected notebook %+v", nb)
	}
	if _, err := s.Get(ctx, nb.ID, "user_b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := s.Get(ctx, "nb_missing", "user_a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Create(ctx, "x", "user_a", 1); err == nil {
		t.Fatalf("single page notebook should be rejected")
	}
}

func TestServicePageDrawings(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory(), 4)
	nb, _ := s.Create(ctx, "Diary", "user_a", 0)

	if err := s.PutPageDrawing(ctx, nb.ID, "user_a", 1, []byte("nope")); !errors.Is(err, ErrInvalidDrawing) {
		t.Fatalf("expected invalid drawing, got %v", err)
	}
	if err := s.PutPageDrawing(ctx, nb.ID, "user_a", 9, drawingBytes(t, 1)); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected page not found, got %v", err)
	}
	if err := s.PutPageDrawing(ctx, nb.ID, "user_a", 1, drawingBytes(t, 3)); err != nil {
		t.Fatalf("put drawing: %v", err)
	}
	pages, err := s.ListPages(ctx, nb.ID, "user_a")
	if err != nil {
		t.Fatalf("list pages: %v", err)
	}
	if pages[1].Strokes != 3 || pages[0].Strokes != 0 {
		t.Fatalf("unexpected summaries %+v", pages)
	}

	s.SetLiveCheck(func(id string) bool { return id == nb.ID })
	if err := s.PutPageDrawing(ctx, nb.ID, "user_a", 1, drawingBytes(t, 1)); !errors.Is(err, ErrLive) {
		t.Fatalf("expected live conflict, got %v", err)
	}
}

func TestHandlerRoutes(t *testing.T) {
	s := NewService(store.NewMemory(), 4)
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), "user_a")))
		})
	})
	NewHandler(s).Routes(api)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/notebooks", strings.NewReader(`{"title":"Trip"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(rec.Body).Decode(&created)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/notebooks/"+created.ID+"/pages/2/drawing", strings.NewReader(string(drawingBytes(t, 2)))))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put drawing: %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notebooks/"+created.ID+"/pages/2/drawing", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get drawing: %d", rec.Code)
	}
	d, err := ink.Unmarshal(rec.Body.Bytes())
	if err != nil || d.Len() != 2 {
		t.Fatalf("drawing did not round trip: %v", err)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notebooks/"+created.ID+"/pages/0/drawing", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("blank page should be 204, got %d", rec.Code)
	}
}
