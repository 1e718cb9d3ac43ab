package library

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inkbook/inkbook/internal/auth"
)

// maxDrawingBytes bounds an uploaded page drawing.
const maxDrawingBytes = 16 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the notebook API on r. r is expected to sit behind
// auth.AuthMiddleware.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/notebooks", h.List).Methods("GET")
	r.HandleFunc("/notebooks", h.Create).Methods("POST")
	r.HandleFunc("/notebooks/{notebookId}", h.Get).Methods("GET")
	r.HandleFunc("/notebooks/{notebookId}", h.Rename).Methods("PATCH")
	r.HandleFunc("/notebooks/{notebookId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/notebooks/{notebookId}/pages", h.ListPages).Methods("GET")
	r.HandleFunc("/notebooks/{notebookId}/pages/{index:[0-9]+}/drawing", h.GetDrawing).Methods("GET")
	r.HandleFunc("/notebooks/{notebookId}/pages/{index:[0-9]+}/drawing", h.PutDrawing).Methods("PUT")
}

type createRequest struct {
	Title string `json:"title"`
	Pages int    `json:"pages"`
}

// validate allows Pages to be omitted, which means the server default.
func (c createRequest) validate() string {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return "title is required"
	case c.Pages != 0 && (c.Pages < MinPages || c.Pages > MaxPages):
		return "pages out of range"
	}
	return ""
}

type renameRequest struct {
	Title string `json:"title"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	nb, err := h.service.Create(r.Context(), req.Title, userID, req.Pages)
	if err != nil {
		slog.Error("create notebook failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, nb)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	notebookID := mux.Vars(r)["notebookId"]

	nb, err := h.service.Get(r.Context(), notebookID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nb)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	notebooks, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list notebooks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, notebooks)
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	notebookID := mux.Vars(r)["notebookId"]

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := h.service.Rename(r.Context(), notebookID, userID, req.Title); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	notebookID := mux.Vars(r)["notebookId"]

	if err := h.service.Delete(r.Context(), notebookID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	notebookID := mux.Vars(r)["notebookId"]

	pages, err := h.service.ListPages(r.Context(), notebookID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pages)
}

func (h *Handler) GetDrawing(w http.ResponseWriter, r *http.Request) {
	notebookID, index := pageRef(r)
	data, err := h.service.PageDrawing(r.Context(), notebookID, auth.UserIDFromContext(r.Context()), index)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) PutDrawing(w http.ResponseWriter, r *http.Request) {
	notebookID, index := pageRef(r)
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDrawingBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "drawing too large")
		return
	}

	if err := h.service.PutPageDrawing(r.Context(), notebookID, auth.UserIDFromContext(r.Context()), index, data); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pageRef reads the notebook id and page index from the route. The route
// pattern only admits digits.
func pageRef(r *http.Request) (string, int) {
	vars := mux.Vars(r)
	index, _ := strconv.Atoi(vars["index"])
	return vars["notebookId"], index
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrPageNotFound):
		writeError(w, http.StatusNotFound, "page not found")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrInvalidDrawing):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLive):
		writeError(w, http.StatusConflict, "notebook is open in a live session")
	default:
		slog.Error("service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
