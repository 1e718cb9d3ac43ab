package asset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/inkbook/inkbook/internal/typeid"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	// MaxStickerSide is the longest edge a stored sticker keeps.
	MaxStickerSide = 1024
)

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// Handler stores sticker images and serves them back.
type Handler struct {
	dir string
}

// NewHandler creates a sticker handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create sticker dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

var (
	errTooLarge    = errors.New("file too large (max 10MB)")
	errMissingFile = errors.New("missing file field")
	errNotImage    = errors.New("only PNG and JPEG images are supported")
)

// Upload handles POST /stickers/upload (multipart form with a "file" field).
// PNG and JPEG are accepted; everything is stored as PNG, scaled down to
// MaxStickerSide.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	img, name, err := readImage(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	img = fit(img, MaxStickerSide)

	assetID := typeid.NewAssetID()
	if err := h.save(assetID, img); err != nil {
		slog.Error("save sticker", "asset", assetID, "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	slog.Info("sticker uploaded", "asset", assetID, "name", name)

	size := img.Bounds().Size()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(UploadResponse{
		ID:     assetID,
		URL:    URL(assetID),
		Width:  size.X,
		Height: size.Y,
		Name:   name,
	})
}

// readImage pulls the "file" part out of r and decodes it. The format is
// sniffed from the bytes; the part's declared type is ignored.
func readImage(w http.ResponseWriter, r *http.Request) (image.Image, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, "", errTooLarge
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errMissingFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if ct := http.DetectContentType(data); ct != "image/png" && ct != "image/jpeg" {
		return nil, "", errNotImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("invalid image: %w", err)
	}
	return img, header.Filename, nil
}

// Serve returns an http.Handler that serves stored stickers with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/stickers/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Exists reports whether a sticker image with assetID has been uploaded.
func (h *Handler) Exists(assetID string) bool {
	if !typeid.Is(assetID, typeid.PrefixAsset) {
		return false
	}
	_, err := os.Stat(h.path(assetID))
	return err == nil
}

// URL is the public path of a stored sticker.
func URL(assetID string) string {
	return fmt.Sprintf("/stickers/%s.png", assetID)
}

func (h *Handler) path(assetID string) string {
	return filepath.Join(h.dir, assetID+".png")
}

func (h *Handler) save(assetID string, img image.Image) error {
	tmp, err := os.CreateTemp(h.dir, assetID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.path(assetID)); err != nil {
		return fmt.Errorf("rename sticker: %w", err)
	}
	return nil
}

// fit scales img down so neither side exceeds side. Smaller images are
// returned unchanged.
func fit(img image.Image, side int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= side && h <= side {
		return img
	}
	if w >= h {
		h = max(1, h*side/w)
		w = side
	} else {
		w = max(1, w*side/h)
		h = side
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
