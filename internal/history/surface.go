package history

import "github.com/inkbook/inkbook/internal/ink"

// InkSurface is the live drawing a command edits. Commands hold an InkSurface
// handle, never a concrete canvas, so history can be exercised without a UI.
type InkSurface interface {
	Drawing() ink.Drawing
	SetDrawing(d ink.Drawing)
}

// Sticker is an image placed on a page. AssetID points at the uploaded image.
type Sticker struct {
	ID       string   `json:"id"`
	AssetID  string   `json:"assetId"`
	Frame    ink.Rect `json:"frame"`
	Rotation float64  `json:"rotation"`
}

// StickerSurface is the sticker layer of a page. Placing a sticker whose id
// is already on the layer replaces it.
type StickerSurface interface {
	Sticker(id string) (Sticker, bool)
	PlaceSticker(s Sticker)
	RemoveSticker(id string) bool
}

// FreezeSurface toggles whether a canvas accepts input.
type FreezeSurface interface {
	Frozen() bool
	SetFrozen(frozen bool)
}
