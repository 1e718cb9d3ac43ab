package collab

import (
	"encoding/json"

	"github.com/inkbook/inkbook/internal/flip"
	"github.com/inkbook/inkbook/internal/history"
	"github.com/inkbook/inkbook/internal/ink"
	"github.com/inkbook/inkbook/internal/layout"
)

type Message struct {
	Type       string          `json:"type"`
	NotebookID string          `json:"notebookId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Page edits
	TypeStrokeFinish   = "stroke.finish"
	TypeStrokeErase    = "stroke.erase"
	TypeLassoTransform = "lasso.transform"
	TypeStickerPlace   = "sticker.place"
	TypeCanvasFreeze   = "canvas.freeze"
	TypeHistoryUndo    = "history.undo"
	TypeHistoryRedo    = "history.redo"

	// Palette
	TypeToolSet = "tool.set"

	// Page turning
	TypePanBegin  = "pan.begin"
	TypePanChange = "pan.change"
	TypePanEnd    = "pan.end"
	TypePageGoto  = "page.goto"

	// Server state events
	TypePageState   = "page.state"
	TypeToolState   = "tool.state"
	TypeFlipState   = "flip.state"
	TypeLayoutState = "layout.state"
)

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Page        *int       `json:"page,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID    string `json:"clientId"`
	NotebookID  string `json:"notebookId"`
	PageCount   int    `json:"pageCount"`
	HistoryMode string `json:"historyMode"`
}

type ErrorPayload struct {
	Request string `json:"request,omitempty"`
	Reason  string `json:"reason"`
}

// --- Client requests ---

type StrokeFinishPayload struct {
	Page   int        `json:"page"`
	Stroke ink.Stroke `json:"stroke"`
}

// StrokeErasePayload names the erased strokes either by index or by the
// path the eraser travelled.
type StrokeErasePayload struct {
	Page    int         `json:"page"`
	Indices []int       `json:"indices,omitempty"`
	Path    []ink.Point `json:"path,omitempty"`
	Radius  float64     `json:"radius,omitempty"`
}

// LassoTransformPayload carries either an explicit transform, or a scale and
// rotation the server applies around the center of the selection.
type LassoTransformPayload struct {
	Page      int           `json:"page"`
	Lasso     ink.Lasso     `json:"lasso"`
	Transform *ink.Matrix2D `json:"transform,omitempty"`
	Scale     float64       `json:"scale,omitempty"`
	Rotation  float64       `json:"rotation,omitempty"`
}

type StickerPlacePayload struct {
	Page     int      `json:"page"`
	AssetID  string   `json:"assetId"`
	Frame    ink.Rect `json:"frame"`
	Rotation float64  `json:"rotation"`
}

type CanvasFreezePayload struct {
	Page   int  `json:"page"`
	Frozen bool `json:"frozen"`
}

type PageRefPayload struct {
	Page int `json:"page"`
}

// ToolPayload carries a palette change. Absent fields keep their value.
type ToolPayload struct {
	Tool         *string  `json:"tool,omitempty"`
	Color        *string  `json:"color,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	PartialErase *bool    `json:"partialErase,omitempty"`
}

type PanPayload struct {
	TranslationX float64 `json:"translationX"`
	VelocityX    float64 `json:"velocityX"`
	ContentWidth float64 `json:"contentWidth,omitempty"`
}

type PageGotoPayload struct {
	Index int `json:"index"`
}

// --- Server events ---

type PageStatePayload struct {
	Page     int               `json:"page"`
	PageID   string            `json:"pageId"`
	Drawing  json.RawMessage   `json:"drawing"`
	Stickers []history.Sticker `json:"stickers"`
	Frozen   bool              `json:"frozen"`
	CanUndo  bool              `json:"canUndo"`
	CanRedo  bool              `json:"canRedo"`
}

type ToolStatePayload struct {
	Tool         string  `json:"tool"`
	Color        string  `json:"color"`
	Width        float64 `json:"width"`
	PartialErase bool    `json:"partialErase"`
}

type FlipStatePayload struct {
	Phase    string       `json:"phase"`
	Progress float64      `json:"progress"`
	Current  int          `json:"current"`
	Target   *int         `json:"target,omitempty"`
	Layers   []flip.Layer `json:"layers"`
}

type LayoutStatePayload struct {
	Current int           `json:"current"`
	Left    int           `json:"left"`
	Right   int           `json:"right"`
	Layout  layout.Layout `json:"layout"`
}

func newMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Payload: data}, nil
}
