package collab

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/inkbook/inkbook/internal/document"
	"github.com/inkbook/inkbook/internal/notebook"
)

const (
	DefaultAutosaveInterval = 10 * time.Second
	DefaultFrameInterval    = time.Second / 60

	openTimeout = 10 * time.Second
	saveTimeout = 10 * time.Second
)

// LoadFunc fetches the stored pages of a notebook, ordered by index.
type LoadFunc func(ctx context.Context, notebookID string) ([]document.Page, error)

// SaveFunc writes back pages changed during a live session.
type SaveFunc func(ctx context.Context, pages []document.Page) error

// HubConfig wires a hub to storage and tunes its timers.
type HubConfig struct {
	Load     LoadFunc
	Save     SaveFunc
	Notebook notebook.Options

	// AssetExists rejects stickers whose image was never uploaded. Nil
	// accepts every asset id.
	AssetExists func(assetID string) bool

	AutosaveInterval time.Duration
	FrameInterval    time.Duration
}

// Hub owns the live notebook rooms. Clients register through Run's loop;
// messages are handled on each client's read goroutine.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // notebookID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	cfg HubConfig
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		cfg:        cfg,
	}
}

// Run serves registrations and autosaves until ctx is cancelled, then saves
// and closes every room.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.AutosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveAll(ctx)
		case <-ctx.Done():
			h.shutdown()
			return nil
		}
	}
}

// Register joins client to its notebook room, opening the room if needed.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// IsOpen reports whether notebookID has a live room.
func (h *Hub) IsOpen(notebookID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[notebookID]
	return ok
}

// Rooms reports the number of live rooms.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) room(notebookID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[notebookID]
	return room, ok
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	room, ok := h.room(client.NotebookID)
	if !ok {
		var err error
		room, err = h.openRoom(ctx, client.NotebookID)
		if err != nil {
			slog.Error("open notebook", "notebook", client.NotebookID, "error", err)
			client.Send(errorMessage("", "notebook could not be opened"))
			client.close()
			return
		}
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	for _, msg := range room.welcome(client) {
		client.Send(msg)
	}
	if msg, err := room.presence.snapshot(); err == nil {
		client.Send(msg)
	}
	if msg, err := room.presence.join(client); err == nil {
		h.broadcastToRoom(client.NotebookID, msg, client.ClientID)
	}

	slog.Info("client joined", "user", client.UserID, "notebook", client.NotebookID, "client", client.ClientID)
}

func (h *Hub) openRoom(ctx context.Context, notebookID string) (*Room, error) {
	loadCtx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	pages, err := h.cfg.Load(loadCtx, notebookID)
	if err != nil {
		return nil, err
	}

	room := newRoom(h, notebook.Open(notebookID, pages, h.cfg.Notebook))
	h.mu.Lock()
	h.rooms[notebookID] = room
	h.mu.Unlock()

	slog.Info("notebook opened", "notebook", notebookID, "pages", len(pages))
	return room, nil
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.NotebookID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room.clients[client.ClientID]; !member {
		h.mu.Unlock()
		return
	}
	delete(room.clients, client.ClientID)
	empty := len(room.clients) == 0
	h.mu.Unlock()

	client.close()
	if msg, err := room.presence.leave(client); err == nil {
		h.broadcastToRoom(client.NotebookID, msg, "")
	}

	slog.Info("client left", "user", client.UserID, "notebook", client.NotebookID, "client", client.ClientID)

	if empty {
		// Registrations are served by the same loop, so nobody can join
		// between the save and the removal.
		h.closeRoom(room)
	}
}

func (h *Hub) closeRoom(room *Room) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	room.close(ctx)

	h.mu.Lock()
	delete(h.rooms, room.notebookID)
	h.mu.Unlock()
	slog.Info("notebook closed", "notebook", room.notebookID)
}

func (h *Hub) saveAll(ctx context.Context) {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
		r.save(saveCtx)
		cancel()
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for id, r := range h.rooms {
		rooms = append(rooms, r)
		for _, c := range r.clients {
			c.close()
		}
		delete(h.rooms, id)
	}
	h.mu.Unlock()
	close(h.done)

	for _, r := range rooms {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		r.close(ctx)
		cancel()
	}
	slog.Info("collab hub stopped", "rooms", len(rooms))
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.room(sender.NotebookID)
	if !ok {
		return
	}

	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(room, sender, msg)
	default:
		room.handle(sender, msg)
	}
}

func (h *Hub) handlePresenceUpdate(room *Room, sender *Client, msg *Message) {
	var p PresencePayload
	if err := decode(msg, &p); err != nil {
		sender.Send(errorMessage(msg.Type, err.Error()))
		return
	}
	out, err := room.presence.update(sender, p)
	if err != nil {
		slog.Error("marshal presence", "error", err)
		return
	}
	h.broadcastToRoom(sender.NotebookID, out, sender.ClientID)
}

func (h *Hub) broadcastToRoom(notebookID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[notebookID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func errorMessage(request, reason string) *Message {
	msg, err := newMessage(TypeError, ErrorPayload{Request: request, Reason: reason})
	if err != nil {
		return &Message{Type: TypeError}
	}
	return msg
}
