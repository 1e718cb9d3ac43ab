package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 1 << 20
	sendBuffer = 256
)

// Client is one websocket connection joined to a notebook room. The hub
// owns its lifecycle; the pumps only move bytes.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	UserID      string
	DisplayName string
	NotebookID  string
	ClientID    string

	mu     sync.Mutex // guards send and closed
	send   chan []byte
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, notebookID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		DisplayName: displayName,
		NotebookID:  notebookID,
		ClientID:    clientID,
		send:        make(chan []byte, sendBuffer),
	}
}

// ReadPump decodes requests until the connection fails, then unregisters.
// Requests are stamped with the session identity before the hub sees them.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.hub.Unregister(c)
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	c.conn.SetReadLimit(maxMsgSize)
	for {
		msg, err := c.read(ctx)
		if errors.Is(err, errBadPayload) {
			c.Send(errorMessage("", err.Error()))
			continue
		}
		if err != nil {
			if !isNormalClose(err) {
				slog.Debug("websocket read", "error", err, "client", c.ClientID)
			}
			return
		}
		c.hub.handleMessage(c, msg)
	}
}

func (c *Client) read(ctx context.Context) (*Message, error) {
	kind, data, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if kind != websocket.MessageText {
		return nil, errBadPayload
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errBadPayload
	}
	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	msg.NotebookID = c.NotebookID
	return &msg, nil
}

// WritePump drains the send queue and keeps the connection alive with pings.
// It returns when the queue is closed, a write fails or ctx ends.
func (c *Client) WritePump(ctx context.Context) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	for {
		var err error
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			err = c.withDeadline(ctx, func(wctx context.Context) error {
				return c.conn.Write(wctx, websocket.MessageText, data)
			})
		case <-ping.C:
			err = c.withDeadline(ctx, c.conn.Ping)
		case <-ctx.Done():
			return
		}
		if err != nil {
			slog.Debug("websocket write", "error", err, "client", c.ClientID)
			return
		}
	}
}

func (c *Client) withDeadline(ctx context.Context, fn func(context.Context) error) error {
	wctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return fn(wctx)
}

// Send queues msg for the write pump. Messages to a closed client and
// messages that overflow the buffer are dropped.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "type", msg.Type, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("send buffer full, dropping message", "type", msg.Type, "client", c.ClientID)
	}
}

// close ends the write pump. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
