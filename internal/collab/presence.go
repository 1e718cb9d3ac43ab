package collab

import (
	"maps"
	"sync"
)

// roster remembers the last cursor and page each connection of a room
// reported. Entries are keyed by client id so one user on two devices shows
// up twice.
type roster struct {
	mu      sync.Mutex
	entries map[string]PresencePayload
}

func newRoster() *roster {
	return &roster{entries: make(map[string]PresencePayload)}
}

// update records p for c and returns the presence.update to relay. The
// display name always comes from the session, never from the client.
func (r *roster) update(c *Client, p PresencePayload) (*Message, error) {
	p.DisplayName = c.DisplayName
	r.mu.Lock()
	r.entries[c.ClientID] = p
	r.mu.Unlock()
	return stamped(TypePresenceUpdate, c, p)
}

func (r *roster) join(c *Client) (*Message, error) {
	return stamped(TypePresenceJoin, c, PresenceJoinPayload{
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
	})
}

func (r *roster) leave(c *Client) (*Message, error) {
	r.mu.Lock()
	delete(r.entries, c.ClientID)
	r.mu.Unlock()
	return stamped(TypePresenceLeave, c, PresenceLeavePayload{UserID: c.UserID})
}

// snapshot is the presence.state sent to a connection when it joins.
func (r *roster) snapshot() (*Message, error) {
	r.mu.Lock()
	all := maps.Clone(r.entries)
	r.mu.Unlock()
	if all == nil {
		all = map[string]PresencePayload{}
	}
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: all})
}

func stamped(msgType string, c *Client, payload any) (*Message, error) {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return nil, err
	}
	msg.UserID = c.UserID
	msg.ClientID = c.ClientID
	return msg, nil
}
