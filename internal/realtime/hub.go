// Package realtime pushes events to connected browsers over websockets.
// Every client subscribes to its own user-id channel; events published
// to a user with no live connection are silently dropped. There is no
// buffering or replay, only FIFO per connection.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// sendBuffer is per-client. A client that cannot drain this many
	// events is disconnected so it cannot block publishers.
	sendBuffer = 256
)

// Hub routes events to clients keyed by user id.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int64]map[*client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[int64]map[*client]bool)}
}

// event is the wire envelope for every pushed message.
type event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Publish sends an event to every live connection for the user.
// Fire-and-forget: no subscriber means the event is dropped, and a
// client with a full send buffer is cut loose rather than waited on.
// Sends happen under the read lock while unsubscribe closes channels
// under the write lock, so a send can never race a close.
func (h *Hub) Publish(userID int64, eventName string, payload any) {
	data, err := json.Marshal(event{Event: eventName, Data: payload})
	if err != nil {
		slog.Error("encoding realtime event", "event", eventName, "error", err)
		return
	}

	var stalled []*client
	h.mu.RLock()
	for c := range h.subscribers[userID] {
		select {
		case c.send <- data:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	// unsubscribe needs the write lock, so stalled clients are cut
	// loose only after the read lock is released.
	for _, c := range stalled {
		h.unsubscribe(c)
	}
}

// SubscriberCount returns the number of live connections for a user.
func (h *Hub) SubscriberCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

func (h *Hub) subscribe(c *client, userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A join-user arriving after the client was cut loose must not
	// re-register its closed send channel.
	if c.closed {
		return
	}

	// A client re-sending join-user moves to the new channel.
	if c.userID != 0 {
		h.removeLocked(c)
	}

	c.userID = userID
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*client]bool)
	}
	h.subscribers[userID][c] = true
}

// unsubscribe removes the client and closes its channel and connection.
// The close happens under the write lock: Publish only sends while
// holding the read lock, so the channel cannot be closed mid-send.
func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	h.removeLocked(c)
	close(c.send)
	c.conn.Close()
}

func (h *Hub) removeLocked(c *client) {
	if set, ok := h.subscribers[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subscribers, c.userID)
		}
	}
}

// client is one websocket connection. userID and closed are guarded by
// the hub mutex.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	closed bool
}

// writePump pumps events from the send channel to the connection and
// keeps it alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// clientMessage is what browsers send: currently only join-user.
type clientMessage struct {
	Event  string      `json:"event"`
	UserID json.Number `json:"userId"`
}

// readPump consumes client messages until the connection drops,
// handling join-user subscriptions on the way.
func (c *client) readPump(h *Hub) {
	defer h.unsubscribe(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket closed", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Event == "join-user" {
			userID, err := msg.UserID.Int64()
			if err != nil || userID <= 0 {
				continue
			}
			h.subscribe(c, userID)
		}
	}
}
