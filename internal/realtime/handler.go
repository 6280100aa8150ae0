package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The SPA is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP connections and attaches them to the hub.
// Clients subscribe by sending {"event": "join-user", "userId": ...}.
type Handler struct {
	Hub *Hub
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	go c.writePump()
	go c.readPump(h.Hub)
}
