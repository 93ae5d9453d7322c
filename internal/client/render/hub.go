package render

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/metrics"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

// Message is what the hub pushes to browsers.
type Message struct {
	Type string     `json:"type"`
	View *view.View `json:"view,omitempty"`
}

const (
	MessageView  = "view"
	MessageClear = "clear"
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a view.Renderer that broadcasts each applied view to every
// connected websocket client. New clients get the latest view at once.
// Clients that cannot keep up are dropped.
type Hub struct {
	log      logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    []byte
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		log: log.With("component", "live"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the live view is a local read-only mirror
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *Hub) Render(v view.View) {
	h.publish(Message{Type: MessageView, View: &v}, true)
}

func (h *Hub) Clear() {
	h.publish(Message{Type: MessageClear}, false)
}

func (h *Hub) publish(m Message, keep bool) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.Error(context.Background(), "encode live message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if keep {
		h.last = data
	} else {
		h.last = nil
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn(context.Background(), "dropping slow live client", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection until the peer
// goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	metrics.LiveClientConnected()
	h.log.Info(r.Context(), "live client connected", "remote", conn.RemoteAddr().String())

	go h.writeLoop(c)

	// browsers never send anything meaningful; reading only detects close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
	h.log.Info(r.Context(), "live client disconnected", "remote", conn.RemoteAddr().String())
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.LiveClientDisconnected()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
