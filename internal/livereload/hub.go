// Package livereload pushes reload events to connected browsers during
// development. Rebuild notifications come from the asset pipeline's watch
// hook; template edits come from a filesystem watcher, since esbuild only
// sees the JS module graph.
package livereload

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 512,
	// dev-only endpoint, same-origin pages connect from arbitrary ports
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks connected browsers and broadcasts reload events to them.
type Hub struct {
	logger zerolog.Logger

	mu sync.Mutex
	// each client maps to a channel closed when the connection is dropped,
	// which releases its ping goroutine
	clients map[*websocket.Conn]chan struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]chan struct{}),
	}
}

// ServeHTTP upgrades the request and parks the connection until the client
// goes away. Clients never send meaningful messages; the read loop exists to
// detect disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Live reload upgrade failed")
		return
	}

	done := make(chan struct{})

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[conn] = done
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("Live reload client connected")

	go h.pingLoop(conn, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(conn)
				return
			}
		}
	}
}

// Broadcast tells every connected client to reload.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, done := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, []byte("reload")); err != nil {
			_ = conn.Close()
			close(done)
			delete(h.clients, conn)
		}
	}

	h.logger.Debug().Int("clients", len(h.clients)).Msg("Reload broadcast")
}

// Close disconnects all clients and rejects future ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn, done := range h.clients {
		_ = conn.Close()
		close(done)
		delete(h.clients, conn)
	}
}

// drop may be called from both the read loop and the ping loop; the map
// lookup makes the second call a no-op.
func (h *Hub) drop(conn *websocket.Conn) {
	_ = conn.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	if done, ok := h.clients[conn]; ok {
		close(done)
		delete(h.clients, conn)
	}
}
