package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

type hubClient struct {
	send chan []byte
}

// Hub pushes notifications to browsers connected over websocket.
type Hub struct {
	origins []string
	clients map[*hubClient]struct{}
	mu      sync.RWMutex
}

// NewHub creates a hub accepting websocket connections from the given
// origin patterns (host patterns as understood by websocket.AcceptOptions).
func NewHub(origins []string) *Hub {
	return &Hub{
		origins: origins,
		clients: make(map[*hubClient]struct{}),
	}
}

// ClientCount returns the number of connected browsers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver queues n for every connected client. Slow clients drop messages.
func (h *Hub) Deliver(_ context.Context, n Notification) error {
	payload, err := encode(n)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slog.Warn("websocket client too slow, dropping notification")
		}
	}
	return nil
}

// ServeHTTP upgrades the request and streams notifications until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	c := &hubClient{send: make(chan []byte, clientBuffer)}
	h.add(c)
	defer h.remove(c)

	// Browsers never send anything; CloseRead handles control frames and
	// cancels ctx when the peer disconnects.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (h *Hub) add(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func encode(n Notification) ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return payload, nil
}
