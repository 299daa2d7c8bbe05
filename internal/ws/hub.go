package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/logger"

	"github.com/gorilla/websocket"
)

// Hub fans balance updates out to every open connection of a user
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	upgrader websocket.Upgrader
}

// NewHub accepts any origin when allowedOrigin is empty
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// Serve upgrades the request and blocks until the connection closes
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := newClient(userID, conn, h)
	h.register(c)
	c.run()
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client connected", "user_id", c.UserID, "connections", len(set))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// trySend queues msg unless c is gone or its buffer is full.
// send is only closed under the write lock, so holding the read lock makes the send safe.
func (h *Hub) trySend(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.UserID][c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Connections returns the number of open connections for userID
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// NotifyBalance pushes the update to the affected user. Clients whose
// buffer is full are disconnected.
func (h *Hub) NotifyBalance(update domain.BalanceUpdate) {
	if update.User == nil {
		return
	}
	msg, err := json.Marshal(update)
	if err != nil {
		logger.Error("ws marshal balance update", "error", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients[update.User.ID] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("ws client too slow, dropping", "user_id", c.UserID)
		h.unregister(c)
	}
}
