package main

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"campus-maintenance-system/pkg/middleware"
)

// Push is the frame written to every subscriber, over WebSocket or SSE.
type Push struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Presence records which users currently hold a live connection.
type Presence interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
}

type client struct {
	userID string
	send   chan []byte
}

func newClient(userID string) *client {
	return &client{userID: userID, send: make(chan []byte, 32)}
}

// Hub tracks subscribers by user id. A user may hold several connections
// (one per tab or device); they all receive the user's pushes.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	presence Presence
}

func NewHub(presence Presence) *Hub {
	return &Hub{clients: map[string]map[*client]struct{}{}, presence: presence}
}

func (h *Hub) Register(c *client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if !ok {
		conns = map[*client]struct{}{}
		h.clients[c.userID] = conns
	}
	conns[c] = struct{}{}
	total := h.countLocked()
	h.mu.Unlock()
	middleware.RealtimeConnections.Inc()

	log.Printf("[INFO] Client registered - UserID: %s (Total clients: %d)", c.userID, total)
	h.markPresence(c.userID, true)
}

// Unregister closes the client's send channel. The user goes offline once
// their last connection is gone.
func (h *Hub) Unregister(c *client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(conns, c)
	close(c.send)
	last := len(conns) == 0
	if last {
		delete(h.clients, c.userID)
	}
	total := h.countLocked()
	h.mu.Unlock()
	middleware.RealtimeConnections.Dec()

	log.Printf("[INFO] Client unregistered - UserID: %s (Total clients: %d)", c.userID, total)
	if last {
		h.markPresence(c.userID, false)
	}
}

// Touch refreshes the presence TTL of a connected user.
func (h *Hub) Touch(userID string) {
	h.markPresence(userID, true)
}

func (h *Hub) markPresence(userID string, online bool) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	if online {
		err = h.presence.Online(ctx, userID)
	} else {
		err = h.presence.Offline(ctx, userID)
	}
	if err != nil {
		log.Printf("[WARN] Failed to update presence for %s: %v", userID, err)
	}
}

// SendToUser delivers p to every connection of userID and returns how many
// received it. Slow connections with a full buffer are skipped.
func (h *Hub) SendToUser(userID string, p Push) int {
	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal push: %v", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
			sent++
		default:
			log.Printf("[WARN] Send buffer full, dropping push for %s", userID)
		}
	}
	return sent
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}
