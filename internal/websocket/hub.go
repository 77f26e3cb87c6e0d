// Package websocket streams consensus status updates to connected browsers.
// Subscribers are anonymous; every connection receives every update.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub maintains the set of active clients and fans status updates out to
// all of them.
type Hub struct {
	log *slog.Logger

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	broadcast chan []byte

	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	h.log.Info("websocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.log.Debug("websocket client registered", "connections", len(h.clients))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.log.Debug("websocket client unregistered", "connections", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.log.Warn("websocket send buffer full, dropping update")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast marshals a status update and queues it for every connection.
// Safe to call from any goroutine; drops the update if the hub is wedged.
func (h *Hub) Broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("status update not serializable", "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("websocket broadcast channel full, dropping update")
	}
}
