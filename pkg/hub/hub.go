// Package hub fans debounced malpractice alerts out to proctor dashboards
// using the channel-based broadcast pattern.
package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/debounce"
	"github.com/teslashibe/go-truesight/pkg/malpractice"
	"github.com/teslashibe/go-truesight/pkg/protocol"
)

var _ malpractice.Sink = (*Hub)(nil)

// envelope is one encoded alert plus the room it belongs to.
type envelope struct {
	room string
	data []byte
}

// Hub maintains the set of active dashboards and broadcasts alerts to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Guards clients for readers outside Run
	mu  sync.RWMutex
	log *slog.Logger
}

// New creates a new Hub
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.Component("hub"),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// Every client still connected at that point has its send channel closed.
// Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("dashboard connected", "room", client.room, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("dashboard disconnected", "remaining", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.room) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Too slow to keep up
					close(client.send)
					delete(h.clients, client)
					h.log.Warn("dropped slow dashboard", "room", client.room)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues an encoded message for every dashboard watching room.
// An empty room reaches every dashboard.
func (h *Hub) Broadcast(room string, data []byte) {
	select {
	case h.broadcast <- envelope{room: room, data: data}:
	default:
		h.log.Warn("broadcast channel full, dropping message", "room", room)
	}
}

// Publish encodes an alert and broadcasts it to dashboards.
func (h *Hub) Publish(a debounce.Alert) {
	msg, err := protocol.NewAlertMessage(a.ID, a.Room, string(a.Condition), a.Time)
	if err != nil {
		h.log.Error("encode alert", "error", err)
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		h.log.Error("encode alert", "error", err)
		return
	}
	h.Broadcast(a.Room, data)
}

// ClientCount returns the number of connected dashboards
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
