package chat

import (
	"log/slog"
	"sync"
)

// Subscriber is a connected follower of the chat stream.
type Subscriber struct {
	Conn     Conn
	Outgoing chan string
}

// NewSubscriber wraps conn with an outgoing queue of the given size.
func NewSubscriber(conn Conn, queue int) *Subscriber {
	return &Subscriber{Conn: conn, Outgoing: make(chan string, queue)}
}

// Hub manages all connected followers and fans chat lines out to them.
// Both TCP and WebSocket servers share a single Hub instance.
type Hub struct {
	subscribers map[*Subscriber]bool
	mu          sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]bool),
	}
}

// Register adds a subscriber to the hub.
func (h *Hub) Register(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[s] = true
}

// Unregister removes a subscriber from the hub.
func (h *Hub) Unregister(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, s)
}

// SubscriberCount returns number of connected followers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast queues line for every subscriber and returns how many accepted
// it. A subscriber whose queue is full misses the line.
func (h *Hub) Broadcast(line string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subscribers {
		select {
		case s.Outgoing <- line:
			delivered++
		default:
			slog.Warn("dropping line for slow follower", "remote", s.Conn.RemoteAddr())
		}
	}
	return delivered
}
