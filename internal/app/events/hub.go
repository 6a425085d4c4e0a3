// Package events fans ledger and quest changes out to live subscribers.
package events

import (
	"encoding/json"
	"sync"

	"github.com/pawbank/allowance/internal/domain"
	"github.com/pawbank/allowance/internal/infra/observability"
)

// bufferSize is the per-client channel capacity.
const bufferSize = 32

// Hub broadcasts encoded events to every subscriber. A client whose buffer
// is full misses the event instead of blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Publish implements domain.EventSink.
func (h *Hub) Publish(e domain.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			observability.EventsDropped.Inc()
		}
	}
}

// Subscribe registers a client. The returned func unsubscribes and closes
// the channel; calling it more than once is safe.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, bufferSize)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}
	observability.EventSubscribers.Set(float64(len(h.clients)))
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
			observability.EventSubscribers.Set(float64(len(h.clients)))
		})
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
	observability.EventSubscribers.Set(0)
}
