package realtime

import (
	"sync"
	"time"
)

// Envelope is one message delivered to every subscriber of a stream.
type Envelope struct {
	Type        string    `json:"type"`
	Stream      string    `json:"stream"`
	SenderID    string    `json:"sender_id,omitempty"`
	RecipientID string    `json:"recipient_id,omitempty"`
	Content     string    `json:"content,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Subscriber receives envelopes published to a stream. Deliver must not block;
// connection writers buffer internally and drop on overflow.
type Subscriber interface {
	Deliver(e Envelope)
}

// Hub binds stream keys to live subscribers. A subscription, once authorized,
// persists until Unsubscribe or the connection ends; unsubscribing only drops
// the binding.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[Subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]map[Subscriber]struct{})}
}

// Subscribe binds sub to the stream key. The caller must have authorized the
// key already; the hub performs no authorization of its own.
func (h *Hub) Subscribe(key string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.streams[key]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.streams[key] = set
	}
	set[sub] = struct{}{}
}

// Unsubscribe drops sub's binding to the stream key. Unknown bindings are a no-op.
func (h *Hub) Unsubscribe(key string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.streams[key]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.streams, key)
		}
	}
}

// Publish delivers e to every current subscriber of the stream key.
func (h *Hub) Publish(key string, e Envelope) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.streams[key]))
	for sub := range h.streams[key] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()
	for _, sub := range subs {
		sub.Deliver(e)
	}
}

// Subscribers returns the number of live bindings for the stream key.
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[key])
}
