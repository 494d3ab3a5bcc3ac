// Package events fans out in-process change notifications to live subscribers.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TopicsChanged is published with the full topic list after any topic mutation.
const TopicsChanged = "topics.changed"

// Hub delivers the latest payload per topic to every subscriber. Slow
// subscribers only ever see the most recent payload; older ones are dropped.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

type subscription struct {
	ch chan []byte
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[string]map[*subscription]struct{}{}}
}

// Subscribe registers for payloads on topic. The returned cancel func must be
// called once the subscriber goes away; it closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan []byte, func()) {
	sub := &subscription{ch: make(chan []byte, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	set, ok := h.subs[topic]
	if !ok {
		set = map[*subscription]struct{}{}
		h.subs[topic] = set
	}
	set[sub] = struct{}{}

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[topic][sub]; ok {
				delete(h.subs[topic], sub)
				close(sub.ch)
			}
		})
	}
}

// Publish encodes payload as JSON and hands it to every subscriber of topic.
// It never blocks.
func (h *Hub) Publish(topic string, payload any) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Errorf("events: topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: encode payload: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[topic] {
		select {
		case sub.ch <- data:
		default:
			// replace the undelivered payload with the newer one
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- data
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
	}
	h.subs = map[string]map[*subscription]struct{}{}
}
