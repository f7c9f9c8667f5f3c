package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// TopicSweeps carries one JSON-encoded domain.SweepRun per finished target.
const TopicSweeps = "encryption.sweeps"

const subscriberBuffer = 32

// Hub fans event messages out to live subscribers of a topic.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan string
	dropped     atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]chan string),
	}
}

// Subscribe registers a new listener on topic. The channel is closed by Unsubscribe.
func (h *Hub) Subscribe(topic string) chan string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	h.subscribers[topic] = append(h.subscribers[topic], ch)
	return ch
}

func (h *Hub) Unsubscribe(topic string, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[topic]
	for i, sub := range subs {
		if sub != ch {
			continue
		}
		subs = append(subs[:i], subs[i+1:]...)
		if len(subs) == 0 {
			delete(h.subscribers, topic)
		} else {
			h.subscribers[topic] = subs
		}
		close(ch)
		return
	}
}

// Broadcast never blocks: a subscriber with a full buffer misses the message.
func (h *Hub) Broadcast(topic, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[topic] {
		select {
		case ch <- message:
		default:
			h.dropped.Add(1)
		}
	}
}

// Publish JSON-encodes v and broadcasts it on topic.
func (h *Hub) Publish(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("telemetry: encode %s event: %w", topic, err)
	}
	h.Broadcast(topic, string(b))
	return nil
}

// Subscribers returns the number of live listeners on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// Dropped returns how many messages were discarded for slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
