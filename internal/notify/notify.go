// Package notify is an in-process publish/subscribe hub. The scheduler
// publishes change notifications on it and the RPC server fans them out
// to subscribed clients.
package notify

import (
	"sync"
	"time"
)

// Topic identifies a class of change notification.
type Topic string

const (
	// TopicStatsUpdate fires when task, habit or session state changed
	// enough for project statistics to be recomputed.
	TopicStatsUpdate Topic = "stats-update"
	// TopicQueueUpdate fires when a queue's membership or order changed.
	TopicQueueUpdate Topic = "queue-update"
)

// Event is one published notification.
type Event struct {
	Topic     Topic                  `json:"topic"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Handler receives events for one subscription.
type Handler func(Event)

// Hub delivers events to subscribers over buffered channels. Delivery
// never blocks the publisher: when a subscriber's buffer is full the
// event is dropped for that subscriber.
type Hub struct {
	mu       sync.RWMutex
	channels map[Topic][]chan Event
	buffer   int
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		channels: make(map[Topic][]chan Event),
		buffer:   buffer,
	}
}

// Subscribe registers a handler for one topic. The handler runs on its
// own goroutine. The returned function cancels the subscription.
func (h *Hub) Subscribe(topic Topic, fn Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	h.channels[topic] = append(h.channels[topic], ch)

	go func() {
		for ev := range ch {
			func() {
				// A panicking handler must not take the hub down.
				defer func() { _ = recover() }()
				fn(ev)
			}()
		}
	}()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		subs := h.channels[topic]
		for i, sub := range subs {
			if sub == ch {
				h.channels[topic] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// Publish sends an event to every subscriber of the topic.
func (h *Hub) Publish(topic Topic, data map[string]interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ev := Event{
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	for _, ch := range h.channels[topic] {
		select {
		case ch <- ev:
		default:
			// Subscriber is backed up; drop rather than block.
		}
	}
}

// Close cancels every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic, subs := range h.channels {
		for _, ch := range subs {
			close(ch)
		}
		delete(h.channels, topic)
	}
}
