// Package broadcast implements C14: the fan-out channel that carries
// station lifecycle and transaction events to every subscriber of the UI
// control plane, default in-process, optionally Kafka-backed for a
// worker-set spanning more than one host.
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
)

// Event is one broadcastable occurrence — a station status change, a
// transaction start/stop, a command result — kept deliberately generic
// since C13 just needs to relay it to UI subscribers as JSON.
type Event struct {
	Type      string      `json:"type"`
	StationID string      `json:"stationId"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Bus is the contract C13 depends on, letting the in-process and
// Kafka-backed implementations be interchangeable.
type Bus interface {
	Publish(ev Event) error
	Subscribe() (id string, events <-chan Event)
	Unsubscribe(id string)
	Close() error
}

// Hub is the default in-process Bus: a subscriber registry of buffered
// channels, fed directly by Publish — grounded on the teacher's
// DefaultMessageDispatcher eventAggregator fan-in/fan-out shape, simplified
// since there's only one local source here instead of N protocol handlers.
type Hub struct {
	log *logger.Logger

	mu   sync.RWMutex
	subs map[string]chan Event
}

// NewHub builds an in-process broadcast hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:  log,
		subs: make(map[string]chan Event),
	}
}

// Subscribe registers a new listener, returning its id (for Unsubscribe)
// and a receive-only channel of events published from this point on.
func (h *Hub) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, 256)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	return id, ch
}

// Unsubscribe removes and closes a subscriber's channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()

	if ok {
		close(ch)
	}
}

// Publish fans ev out to every current subscriber, dropping (and logging)
// for any subscriber whose buffer is full rather than blocking the
// publisher on a slow UI client.
func (h *Hub) Publish(ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Warnf("broadcast: subscriber %s buffer full, dropped %s event for station %s", id, ev.Type, ev.StationID)
		}
	}
	return nil
}

// Close unsubscribes and closes every subscriber channel.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	return nil
}

var _ Bus = (*Hub)(nil)
