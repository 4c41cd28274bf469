package events

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"omnis/kiosk/internal/types"
)

const DefaultMaxEvents = 200

// Hub keeps a capped log of kiosk events and fans new ones out to live
// subscribers. Slow subscribers miss events rather than block publishers.
type Hub struct {
	mu     sync.RWMutex
	log    []types.Event
	max    int
	subs   map[string]chan types.Event
	warned bool
}

func NewHub(max int) *Hub {
	if max <= 0 {
		max = DefaultMaxEvents
	}
	return &Hub{max: max, subs: make(map[string]chan types.Event)}
}

// Publish records an event and delivers it to subscribers.
func (h *Hub) Publish(typ string, payload map[string]any) {
	h.Append(typ, payload)
}

func (h *Hub) Append(typ string, payload map[string]any) types.Event {
	evt := types.Event{
		ID:      uuid.NewString(),
		Type:    typ,
		Ts:      time.Now().UTC(),
		Payload: payload,
	}
	h.mu.Lock()
	h.log = append(h.log, evt)
	if len(h.log) > h.max {
		if !h.warned {
			log.Printf("[events] log reached %d entries, dropping oldest", h.max)
			h.warned = true
		}
		h.log = append([]types.Event(nil), h.log[len(h.log)-h.max:]...)
	}
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			eventsDropped.Inc()
		}
	}
	h.mu.Unlock()
	eventsTotal.WithLabelValues(typ).Inc()
	return evt
}

// List returns a copy of the retained events, oldest first.
func (h *Hub) List() []types.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.Event, len(h.log))
	copy(out, h.log)
	return out
}

// Subscribe registers a live listener. cancel must be called to release it.
func (h *Hub) Subscribe(buffer int) (<-chan types.Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	id := uuid.NewString()
	ch := make(chan types.Event, buffer)
	h.mu.Lock()
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()
	gaugeSubscribers.Set(float64(n))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			n := len(h.subs)
			h.mu.Unlock()
			gaugeSubscribers.Set(float64(n))
		})
	}
}
