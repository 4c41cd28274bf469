package enroll

import (
	"sync"
	"time"

	"omnis/kiosk/internal/types"
)

// Pending is an unrecognized face waiting for a spoken name.
type Pending struct {
	Descriptor  types.Descriptor
	Image       []byte
	PublishedAt time.Time
}

// Slot is the single enrollment handoff between the perception loop
// (producer) and the voice loop (consumer). At most one Pending is held.
type Slot struct {
	mu      sync.Mutex
	pending *Pending
}

func NewSlot() *Slot { return &Slot{} }

// Publish stores p only if the slot is empty. It reports whether p was taken.
func (s *Slot) Publish(p Pending) bool {
	if len(p.Descriptor) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		metricSlotRejected.Inc()
		return false
	}
	s.pending = &p
	metricSlotPublished.Inc()
	return true
}

// Take empties the slot and returns what was in it.
func (s *Slot) Take() (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Pending{}, false
	}
	p := *s.pending
	s.pending = nil
	return p, true
}

func (s *Slot) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Expire clears a pending request older than ttl. A zero ttl never expires.
func (s *Slot) Expire(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || now.Sub(s.pending.PublishedAt) < ttl {
		return false
	}
	s.pending = nil
	metricSlotExpired.Inc()
	return true
}
