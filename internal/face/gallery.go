package face

import (
	"errors"
	"sync"

	"omnis/kiosk/internal/types"
)

var ErrNameExists = errors.New("name already enrolled")

// Gallery is the in-memory set of enrolled faces shared by the perception
// loop (readers) and enrollment (writer). Order is enrollment order.
type Gallery struct {
	mu      sync.RWMutex
	records []types.FaceRecord
	byName  map[string]int
}

func NewGallery(records []types.FaceRecord) *Gallery {
	g := &Gallery{byName: make(map[string]int)}
	for _, r := range records {
		if _, ok := g.byName[r.Name]; ok {
			continue
		}
		g.byName[r.Name] = len(g.records)
		g.records = append(g.records, r)
	}
	gaugeGallerySize.Set(float64(len(g.records)))
	return g
}

// Add appends a newly enrolled record.
func (g *Gallery) Add(r types.FaceRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.byName[r.Name]; ok {
		return ErrNameExists
	}
	g.byName[r.Name] = len(g.records)
	g.records = append(g.records, r)
	gaugeGallerySize.Set(float64(len(g.records)))
	return nil
}

func (g *Gallery) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.byName[name]
	return ok
}

// Snapshot returns a copy safe to iterate without holding the lock.
// Descriptors are shared; they are never mutated after enrollment.
func (g *Gallery) Snapshot() []types.FaceRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]types.FaceRecord, len(g.records))
	copy(out, g.records)
	return out
}

func (g *Gallery) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.records))
	for i, r := range g.records {
		out[i] = r.Name
	}
	return out
}

func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}
