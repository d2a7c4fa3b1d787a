package sensor

import (
	"context"
	"sort"
	"sync"
)

// ReadingSource provides the latest reading of every node, ordered by node id.
type ReadingSource interface {
	LatestReadings(ctx context.Context) ([]Reading, error)
}

// InMemoryRepository keeps the latest reading per node in memory.
// It is used by tests and local runs without a database.
type InMemoryRepository struct {
	mu     sync.RWMutex
	latest map[string]Reading
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{latest: make(map[string]Reading)}
}

// Record stores r if it is newer than the node's current latest reading.
func (r *InMemoryRepository) Record(reading Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.latest[reading.NodeID]; ok && cur.Timestamp.After(reading.Timestamp) {
		return
	}
	r.latest[reading.NodeID] = reading
}

// LatestReadings returns one reading per node ordered by node id.
func (r *InMemoryRepository) LatestReadings(_ context.Context) ([]Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Reading, 0, len(r.latest))
	for _, reading := range r.latest {
		out = append(out, reading)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

var _ ReadingSource = (*InMemoryRepository)(nil)
