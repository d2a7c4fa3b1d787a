package pins

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. It backs local runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	locations map[string]Location
	watchers  map[chan struct{}]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locations: make(map[string]Location),
		watchers:  make(map[chan struct{}]struct{}),
	}
}

// List returns every location ordered by name.
func (s *MemoryStore) List(_ context.Context) ([]Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Location, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	sortByName(out)
	return out, nil
}

// Add stores loc under a fresh id.
func (s *MemoryStore) Add(_ context.Context, loc Location) (Location, error) {
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	loc.ID = uuid.NewString()
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.locations[loc.ID] = loc
	s.broadcastLocked()
	s.mu.Unlock()

	return loc, nil
}

// Remove deletes a location.
func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return ErrNotFound
	}
	delete(s.locations, id)
	s.broadcastLocked()
	return nil
}

// Watch registers a change listener until ctx is done.
func (s *MemoryStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

// broadcastLocked signals every watcher. A watcher that already has a pending
// signal is skipped; it will re-read the whole collection anyway.
func (s *MemoryStore) broadcastLocked() {
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func sortByName(locs []Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		if locs[i].Name != locs[j].Name {
			return locs[i].Name < locs[j].Name
		}
		return locs[i].ID < locs[j].ID
	})
}

var _ Store = (*MemoryStore)(nil)
