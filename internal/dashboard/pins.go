package dashboard

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/pins"
)

// User-facing pin messages.
const (
	msgPinSaved        = "Location saved successfully"
	msgPinSaveFailed   = "Failed to save location."
	msgPinRemoved      = "Location removed"
	msgPinRemoveFailed = "Failed to remove location."
)

// PinAdapter mirrors the remote pin collection.
//
// The subscription is the only writer of the mirror: Add and Remove forward
// to the store and report the outcome as a notification, and the change
// arrives later through Watch as a full re-read.
type PinAdapter struct {
	store    pins.Store
	notifier Notifier
	logger   zerolog.Logger

	mu        sync.Mutex
	locations []pins.Location
	subs      map[int]func([]pins.Location)
	nextSub   int
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPinAdapter creates an adapter over store.
func NewPinAdapter(store pins.Store, notifier Notifier, logger zerolog.Logger) *PinAdapter {
	return &PinAdapter{
		store:     store,
		notifier:  notifier,
		logger:    logger.With().Str("component", "pins").Logger(),
		locations: []pins.Location{},
		subs:      make(map[int]func([]pins.Location)),
	}
}

// Start subscribes to the remote collection and loads the current set.
// The subscription lasts until Stop is called or ctx is done.
func (a *PinAdapter) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	changes, err := a.store.Watch(ctx)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	a.reload(ctx)

	go func() {
		defer close(done)
		for range changes {
			a.reload(ctx)
		}
	}()
	return nil
}

// Stop ends the subscription and waits for it to finish.
func (a *PinAdapter) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *PinAdapter) reload(ctx context.Context) {
	locs, err := a.store.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn().Err(err).Msg("failed to list locations")
		}
		return
	}

	a.mu.Lock()
	a.locations = locs
	subs := make([]func([]pins.Location), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(copyLocations(locs))
	}
}

// Subscribe registers fn to receive the full set on every change. fn is
// called once immediately with the current set. The returned function
// removes the subscription.
func (a *PinAdapter) Subscribe(fn func([]pins.Location)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	current := copyLocations(a.locations)
	a.mu.Unlock()

	fn(current)

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Locations returns the mirrored set ordered by name.
func (a *PinAdapter) Locations() []pins.Location {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyLocations(a.locations)
}

// Find returns the mirrored location with the given id.
func (a *PinAdapter) Find(id string) (pins.Location, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, l := range a.locations {
		if l.ID == id {
			return l, true
		}
	}
	return pins.Location{}, false
}

// Add asks the store to save loc.
func (a *PinAdapter) Add(ctx context.Context, loc pins.Location) error {
	if _, err := a.store.Add(ctx, loc); err != nil {
		a.logger.Error().Err(err).Str("name", loc.Name).Msg("failed to save location")
		notify(a.notifier, LevelError, msgPinSaveFailed)
		return err
	}
	notify(a.notifier, LevelSuccess, msgPinSaved)
	return nil
}

// Remove asks the store to delete the location with the given id.
func (a *PinAdapter) Remove(ctx context.Context, id string) error {
	if err := a.store.Remove(ctx, id); err != nil {
		a.logger.Error().Err(err).Str("id", id).Msg("failed to remove location")
		notify(a.notifier, LevelError, msgPinRemoveFailed)
		return err
	}
	notify(a.notifier, LevelSuccess, msgPinRemoved)
	return nil
}

func copyLocations(locs []pins.Location) []pins.Location {
	out := make([]pins.Location, len(locs))
	copy(out, locs)
	return out
}
