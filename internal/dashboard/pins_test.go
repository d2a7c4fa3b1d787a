package dashboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/dashboard"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/pins"
)

func TestPinAdapter_MirrorsStore(t *testing.T) {
	store := pins.NewMemoryStore()
	_, err := store.Add(context.Background(), pins.Location{Name: "Station 2", Point: geo.Point{Lat: 16.05, Lon: 120.34}})
	require.NoError(t, err)

	rec := &recorder{}
	adapter := dashboard.NewPinAdapter(store, rec, zerolog.Nop())
	require.NoError(t, adapter.Start(context.Background()))
	defer adapter.Stop()

	require.Len(t, adapter.Locations(), 1)

	var mu sync.Mutex
	var pushes [][]pins.Location
	unsubscribe := adapter.Subscribe(func(locs []pins.Location) {
		mu.Lock()
		pushes = append(pushes, locs)
		mu.Unlock()
	})
	defer unsubscribe()

	require.NoError(t, adapter.Add(context.Background(), pins.Location{
		Name:        "Evacuation Center",
		Description: "Bonuan gym",
		Point:       geo.Point{Lat: 16.08, Lon: 120.36},
	}))
	assert.Equal(t, dashboard.Notification{Level: dashboard.LevelSuccess, Message: "Location saved successfully"}, rec.last())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(pushes) >= 2 && len(pushes[len(pushes)-1]) == 2
	}, time.Second, 5*time.Millisecond)

	locs := adapter.Locations()
	assert.Equal(t, "Evacuation Center", locs[0].Name, "ordered by name")
	assert.Equal(t, "Bonuan gym", locs[0].Description)
	assert.Equal(t, geo.Point{Lat: 16.08, Lon: 120.36}, locs[0].Point)

	mu.Lock()
	assert.Len(t, pushes[0], 1, "subscribe delivers the current set")
	mu.Unlock()

	require.NoError(t, adapter.Remove(context.Background(), locs[0].ID))
	assert.Equal(t, "Location removed", rec.last().Message)
	assert.Eventually(t, func() bool { return len(adapter.Locations()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestPinAdapter_RemoveUnknown(t *testing.T) {
	rec := &recorder{}
	adapter := dashboard.NewPinAdapter(pins.NewMemoryStore(), rec, zerolog.Nop())

	err := adapter.Remove(context.Background(), "missing")

	assert.ErrorIs(t, err, pins.ErrNotFound)
	assert.Equal(t, dashboard.Notification{Level: dashboard.LevelError, Message: "Failed to remove location."}, rec.last())
}

func TestPinAdapter_AddDoesNotEditMirror(t *testing.T) {
	adapter := dashboard.NewPinAdapter(pins.NewMemoryStore(), &recorder{}, zerolog.Nop())

	require.NoError(t, adapter.Add(context.Background(), pins.Location{Name: "Depot", Point: testStart}))

	assert.Empty(t, adapter.Locations(), "only the subscription writes the mirror")
}
