package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/dashboard"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/pins"
	"github.com/firewatch/firewatch/internal/routing"
	"github.com/firewatch/firewatch/internal/sensor"
)

type straightLine struct{}

func (straightLine) Directions(_ context.Context, start, end geo.Point) (*routing.Route, error) {
	return &routing.Route{Path: []geo.Point{start, end}, DistanceMeters: 1500, DurationSeconds: 240}, nil
}

func (straightLine) Name() string { return "straight" }

type noSuggestions struct{}

func (noSuggestions) Search(context.Context, string) ([]geocode.Suggestion, error) {
	return []geocode.Suggestion{}, nil
}

// syncBuffer guards a buffer written by session callbacks.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestConsole(t *testing.T) (*console, *syncBuffer, *pins.MemoryStore) {
	t.Helper()
	readings := sensor.NewInMemoryRepository()
	readings.Record(sensor.Reading{NodeID: "N1", Temperature: 29.5, Humidity: 70, Point: geo.Point{Lat: 16.04, Lon: 120.33}, Timestamp: time.Now()})
	store := pins.NewMemoryStore()

	out := &syncBuffer{}
	con := newConsole(out, false)
	con.session = dashboard.NewSession(dashboard.SessionConfig{
		Readings:     readings,
		Routes:       straightLine{},
		Geocoder:     noSuggestions{},
		Pins:         store,
		Inventory:    sensor.DefaultInventory(),
		Notifier:     con,
		Logger:       zerolog.Nop(),
		PollInterval: time.Hour,
		CloseDelay:   time.Hour,
		OnTransition: con.showTransition,
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, con.session.Start(ctx))
	require.NoError(t, con.session.Feed.Refresh(ctx))
	t.Cleanup(func() {
		cancel()
		con.session.Close()
	})
	return con, out, store
}

func TestConsole_Lists(t *testing.T) {
	con, out, _ := newTestConsole(t)
	ctx := context.Background()

	con.exec(ctx, "nodes")
	con.exec(ctx, "gateways")
	con.exec(ctx, "incidents")

	text := out.String()
	assert.Contains(t, text, "N1")
	assert.Contains(t, text, "29.5°C")
	assert.Contains(t, text, "GW-DAG")
	assert.Contains(t, text, "1/1")
	assert.Contains(t, text, "INC-001")
	assert.Contains(t, text, "Malued District")
}

func TestConsole_GotoAndSavePin(t *testing.T) {
	con, out, store := newTestConsole(t)
	ctx := context.Background()

	con.exec(ctx, "goto abc")
	assert.Contains(t, out.String(), "Invalid format")

	con.exec(ctx, "goto 16.05, 120.34")
	assert.Contains(t, out.String(), "Map centered on coordinates.")
	assert.Contains(t, out.String(), "zoom 16")

	con.exec(ctx, "name Water Refill")
	con.exec(ctx, "desc near the plaza")
	con.exec(ctx, "save")
	assert.Contains(t, out.String(), "Location saved successfully")

	locs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "Water Refill", locs[0].Name)
	assert.Equal(t, geo.Point{Lat: 16.05, Lon: 120.34}, locs[0].Point)

	require.Eventually(t, func() bool { return len(con.session.Pins.Locations()) == 1 }, time.Second, 10*time.Millisecond)
	con.exec(ctx, "pins")
	assert.Contains(t, out.String(), "near the plaza")
}

func TestConsole_RouteToIncident(t *testing.T) {
	con, out, _ := newTestConsole(t)
	ctx := context.Background()

	con.exec(ctx, "route incident INC-001")
	assert.Contains(t, out.String(), "route: 1.50 km, ~4 mins, 2 points")
	assert.Contains(t, out.String(), "planner: idle -> ready")

	con.exec(ctx, "route incident INC-999")
	assert.Contains(t, out.String(), "unknown map entity")
}

func TestConsole_ManualRoute(t *testing.T) {
	con, out, _ := newTestConsole(t)
	ctx := context.Background()

	con.exec(ctx, "panel open")
	con.exec(ctx, "click 16.04, 120.33")
	con.exec(ctx, "click 16.07, 120.35")
	con.exec(ctx, "calc")
	con.exec(ctx, "status")

	text := out.String()
	assert.Contains(t, text, "route: 1.50 km")
	assert.Contains(t, text, "planner: resolved, panel open: true")
}

func TestConsole_RunStopsOnQuit(t *testing.T) {
	con, out, _ := newTestConsole(t)

	err := con.run(context.Background(), strings.NewReader("bogus\nquit\nnodes\n"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), `unknown command "bogus"`)
	assert.NotContains(t, out.String(), "N1", "commands after quit are not executed")
}
