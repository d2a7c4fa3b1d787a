package client_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/api"
	"github.com/firewatch/firewatch/internal/client"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/pins"
	"github.com/firewatch/firewatch/internal/routing"
	"github.com/firewatch/firewatch/internal/sensor"
)

type echoDirections struct{}

func (echoDirections) Directions(_ context.Context, start, end geo.Point) (*routing.Route, error) {
	return &routing.Route{Path: []geo.Point{start, end}, DistanceMeters: 4321, DurationSeconds: 620}, nil
}

type fixedSearcher struct{}

func (fixedSearcher) Search(_ context.Context, q string) ([]geocode.Suggestion, error) {
	if len(q) < geocode.MinQueryLength {
		return []geocode.Suggestion{}, nil
	}
	return []geocode.Suggestion{{PlaceID: 7, Point: geo.Point{Lat: 16.0433, Lon: 120.3339}, DisplayName: "Dagupan City Hall"}}, nil
}

type testAPI struct {
	server   *httptest.Server
	readings *sensor.InMemoryRepository
	store    *pins.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	readings := sensor.NewInMemoryRepository()
	store := pins.NewMemoryStore()
	server := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Version:    "test",
		Logger:     zerolog.Nop(),
		Readings:   readings,
		Inventory:  sensor.DefaultInventory(),
		Directions: echoDirections{},
		Geocoder:   fixedSearcher{},
		Pins:       store,
	}))
	t.Cleanup(server.Close)
	return &testAPI{server: server, readings: readings, store: store}
}

func newClient(baseURL string) *client.Client {
	return client.New(client.Config{
		BaseURL:           baseURL,
		ReconnectInterval: 10 * time.Millisecond,
		Logger:            zerolog.Nop(),
	})
}

func TestClient_LatestReadings(t *testing.T) {
	a := newTestAPI(t)
	ts := time.Now().UTC().Truncate(time.Second)
	a.readings.Record(sensor.Reading{NodeID: "N1", Temperature: 31.5, Humidity: 64, Point: geo.Point{Lat: 16.04, Lon: 120.33}, Timestamp: ts})
	a.readings.Record(sensor.Reading{NodeID: "N2", GatewayID: "GW-DAG", Point: geo.Point{Lat: 16.05, Lon: 120.34}, Timestamp: ts})

	readings, err := newClient(a.server.URL).LatestReadings(context.Background())
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, "N1", readings[0].NodeID)
	assert.Equal(t, 31.5, readings[0].Temperature)
	assert.Equal(t, geo.Point{Lat: 16.04, Lon: 120.33}, readings[0].Point)
	assert.Equal(t, sensor.DefaultGatewayID, readings[0].GatewayID)
	assert.True(t, ts.Equal(readings[0].Timestamp))
}

func TestClient_Directions(t *testing.T) {
	a := newTestAPI(t)
	start := geo.Point{Lat: 16.046882, Lon: 120.341154}
	end := geo.Point{Lat: 16.0433, Lon: 120.3339}

	route, err := newClient(a.server.URL).Directions(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, []geo.Point{start, end}, route.Path)
	assert.Equal(t, "4.32 km", route.DistanceLabel())
	assert.Equal(t, "~10 mins", route.DurationLabel())
}

func TestClient_Directions_ErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"message body", http.StatusForbidden, `{"message":"Quota exceeded"}`, "Quota exceeded"},
		{"json without message", http.StatusBadRequest, `{"error":"bad"}`, `{"error":"bad"}`},
		{"plain text", http.StatusBadGateway, "upstream timed out", "upstream timed out"},
		{"empty body", http.StatusInternalServerError, "", "Error from routing service: Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newClient(server.URL).Directions(context.Background(), geo.Point{Lat: 16, Lon: 120}, geo.Point{Lat: 16.1, Lon: 120.1})

			var routeErr *routing.Error
			require.ErrorAs(t, err, &routeErr)
			assert.Equal(t, tt.status, routeErr.StatusCode)
			assert.Equal(t, tt.wantMessage, routeErr.Message)
			assert.ErrorIs(t, err, routing.ErrUpstream)
		})
	}
}

func TestClient_Search(t *testing.T) {
	a := newTestAPI(t)
	c := newClient(a.server.URL)

	suggestions, err := c.Search(context.Background(), "city hall")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, int64(7), suggestions[0].PlaceID)
	assert.Equal(t, geo.Point{Lat: 16.0433, Lon: 120.3339}, suggestions[0].Point)

	suggestions, err = c.Search(context.Background(), "ab")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestClient_LocationsLifecycle(t *testing.T) {
	a := newTestAPI(t)
	c := newClient(a.server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := c.Watch(ctx)
	require.NoError(t, err)

	created, err := c.Add(ctx, pins.Location{Name: "  Water Refill  ", Point: geo.Point{Lat: 16.05, Lon: 120.34}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Water Refill", created.Name)
	waitSignal(t, changes)

	locs, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, created.ID, locs[0].ID)
	assert.Equal(t, geo.Point{Lat: 16.05, Lon: 120.34}, locs[0].Point)

	require.NoError(t, c.Remove(ctx, created.ID))
	waitSignal(t, changes)
	assert.ErrorIs(t, c.Remove(ctx, created.ID), pins.ErrNotFound)

	cancel()
	waitClosed(t, changes)
}

func TestClient_Add_Validation(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":400,"detail":"invalid location","errors":[{"field":"latitude","message":"out of range","code":"range"}]}`)
	}))
	defer server.Close()
	c := newClient(server.URL)

	_, err := c.Add(context.Background(), pins.Location{Name: " ", Point: geo.Point{Lat: 16, Lon: 120}})
	assert.ErrorIs(t, err, pins.ErrNameRequired)
	assert.Zero(t, calls.Load(), "invalid input is rejected locally")

	_, err = c.Add(context.Background(), pins.Location{Name: "Depot", Point: geo.Point{Lat: 16, Lon: 120}})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_WatchReconnects(t *testing.T) {
	var connections atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := connections.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, ": connected\n\n")
		w.(http.Flusher).Flush()
		if n == 1 {
			return
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := newClient(server.URL).Watch(ctx)
	require.NoError(t, err)

	waitSignal(t, changes)
	assert.GreaterOrEqual(t, connections.Load(), int32(2))

	cancel()
	waitClosed(t, changes)
}

func TestClient_WatchRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newClient(server.URL).Watch(context.Background())
	assert.ErrorIs(t, err, client.ErrUnexpectedStatus)
}

func TestClient_ProblemDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"status":503,"detail":"readings are unavailable"}`)
	}))
	defer server.Close()

	_, err := newClient(server.URL).LatestReadings(context.Background())
	require.ErrorIs(t, err, client.ErrUnexpectedStatus)
	assert.True(t, strings.Contains(err.Error(), "readings are unavailable"))
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change signal")
	}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel was not closed")
		}
	}
}
