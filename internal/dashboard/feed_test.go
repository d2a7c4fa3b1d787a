package dashboard_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/dashboard"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/sensor"
)

type flakySource struct {
	mu       sync.Mutex
	readings []sensor.Reading
	err      error
	calls    atomic.Int32
}

func (s *flakySource) LatestReadings(context.Context) ([]sensor.Reading, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]sensor.Reading(nil), s.readings...), nil
}

func (s *flakySource) set(readings []sensor.Reading, err error) {
	s.mu.Lock()
	s.readings, s.err = readings, err
	s.mu.Unlock()
}

func TestFeed_RefreshDerivesStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &flakySource{readings: []sensor.Reading{
		{NodeID: "1", Temperature: 31.5, Humidity: 70, Point: geo.Point{Lat: 16.04, Lon: 120.33}, Timestamp: now.Add(-30 * time.Second)},
		{NodeID: "2", Temperature: 29, Humidity: 65, Point: geo.Point{Lat: 16.05, Lon: 120.34}, GatewayID: "GW-X", Timestamp: now.Add(-3 * time.Minute)},
	}}
	feed := dashboard.NewFeed(dashboard.FeedConfig{
		Source: src,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return now },
	})

	require.NoError(t, feed.Refresh(context.Background()))

	nodes := feed.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "Node 1", nodes[0].Name)
	assert.Equal(t, sensor.StatusActive, nodes[0].Status)
	assert.Equal(t, sensor.DefaultGatewayID, nodes[0].GatewayID)
	assert.Equal(t, sensor.StatusInactive, nodes[1].Status)
	assert.Equal(t, "GW-X", nodes[1].GatewayID)
	assert.Equal(t, now, feed.UpdatedAt())
}

func TestFeed_FailureKeepsPreviousSnapshot(t *testing.T) {
	src := &flakySource{readings: []sensor.Reading{{NodeID: "1", Timestamp: time.Now()}}}
	feed := dashboard.NewFeed(dashboard.FeedConfig{Source: src, Logger: zerolog.Nop()})

	require.NoError(t, feed.Refresh(context.Background()))
	require.Len(t, feed.Nodes(), 1)

	src.set(nil, errors.New("connection reset"))
	require.Error(t, feed.Refresh(context.Background()))

	assert.Len(t, feed.Nodes(), 1)
}

func TestFeed_StartPollsUntilStopped(t *testing.T) {
	src := &flakySource{readings: []sensor.Reading{{NodeID: "1", Timestamp: time.Now()}}}
	var updates atomic.Int32
	feed := dashboard.NewFeed(dashboard.FeedConfig{
		Source:   src,
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
		OnUpdate: func([]sensor.Node) { updates.Add(1) },
	})

	feed.Start(context.Background())
	feed.Start(context.Background())

	assert.Eventually(t, func() bool { return updates.Load() >= 3 }, time.Second, 5*time.Millisecond)

	feed.Stop()
	stopped := src.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, src.calls.Load(), "no polls after Stop")

	feed.Stop()
}

func TestFeed_FirstFetchIsImmediate(t *testing.T) {
	src := &flakySource{}
	feed := dashboard.NewFeed(dashboard.FeedConfig{Source: src, Interval: time.Hour, Logger: zerolog.Nop()})

	feed.Start(context.Background())
	defer feed.Stop()

	assert.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}
