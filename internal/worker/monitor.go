package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/firewatch/firewatch/internal/sensor"
)

// EventGatewayStatusChanged is the event type published on a status transition.
const EventGatewayStatusChanged = "gateway_status_changed"

// ErrSweepRunning is returned when a sweep is requested while another runs.
var ErrSweepRunning = errors.New("a status sweep is already running")

// StatusChangedEvent describes a gateway whose aggregated status changed
// between two sweeps.
type StatusChangedEvent struct {
	EventType   string        `json:"event_type"`
	GatewayID   string        `json:"gateway_id"`
	GatewayName string        `json:"gateway_name"`
	Previous    sensor.Status `json:"previous_status"`
	Current     sensor.Status `json:"current_status"`
	NodeCount   int           `json:"node_count"`
	ActiveCount int           `json:"active_count"`
	ObservedAt  time.Time     `json:"observed_at"`
}

// StatusPublisher delivers status change events.
type StatusPublisher interface {
	Publish(ctx context.Context, event StatusChangedEvent) error
}

// Monitor periodically aggregates node readings into gateway statuses and
// reports transitions.
type Monitor struct {
	config    MonitorConfig
	readings  sensor.ReadingSource
	publisher StatusPublisher
	metrics   *Metrics
	logger    zerolog.Logger
	now       func() time.Time

	sweepMu sync.Mutex

	mu       sync.RWMutex
	previous map[string]sensor.Status
	last     *SweepResult
}

// MonitorDeps holds the collaborators of a Monitor.
type MonitorDeps struct {
	Config   MonitorConfig
	Readings sensor.ReadingSource
	// Publisher is optional; without one transitions are only logged.
	Publisher StatusPublisher
	Metrics   *Metrics
	Logger    zerolog.Logger
	Now       func() time.Time
}

// NewMonitor creates a gateway status monitor.
func NewMonitor(deps MonitorDeps) *Monitor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		config:    deps.Config.withDefaults(),
		readings:  deps.Readings,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With().Str("component", "monitor").Logger(),
		now:       now,
		previous:  make(map[string]sensor.Status),
	}
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	StartTime   time.Time
	Duration    time.Duration
	Nodes       int
	ActiveNodes int
	Gateways    []sensor.GatewayStatus
	Changes     []StatusChangedEvent
	Published   int
	Failed      int
	Err         error
}

// Run sweeps once immediately and then every configured interval until ctx
// is done.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info().
		Dur("interval", m.config.Interval).
		Int("gateways", len(m.config.Inventory.Gateways)).
		Msg("gateway monitor started")

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := m.Sweep(ctx); err != nil && !errors.Is(err, ErrSweepRunning) && ctx.Err() == nil {
			m.logger.Error().Err(err).Msg("status sweep failed")
		}

		select {
		case <-ctx.Done():
			m.logger.Info().Msg("gateway monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep reads the latest readings, aggregates them per gateway, and publishes
// an event for every gateway whose status differs from the previous sweep.
// The first sweep only records a baseline.
func (m *Monitor) Sweep(ctx context.Context) (*SweepResult, error) {
	if !m.sweepMu.TryLock() {
		return nil, ErrSweepRunning
	}
	defer m.sweepMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	began := time.Now()
	start := m.now()
	result := &SweepResult{StartTime: start}

	readings, err := m.readings.LatestReadings(ctx)
	if err != nil {
		result.Err = fmt.Errorf("loading latest readings: %w", err)
		result.Duration = time.Since(began)
		m.finish(result)
		return result, result.Err
	}

	nodes := sensor.NodesFromReadings(readings, start, m.config.DefaultGateway)
	statuses := sensor.GatewayStatuses(m.config.Inventory.Gateways, nodes)

	result.Nodes = len(nodes)
	for _, n := range nodes {
		if n.Status == sensor.StatusActive {
			result.ActiveNodes++
		}
	}
	result.Gateways = statuses
	result.Changes = m.diff(statuses, start)
	m.metrics.SetGateways(statuses, nodes)

	for _, ev := range result.Changes {
		m.logger.Warn().
			Str("gateway_id", ev.GatewayID).
			Str("previous", string(ev.Previous)).
			Str("current", string(ev.Current)).
			Int("active", ev.ActiveCount).
			Int("nodes", ev.NodeCount).
			Msg("gateway status changed")
	}

	result.Published, result.Failed = m.publish(ctx, result.Changes)
	if result.Failed > 0 {
		result.Err = fmt.Errorf("publishing status events: %d of %d failed", result.Failed, len(result.Changes))
	}

	result.Duration = time.Since(began)
	m.finish(result)

	m.logger.Debug().
		Dur("duration", result.Duration).
		Int("nodes", result.Nodes).
		Int("active_nodes", result.ActiveNodes).
		Int("changes", len(result.Changes)).
		Msg("status sweep completed")

	return result, result.Err
}

// diff updates the remembered statuses and returns the transitions.
func (m *Monitor) diff(statuses []sensor.GatewayStatus, at time.Time) []StatusChangedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changes []StatusChangedEvent
	for _, gs := range statuses {
		prev, seen := m.previous[gs.ID]
		m.previous[gs.ID] = gs.Status
		if !seen || prev == gs.Status {
			continue
		}
		changes = append(changes, StatusChangedEvent{
			EventType:   EventGatewayStatusChanged,
			GatewayID:   gs.ID,
			GatewayName: gs.Name,
			Previous:    prev,
			Current:     gs.Status,
			NodeCount:   gs.NodeCount,
			ActiveCount: gs.ActiveCount,
			ObservedAt:  at,
		})
	}
	return changes
}

// publish fans events out to a bounded set of goroutines. A failed publish
// does not stop the others.
func (m *Monitor) publish(ctx context.Context, events []StatusChangedEvent) (published, failed int) {
	if m.publisher == nil || len(events) == 0 {
		return 0, 0
	}

	var ok, bad atomic.Int32
	var g errgroup.Group
	g.SetLimit(m.config.PublishConcurrency)
	for _, ev := range events {
		g.Go(func() error {
			err := m.publisher.Publish(ctx, ev)
			m.metrics.ObservePublish(err)
			if err != nil {
				m.logger.Error().Err(err).Str("gateway_id", ev.GatewayID).Msg("failed to publish status event")
				bad.Add(1)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(ok.Load()), int(bad.Load())
}

func (m *Monitor) finish(result *SweepResult) {
	m.metrics.ObserveSweep(result.Err, result.Duration)

	m.mu.Lock()
	m.last = result
	m.mu.Unlock()
}

// HealthCheck verifies that the reading source answers.
func (m *Monitor) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()
	if _, err := m.readings.LatestReadings(ctx); err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	return nil
}

// LastSweep returns the most recent sweep result, or nil before the first.
func (m *Monitor) LastSweep() *SweepResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Statuses returns the remembered status of every gateway seen so far.
func (m *Monitor) Statuses() map[string]sensor.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]sensor.Status, len(m.previous))
	for id, st := range m.previous {
		out[id] = st
	}
	return out
}
