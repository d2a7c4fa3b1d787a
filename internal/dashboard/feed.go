package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/sensor"
)

// DefaultPollInterval is how often the feed refreshes node readings.
const DefaultPollInterval = 5 * time.Second

// FeedConfig holds configuration for a Feed.
type FeedConfig struct {
	Source         sensor.ReadingSource
	Interval       time.Duration
	DefaultGateway string
	Logger         zerolog.Logger

	// Now returns the reference time for recency. Defaults to time.Now.
	Now func() time.Time

	// OnUpdate, when set, receives every new snapshot.
	OnUpdate func([]sensor.Node)
}

// Feed polls the latest reading per node and keeps the derived node list.
// Each successful poll replaces the snapshot wholesale; a failed poll keeps
// the previous one.
type Feed struct {
	source         sensor.ReadingSource
	interval       time.Duration
	defaultGateway string
	logger         zerolog.Logger
	now            func() time.Time
	onUpdate       func([]sensor.Node)

	mu        sync.RWMutex
	nodes     []sensor.Node
	updatedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewFeed creates a feed. Call Start to begin polling.
func NewFeed(cfg FeedConfig) *Feed {
	f := &Feed{
		source:         cfg.Source,
		interval:       cfg.Interval,
		defaultGateway: cfg.DefaultGateway,
		logger:         cfg.Logger.With().Str("component", "feed").Logger(),
		now:            cfg.Now,
		onUpdate:       cfg.OnUpdate,
		nodes:          []sensor.Node{},
	}
	if f.interval <= 0 {
		f.interval = DefaultPollInterval
	}
	if f.defaultGateway == "" {
		f.defaultGateway = sensor.DefaultGatewayID
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Start fetches immediately and then on every interval until Stop is called
// or ctx is done. Calling Start on a running feed does nothing.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	f.mu.Unlock()

	go f.run(ctx, done)
}

func (f *Feed) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	_ = f.Refresh(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = f.Refresh(ctx)
		}
	}
}

// Stop cancels polling and waits for the loop to exit.
func (f *Feed) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Refresh performs a single poll.
func (f *Feed) Refresh(ctx context.Context) error {
	readings, err := f.source.LatestReadings(ctx)
	if err != nil {
		if ctx.Err() == nil {
			f.logger.Warn().Err(err).Msg("failed to fetch node readings, keeping previous snapshot")
		}
		return err
	}

	now := f.now()
	nodes := sensor.NodesFromReadings(readings, now, f.defaultGateway)

	f.mu.Lock()
	f.nodes = nodes
	f.updatedAt = now
	f.mu.Unlock()

	f.logger.Debug().Int("nodes", len(nodes)).Msg("node snapshot updated")
	if f.onUpdate != nil {
		f.onUpdate(copyNodes(nodes))
	}
	return nil
}

// Nodes returns a copy of the current snapshot.
func (f *Feed) Nodes() []sensor.Node {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyNodes(f.nodes)
}

// UpdatedAt returns the time of the last successful poll.
func (f *Feed) UpdatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updatedAt
}

func copyNodes(nodes []sensor.Node) []sensor.Node {
	out := make([]sensor.Node, len(nodes))
	copy(out, nodes)
	return out
}
