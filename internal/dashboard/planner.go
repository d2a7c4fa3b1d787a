package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/routing"
	"github.com/firewatch/firewatch/internal/sensor"
)

// ErrSuperseded is returned to a route request whose result was discarded
// because a newer request or a clear happened while it was in flight.
var ErrSuperseded = errors.New("route request superseded")

// ErrPointsMissing is returned when a route is requested before both points are set.
var ErrPointsMissing = errors.New("start and end points are required")

// User-facing planner messages.
const (
	msgSelectPoints   = "Please select a start and end point."
	msgStartSelected  = "Start point selected. Click on map for end point."
	msgEndSelected    = "End point selected. Calculate route."
	msgPointsSelected = "Start/end points already selected. Clear route to select new points."
	msgRouteCleared   = "Route cleared."
	msgRouteFailed    = "Failed to calculate route."
)

// State is the route planner state.
type State int

// Planner states.
const (
	StateIdle State = iota
	StateAwaitingStart
	StateAwaitingEnd
	StateReady
	StateResolved
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingStart:
		return "awaiting_start"
	case StateAwaitingEnd:
		return "awaiting_end"
	case StateReady:
		return "ready"
	case StateResolved:
		return "resolved"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PlannerSnapshot is a copy of the planner state.
type PlannerSnapshot struct {
	State     State
	PanelOpen bool
	Start     *geo.Point
	End       *geo.Point
	Route     *routing.Route
}

// PlannerConfig holds configuration for a Planner.
type PlannerConfig struct {
	Provider routing.Provider
	Gateways []sensor.Gateway
	Viewport *Viewport
	Notifier Notifier
	Logger   zerolog.Logger

	// OnTransition, when set, is called after every state change.
	OnTransition func(from, to State)
}

// Planner is the route planning state machine.
//
// Every request takes a sequence number. Only the holder of the latest
// sequence may write the result, so a newer trigger or a clear silently
// discards older in-flight responses.
type Planner struct {
	provider     routing.Provider
	gateways     []sensor.Gateway
	viewport     *Viewport
	notifier     Notifier
	logger       zerolog.Logger
	onTransition func(from, to State)

	mu        sync.Mutex
	state     State
	panelOpen bool
	start     *geo.Point
	end       *geo.Point
	route     *routing.Route
	seq       uint64
}

// NewPlanner creates a planner in the Idle state.
func NewPlanner(cfg PlannerConfig) *Planner {
	return &Planner{
		provider:     cfg.Provider,
		gateways:     cfg.Gateways,
		viewport:     cfg.Viewport,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger.With().Str("component", "planner").Logger(),
		onTransition: cfg.OnTransition,
		state:        StateIdle,
	}
}

// Snapshot returns a copy of the planner state.
func (p *Planner) Snapshot() PlannerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PlannerSnapshot{State: p.state, PanelOpen: p.panelOpen}
	if p.start != nil {
		pt := *p.start
		s.Start = &pt
	}
	if p.end != nil {
		pt := *p.end
		s.End = &pt
	}
	if p.route != nil {
		r := *p.route
		s.Route = &r
	}
	return s
}

// PanelOpen reports whether the routing panel is open.
func (p *Planner) PanelOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.panelOpen
}

// OpenPanel opens the routing panel. An idle planner starts waiting for a start point.
func (p *Planner) OpenPanel() {
	p.mu.Lock()
	p.panelOpen = true
	from := p.state
	if p.state == StateIdle {
		p.state = StateAwaitingStart
	}
	to := p.state
	p.mu.Unlock()

	p.transitioned(from, to)
}

// ClosePanel closes the routing panel. Selected points and any route are kept.
func (p *Planner) ClosePanel() {
	p.mu.Lock()
	p.panelOpen = false
	from := p.state
	if p.state == StateAwaitingStart {
		p.state = StateIdle
	}
	to := p.state
	p.mu.Unlock()

	p.transitioned(from, to)
}

// Click handles a map click while the routing panel is open.
func (p *Planner) Click(pt geo.Point) {
	p.mu.Lock()
	from := p.state
	var level Level
	var msg string
	switch p.state {
	case StateIdle:
		p.mu.Unlock()
		return
	case StateAwaitingStart:
		p.start = &pt
		p.state = StateAwaitingEnd
		level, msg = LevelInfo, msgStartSelected
	case StateAwaitingEnd:
		p.end = &pt
		p.state = StateReady
		level, msg = LevelSuccess, msgEndSelected
	default:
		level, msg = LevelWarning, msgPointsSelected
	}
	to := p.state
	p.mu.Unlock()

	p.transitioned(from, to)
	notify(p.notifier, level, msg)
}

// Calculate requests a route between the selected points. It blocks until the
// provider answers. A result that was superseded meanwhile is discarded and
// ErrSuperseded is returned.
func (p *Planner) Calculate(ctx context.Context) (*routing.Route, error) {
	p.mu.Lock()
	if p.start == nil || p.end == nil {
		p.mu.Unlock()
		notify(p.notifier, LevelWarning, msgSelectPoints)
		return nil, ErrPointsMissing
	}
	start, end := *p.start, *p.end
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	return p.resolve(ctx, seq, start, end)
}

// RouteTo routes from the gateway nearest to target, or the default origin
// when no gateway is known, to target. Manual point picking is bypassed.
// The previous route stays in place until the new one resolves.
func (p *Planner) RouteTo(ctx context.Context, target geo.Point) (*routing.Route, error) {
	start := sensor.NearestOrigin(target, p.gateways)

	p.mu.Lock()
	from := p.state
	p.start = &start
	end := target
	p.end = &end
	p.state = StateReady
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	p.transitioned(from, StateReady)
	return p.resolve(ctx, seq, start, target)
}

// Clear drops the selected points and route and waits for a new start point.
// Any request in flight is discarded when it completes.
func (p *Planner) Clear() {
	p.mu.Lock()
	from := p.state
	p.start = nil
	p.end = nil
	p.route = nil
	p.seq++
	p.state = StateAwaitingStart
	p.mu.Unlock()

	p.transitioned(from, StateAwaitingStart)
	notify(p.notifier, LevelInfo, msgRouteCleared)
}

func (p *Planner) resolve(ctx context.Context, seq uint64, start, end geo.Point) (*routing.Route, error) {
	route, err := p.provider.Directions(ctx, start, end)

	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		p.logger.Debug().Uint64("seq", seq).Msg("discarding superseded route result")
		return nil, ErrSuperseded
	}
	from := p.state

	// A failure keeps the last drawn route.
	if err != nil {
		p.state = StateReady
		p.mu.Unlock()

		p.logger.Warn().Err(err).Msg("route calculation failed")
		p.transitioned(from, StateError)
		notify(p.notifier, LevelError, routeErrorMessage(err))
		p.transitioned(StateError, StateReady)
		return nil, err
	}

	p.route = route
	p.state = StateResolved
	p.mu.Unlock()

	if p.viewport != nil {
		if b, ok := route.Bounds(); ok {
			p.viewport.FitBounds(b, RouteFitPadding)
		}
	}
	p.transitioned(from, StateResolved)
	return route, nil
}

func (p *Planner) transitioned(from, to State) {
	if from == to {
		return
	}
	p.logger.Debug().Stringer("from", from).Stringer("to", to).Msg("planner transition")
	if p.onTransition != nil {
		p.onTransition(from, to)
	}
}

func routeErrorMessage(err error) string {
	var routeErr *routing.Error
	if errors.As(err, &routeErr) && routeErr.Message != "" {
		return routeErr.Message
	}
	return msgRouteFailed
}
