package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/pins"
	"github.com/firewatch/firewatch/internal/routing"
	"github.com/firewatch/firewatch/internal/sensor"
)

// ErrUnknownEntity is returned when a selected node, incident or pin does not exist.
var ErrUnknownEntity = errors.New("unknown map entity")

// User-facing coordinate search messages.
const (
	msgInvalidFormat      = `Invalid format. Please use "latitude, longitude".`
	msgInvalidCoordinates = "Invalid latitude or longitude values."
	msgCentered           = "Map centered on coordinates."
)

// SessionConfig holds the collaborators and tuning of a Session.
type SessionConfig struct {
	Readings  sensor.ReadingSource
	Routes    routing.Provider
	Geocoder  geocode.Searcher
	Pins      pins.Store
	Inventory sensor.Inventory
	Notifier  Notifier
	Logger    zerolog.Logger

	ViewportWidth  int
	ViewportHeight int
	PollInterval   time.Duration
	Debounce       time.Duration
	CloseDelay     time.Duration
	Now            func() time.Time

	OnNodes       func([]sensor.Node)
	OnSuggestions func([]geocode.Suggestion)
	OnTransition  func(from, to State)
}

// Session ties the dashboard components together for one map view.
type Session struct {
	Viewport    *Viewport
	Planner     *Planner
	Suggestions *SuggestionBox
	Pins        *PinAdapter
	Feed        *Feed
	Placement   *Placement

	inventory sensor.Inventory
	notifier  Notifier
	logger    zerolog.Logger
}

// NewSession wires a session from cfg. Call Start to begin live updates.
func NewSession(cfg SessionConfig) *Session {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(cfg.Logger)
	}

	viewport := NewViewport(cfg.ViewportWidth, cfg.ViewportHeight)
	adapter := NewPinAdapter(cfg.Pins, notifier, cfg.Logger)

	return &Session{
		Viewport: viewport,
		Planner: NewPlanner(PlannerConfig{
			Provider:     cfg.Routes,
			Gateways:     cfg.Inventory.Gateways,
			Viewport:     viewport,
			Notifier:     notifier,
			Logger:       cfg.Logger,
			OnTransition: cfg.OnTransition,
		}),
		Suggestions: NewSuggestionBox(SuggestionConfig{
			Searcher: cfg.Geocoder,
			Debounce: cfg.Debounce,
			Logger:   cfg.Logger,
			OnChange: cfg.OnSuggestions,
		}),
		Pins: adapter,
		Feed: NewFeed(FeedConfig{
			Source:   cfg.Readings,
			Interval: cfg.PollInterval,
			Logger:   cfg.Logger,
			Now:      cfg.Now,
			OnUpdate: cfg.OnNodes,
		}),
		Placement: NewPlacement(adapter, notifier, cfg.CloseDelay),
		inventory: cfg.Inventory,
		notifier:  notifier,
		logger:    cfg.Logger.With().Str("component", "session").Logger(),
	}
}

// Start begins node polling and the pin subscription.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Pins.Start(ctx); err != nil {
		return fmt.Errorf("subscribing to locations: %w", err)
	}
	s.Feed.Start(ctx)
	return nil
}

// Close stops every timer and subscription owned by the session.
func (s *Session) Close() {
	s.Feed.Stop()
	s.Pins.Stop()
	s.Suggestions.Close()
	s.Placement.Close()
}

// HandleMapClick routes a click to the planner while the routing panel is
// open and to the pin form otherwise.
func (s *Session) HandleMapClick(p geo.Point) {
	if s.Planner.PanelOpen() {
		s.Planner.Click(p)
		return
	}
	s.Placement.Click(p)
}

// SelectSuggestion flies to a geocoding suggestion.
func (s *Session) SelectSuggestion(sg geocode.Suggestion) {
	s.Suggestions.Select(sg)
	s.Viewport.FlyTo(sg.Point, SuggestionZoom)
}

// GoToCoordinates parses "lat, lng" input, marks it for pinning and flies there.
func (s *Session) GoToCoordinates(input string) (geo.Point, error) {
	p, err := geo.ParsePair(input)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidFormat) {
			notify(s.notifier, LevelError, msgInvalidFormat)
		} else {
			notify(s.notifier, LevelError, msgInvalidCoordinates)
		}
		return geo.Point{}, err
	}

	s.Placement.SetPoint(p)
	s.Viewport.FlyTo(p, FocusZoom)
	notify(s.notifier, LevelSuccess, msgCentered)
	return p, nil
}

// SelectNode focuses a node and routes to it from the nearest gateway.
func (s *Session) SelectNode(ctx context.Context, id string) (*routing.Route, error) {
	for _, n := range s.Feed.Nodes() {
		if n.ID == id {
			return s.focusAndRoute(ctx, n.Point)
		}
	}
	return nil, fmt.Errorf("%w: node %s", ErrUnknownEntity, id)
}

// SelectIncident focuses an incident and routes to it from the nearest gateway.
func (s *Session) SelectIncident(ctx context.Context, id string) (*routing.Route, error) {
	for _, inc := range s.inventory.Incidents {
		if inc.ID == id {
			return s.focusAndRoute(ctx, inc.Point)
		}
	}
	return nil, fmt.Errorf("%w: incident %s", ErrUnknownEntity, id)
}

// SelectPin focuses a saved location and routes to it from the nearest gateway.
func (s *Session) SelectPin(ctx context.Context, id string) (*routing.Route, error) {
	loc, ok := s.Pins.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: location %s", ErrUnknownEntity, id)
	}
	return s.focusAndRoute(ctx, loc.Point)
}

func (s *Session) focusAndRoute(ctx context.Context, p geo.Point) (*routing.Route, error) {
	s.Viewport.FlyTo(p, FocusZoom)
	return s.Planner.RouteTo(ctx, p)
}

// Incidents returns the known incidents.
func (s *Session) Incidents() []sensor.Incident {
	out := make([]sensor.Incident, len(s.inventory.Incidents))
	copy(out, s.inventory.Incidents)
	return out
}

// VisibleGateways returns the gateways inside the current viewport bounds,
// or all of them while the bounds are unknown.
func (s *Session) VisibleGateways() []sensor.Gateway {
	return sensor.VisibleGateways(s.inventory.Gateways, s.Viewport.Bounds())
}

// GatewayStatuses aggregates the current node snapshot per gateway.
func (s *Session) GatewayStatuses() []sensor.GatewayStatus {
	return sensor.GatewayStatuses(s.inventory.Gateways, s.Feed.Nodes())
}
