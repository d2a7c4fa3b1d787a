package routing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/geo"
)

// mockProvider is a test implementation of Provider.
type mockProvider struct {
	callCount atomic.Int32
	route     *Route
	err       error
}

func (m *mockProvider) Directions(_ context.Context, _, _ geo.Point) (*Route, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.route, nil
}

func (m *mockProvider) Name() string { return "mock" }

func newTestService(p Provider) *Service {
	return NewService(ServiceConfig{Provider: p, Logger: zerolog.Nop()})
}

func TestService_Directions_CallsProviderEveryTime(t *testing.T) {
	provider := &mockProvider{route: &Route{
		Path:            []geo.Point{{Lat: 16.0, Lon: 120.3}, {Lat: 16.1, Lon: 120.4}},
		DistanceMeters:  5000,
		DurationSeconds: 600,
	}}
	svc := newTestService(provider)

	start := geo.Point{Lat: 16.0, Lon: 120.3}
	end := geo.Point{Lat: 16.1, Lon: 120.4}

	for i := 0; i < 3; i++ {
		route, err := svc.Directions(context.Background(), start, end)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if route.DistanceMeters != 5000 {
			t.Errorf("expected distance 5000, got %v", route.DistanceMeters)
		}
	}

	if got := provider.callCount.Load(); got != 3 {
		t.Errorf("expected 3 provider calls, got %d", got)
	}
}

func TestService_Directions_InvalidCoordinates(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider)

	_, err := svc.Directions(context.Background(), geo.Point{Lat: 100, Lon: 0}, geo.Point{Lat: 16, Lon: 120})
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
	if provider.callCount.Load() != 0 {
		t.Error("provider must not be called for invalid input")
	}
}

func TestService_Directions_PropagatesProviderError(t *testing.T) {
	upstream := &Error{Provider: "mock", StatusCode: 403, Message: "quota exceeded", Err: ErrUpstream}
	svc := newTestService(&mockProvider{err: upstream})

	_, err := svc.Directions(context.Background(), geo.Point{Lat: 16, Lon: 120}, geo.Point{Lat: 16.1, Lon: 120.1})

	var routeErr *Error
	if !errors.As(err, &routeErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if routeErr.StatusCode != 403 {
		t.Errorf("expected status 403, got %d", routeErr.StatusCode)
	}
}

func TestRoute_Labels(t *testing.T) {
	tests := []struct {
		distance, duration float64
		wantDist, wantDur  string
	}{
		{5000, 600, "5.00 km", "~10 mins"},
		{1234.5, 89, "1.23 km", "~1 mins"},
		{0, 30, "0.00 km", "~1 mins"},
		{15999, 1769, "16.00 km", "~29 mins"},
	}

	for _, tt := range tests {
		r := &Route{DistanceMeters: tt.distance, DurationSeconds: tt.duration}
		if got := r.DistanceLabel(); got != tt.wantDist {
			t.Errorf("DistanceLabel(%v) = %q, want %q", tt.distance, got, tt.wantDist)
		}
		if got := r.DurationLabel(); got != tt.wantDur {
			t.Errorf("DurationLabel(%v) = %q, want %q", tt.duration, got, tt.wantDur)
		}
	}
}

func TestOutcome(t *testing.T) {
	if outcome(nil) != "ok" {
		t.Error("nil error should be ok")
	}
	if outcome(&Error{Err: ErrNoRouteFound}) != "no_route" {
		t.Error("expected no_route")
	}
	if outcome(errors.New("boom")) != "unavailable" {
		t.Error("expected unavailable")
	}
}
