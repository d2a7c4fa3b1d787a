// Package routing computes driving routes between two map points.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/firewatch/firewatch/internal/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrMissingAPIKey indicates the server has no routing provider key configured.
	ErrMissingAPIKey = errors.New("routing API key is not configured")
	// ErrProviderUnavailable indicates the provider could not be reached.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrUpstream indicates the provider answered with a non-success status.
	ErrUpstream = errors.New("routing provider returned an error")
	// ErrNoRouteFound indicates the provider found no routable path.
	ErrNoRouteFound = errors.New("no route found")
	// ErrInvalidCoordinates indicates a start or end point outside the valid range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider computes a route between two points.
type Provider interface {
	Directions(ctx context.Context, start, end geo.Point) (*Route, error)
	Name() string
}

// Route is one computed path with its metrics.
type Route struct {
	Path            []geo.Point
	DistanceMeters  float64
	DurationSeconds float64
}

// Bounds returns the bounding box of the path.
func (r *Route) Bounds() (geo.Bounds, bool) {
	return geo.BoundsOf(r.Path)
}

// DistanceLabel renders the distance in kilometers, e.g. "5.00 km".
func (r *Route) DistanceLabel() string {
	return fmt.Sprintf("%.2f km", r.DistanceMeters/1000)
}

// DurationLabel renders the duration in whole minutes, e.g. "~10 mins".
// Halves round away from zero.
func (r *Route) DurationLabel() string {
	return fmt.Sprintf("~%d mins", int64(math.Round(r.DurationSeconds/60)))
}

// Error carries a provider failure with the HTTP status it should surface as.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
