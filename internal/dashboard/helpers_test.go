package dashboard_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/firewatch/firewatch/internal/dashboard"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/routing"
)

type recorder struct {
	mu    sync.Mutex
	items []dashboard.Notification
}

func (r *recorder) Notify(n dashboard.Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *recorder) all() []dashboard.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dashboard.Notification, len(r.items))
	copy(out, r.items)
	return out
}

func (r *recorder) last() dashboard.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return dashboard.Notification{}
	}
	return r.items[len(r.items)-1]
}

type routeCall struct {
	start, end geo.Point
}

// fakeRoutes answers every request with route/err. When gate is set, each
// call blocks until a value is received from it.
type fakeRoutes struct {
	mu    sync.Mutex
	calls []routeCall
	route *routing.Route
	err   error
	gate  chan struct{}
}

func (f *fakeRoutes) Directions(ctx context.Context, start, end geo.Point) (*routing.Route, error) {
	f.mu.Lock()
	f.calls = append(f.calls, routeCall{start: start, end: end})
	gate, route, err := f.gate, f.route, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return route, err
}

func (f *fakeRoutes) Name() string { return "fake" }

func (f *fakeRoutes) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSearcher returns results keyed by query.
type fakeSearcher struct {
	calls   atomic.Int32
	results map[string][]geocode.Suggestion
	err     error
	block   map[string]chan struct{}
}

func (f *fakeSearcher) Search(ctx context.Context, q string) ([]geocode.Suggestion, error) {
	f.calls.Add(1)
	if ch, ok := f.block[q]; ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[q], nil
}

var (
	testStart = geo.Point{Lat: 16.0, Lon: 120.3}
	testEnd   = geo.Point{Lat: 16.1, Lon: 120.4}

	testRoute = &routing.Route{
		Path:            []geo.Point{testStart, {Lat: 16.05, Lon: 120.35}, testEnd},
		DistanceMeters:  5000,
		DurationSeconds: 600,
	}
)
