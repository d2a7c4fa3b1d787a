package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/routing"
)

// serve routes a single request through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type stubDirections struct {
	route      *routing.Route
	err        error
	start, end geo.Point
	calls      int
}

func (s *stubDirections) Directions(_ context.Context, start, end geo.Point) (*routing.Route, error) {
	s.calls++
	s.start, s.end = start, end
	return s.route, s.err
}

type stubSearcher struct {
	results []geocode.Suggestion
	err     error
	query   string
}

func (s *stubSearcher) Search(_ context.Context, q string) ([]geocode.Suggestion, error) {
	s.query = q
	return s.results, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

var errBoom = errors.New("boom")
