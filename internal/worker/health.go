package worker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// HealthConfig configures the worker's HTTP surface.
type HealthConfig struct {
	Version string
	Monitor *Monitor
	Metrics *Metrics
	// StaleAfter marks the worker unready when the last successful sweep is
	// older than this. Default: three monitor intervals.
	StaleAfter time.Duration
}

// NewHealthRouter returns the worker's health, readiness and metrics routes.
func NewHealthRouter(cfg HealthConfig) http.Handler {
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 && cfg.Monitor != nil {
		staleAfter = 3 * cfg.Monitor.config.Interval
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": cfg.Version,
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		last := cfg.Monitor.LastSweep()
		body := map[string]any{"statuses": cfg.Monitor.Statuses()}

		switch {
		case last == nil:
			body["status"] = "starting"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		case last.Err != nil && last.Gateways == nil:
			body["status"] = "failing"
			body["error"] = last.Err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		case time.Since(last.StartTime) > staleAfter:
			body["status"] = "stale"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}

		body["status"] = "ready"
		body["lastSweepAt"] = last.StartTime.UTC().Format(time.RFC3339)
		writeJSON(w, http.StatusOK, body)
	})

	r.Handle("/metrics", cfg.Metrics.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
