package worker

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firewatch/firewatch/internal/sensor"
)

// Metrics exposes worker metrics for Prometheus scraping.
type Metrics struct {
	registry        *prometheus.Registry
	sweepsTotal     *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
	gatewayStatus   *prometheus.GaugeVec
	nodesByStatus   *prometheus.GaugeVec
	eventsPublished *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
}

var gatewayStates = []sensor.Status{sensor.StatusActive, sensor.StatusPartial, sensor.StatusInactive}

// NewMetrics creates a fresh registry with the worker metrics registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	sweepsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "firewatch",
		Name:      "monitor_sweeps_total",
		Help:      "Gateway status sweeps by outcome",
	}, []string{"outcome"})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "firewatch",
		Name:      "monitor_sweep_duration_seconds",
		Help:      "Duration of gateway status sweeps",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	gatewayStatus := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "firewatch",
		Name:      "gateway_status",
		Help:      "1 for the current status of each gateway, 0 otherwise",
	}, []string{"gateway", "status"})

	nodesByStatus := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "firewatch",
		Name:      "nodes",
		Help:      "Sensor nodes by derived status",
	}, []string{"status"})

	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "firewatch",
		Name:      "status_events_total",
		Help:      "Gateway status change events by publish outcome",
	}, []string{"outcome"})

	jobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "firewatch",
		Name:      "jobs_total",
		Help:      "Pub/Sub jobs processed by type and outcome",
	}, []string{"job_type", "outcome"})

	registry.MustRegister(
		sweepsTotal,
		sweepDuration,
		gatewayStatus,
		nodesByStatus,
		eventsPublished,
		jobsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:        registry,
		sweepsTotal:     sweepsTotal,
		sweepDuration:   sweepDuration,
		gatewayStatus:   gatewayStatus,
		nodesByStatus:   nodesByStatus,
		eventsPublished: eventsPublished,
		jobsTotal:       jobsTotal,
	}
}

// ObserveSweep records one sweep.
func (m *Metrics) ObserveSweep(err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepsTotal.WithLabelValues(outcome(err)).Inc()
	m.sweepDuration.Observe(duration.Seconds())
}

// SetGateways publishes the current status of every gateway and node count.
func (m *Metrics) SetGateways(statuses []sensor.GatewayStatus, nodes []sensor.Node) {
	if m == nil {
		return
	}
	for _, gs := range statuses {
		for _, st := range gatewayStates {
			v := 0.0
			if gs.Status == st {
				v = 1
			}
			m.gatewayStatus.WithLabelValues(gs.ID, string(st)).Set(v)
		}
	}

	active := 0
	for _, n := range nodes {
		if n.Status == sensor.StatusActive {
			active++
		}
	}
	m.nodesByStatus.WithLabelValues(string(sensor.StatusActive)).Set(float64(active))
	m.nodesByStatus.WithLabelValues(string(sensor.StatusInactive)).Set(float64(len(nodes) - active))
}

// ObservePublish records one event publish.
func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(outcome(err)).Inc()
}

// ObserveJob records one processed Pub/Sub job.
func (m *Metrics) ObserveJob(jobType string, err error) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(jobType, outcome(err)).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
