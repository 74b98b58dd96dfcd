// Package metrics wires Prometheus instrumentation for the wizard
// service: HTTP traffic, solver calls, and optimization outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors registered by this service.
type Metrics struct {
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	sessionsTotal     prometheus.Counter
	optimizeOutcomes  *prometheus.CounterVec
	solverDuration    *prometheus.HistogramVec
	breakerState      prometheus.Gauge
	registry          *prometheus.Registry
}

// New registers all collectors on a private registry so repeated
// construction in tests never double-registers.
func New() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_http_requests_total",
			Help: "Total HTTP requests processed, by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wizard_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wizard_sessions_total",
			Help: "Total wizard sessions created.",
		}),
		optimizeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wizard_optimize_outcomes_total",
			Help: "Optimization attempts by outcome (success, soft_failure, hard_failure, rejected).",
		}, []string{"outcome"}),
		solverDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wizard_solver_call_duration_seconds",
			Help:    "Histogram of solver call durations by endpoint.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"endpoint"}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wizard_solver_breaker_state",
			Help: "Solver circuit breaker state (0 closed, 1 open, 2 half-open).",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.sessionsTotal,
		m.optimizeOutcomes,
		m.solverDuration,
		m.breakerState,
	)
	return m
}

// Handler serves the exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one handled request.
func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SessionCreated counts one new wizard session.
func (m *Metrics) SessionCreated() {
	m.sessionsTotal.Inc()
}

// OptimizeOutcome counts one optimization attempt result.
func (m *Metrics) OptimizeOutcome(outcome string) {
	m.optimizeOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveSolverCall records the duration of one solver round trip.
func (m *Metrics) ObserveSolverCall(endpoint string, d time.Duration) {
	m.solverDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// SetBreakerState mirrors the circuit breaker position.
func (m *Metrics) SetBreakerState(state int) {
	m.breakerState.Set(float64(state))
}
