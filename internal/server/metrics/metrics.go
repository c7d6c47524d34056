// Package metrics exposes Prometheus counters for authentication and HTTP
// traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clockwork"

type Metrics struct {
	registry *prometheus.Registry

	logins          *prometheus.CounterVec
	tokenRejections *prometheus.CounterVec
	refreshSweeps   *prometheus.CounterVec
	sweptTokens     prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers every collector on a private registry together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_rejections_total",
			Help:      "Rejected tokens by failure kind.",
		}, []string{"kind"}),
		refreshSweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refresh_sweeps_total",
			Help:      "Expired refresh token sweeps by result.",
		}, []string{"result"}),
		sweptTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refresh_swept_tokens_total",
			Help:      "Expired refresh tokens removed by sweeps.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.tokenRejections,
		m.refreshSweeps,
		m.sweptTokens,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Login records a login attempt; result is "success", "failure" or "error".
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// TokenRejected records a rejected token by kind (see auth.Kind).
func (m *Metrics) TokenRejected(kind string) {
	if m == nil || kind == "" {
		return
	}
	m.tokenRejections.WithLabelValues(kind).Inc()
}

// RefreshSweep records one expired-token sweep and how many rows it removed.
func (m *Metrics) RefreshSweep(removed int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.refreshSweeps.WithLabelValues("error").Inc()
		return
	}
	m.refreshSweeps.WithLabelValues("ok").Inc()
	m.sweptTokens.Add(float64(removed))
}

// HTTPRequest records a finished request.
func (m *Metrics) HTTPRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
