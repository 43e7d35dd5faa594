// Package metrics exposes Prometheus counters for HTTP traffic and the
// authentication flow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// SourceAnonymous labels requests that resolved to no identity.
const SourceAnonymous = "anonymous"

// Recorder captures request and authentication metrics.
type Recorder interface {
	ObserveRequest(method, route string, status int, d time.Duration)
	IncLogin(outcome string)
	IncIdentityResolution(source string)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) ObserveRequest(string, string, int, time.Duration) {}
func (Noop) IncLogin(string)                                   {}
func (Noop) IncIdentityResolution(string)                      {}

// Prom implements Recorder on a dedicated Prometheus registry.
type Prom struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	logins      *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

// NewProm builds the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_logins_total",
			Help:      "OAuth callback outcomes",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_identity_resolutions_total",
			Help:      "Requests by identity source",
		}, []string{"source"}),
	}
	p.registry.MustRegister(
		p.requests, p.latency, p.logins, p.resolutions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prom) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *Prom) IncLogin(outcome string) {
	p.logins.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncIdentityResolution(source string) {
	if source == "" {
		source = SourceAnonymous
	}
	p.resolutions.WithLabelValues(source).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (p *Prom) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
