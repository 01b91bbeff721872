package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	samplesTotal    *prometheus.CounterVec
	schedulesStored prometheus.GaugeFunc
}

// NewMetrics registers the server collectors on a private registry so that
// several servers (and tests) can coexist in one process. storedSchedules is
// read at scrape time.
func NewMetrics(storedSchedules func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keyframe",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "keyframe",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "keyframe",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keyframe",
			Name:      "samples_total",
			Help:      "Schedule values computed, by schedule and mode.",
		}, []string{"schedule", "mode"}),
		schedulesStored: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "keyframe",
			Name:      "schedules_stored",
			Help:      "Schedules currently held in the registry.",
		}, storedSchedules),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.inFlight,
		m.samplesTotal,
		m.schedulesStored,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware tracks request counts and latency. Requests are labelled with
// the matched mux pattern so path values don't explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.inFlight.Inc()
		defer m.inFlight.Dec()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(wrapper.statusCode)

		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

func (m *Metrics) observeSamples(scheduleName, mode string, count int) {
	m.samplesTotal.WithLabelValues(scheduleName, mode).Add(float64(count))
}
