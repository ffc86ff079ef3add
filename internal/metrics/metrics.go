package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of the server. Each instance owns
// its registry, so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Entitlement metrics
	GateDecisions  *prometheus.CounterVec
	GrantsApplied  *prometheus.CounterVec
	GateConflicts  prometheus.Counter
	GateRetries    prometheus.Counter
	ExpiredSweeps  prometheus.Counter
	ResponderCalls *prometheus.CounterVec
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		GateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gate_decisions_total",
				Help: "Action decisions by outcome",
			},
			[]string{"kind", "outcome"}, // allowed, QuotaExceeded, PremiumRequired
		),
		GrantsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premium_grants_total",
				Help: "Premium grants applied by source",
			},
			[]string{"source"},
		),
		GateConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gate_conflicts_total",
			Help: "Requests that exhausted their retries on version conflicts",
		}),
		GateRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "gate_retries_total",
			Help: "Version conflicts that triggered a retry",
		}),
		ExpiredSweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "premium_expired_downgrades_total",
			Help: "Accounts downgraded by the expiry sweep",
		}),
		ResponderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "responder_calls_total",
				Help: "Bot responder calls by kind and status",
			},
			[]string{"kind", "status"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
