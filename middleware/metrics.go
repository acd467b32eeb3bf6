package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpl-au/relay"
)

// UnmatchedRoute labels requests that no method/path action matched.
const UnmatchedRoute = "unmatched"

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "relay").
	Namespace string

	// Subsystem is the metrics subsystem (default: "http").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "relay",
		Subsystem: "http",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type requestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

func newRequestMetrics(config MetricsConfig) *requestMetrics {
	factory := promauto.With(config.Registry)

	return &requestMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests handled, by method, route and status",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Time spent in the rest of the action chain, in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method", "route"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of requests whose chain returned an error",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of requests currently being handled",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Metrics returns an action that records Prometheus metrics for every
// request passing through it:
//   - relay_http_requests_total: counter by method, route and status
//   - relay_http_request_duration_seconds: histogram by method and route
//   - relay_http_request_errors_total: counter by method and route
//   - relay_http_requests_in_flight: gauge
//
// The route label is the pathspec of the last matched action, which keeps
// cardinality bounded by the number of registrations. The collectors are
// registered when Metrics is called, so call it once per registry.
//
// Example:
//
//	rt.OnAll(middleware.Metrics(middleware.WithNamespace("myapp")))
//	rt.Get("/metrics", relay.Wrap(promhttp.Handler()))
func Metrics(opts ...MetricsOption) relay.Handler {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := newRequestMetrics(config)
	return func(ctx *relay.Context, next relay.Next) error {
		return m.handle(ctx, next)
	}
}

func (m *requestMetrics) handle(ctx *relay.Context, next relay.Next) error {
	m.inFlight.Inc()
	defer m.inFlight.Dec()

	start := time.Now()
	err := next()
	duration := time.Since(start).Seconds()

	route := ctx.Route
	if route == "" {
		route = UnmatchedRoute
	}
	method := ctx.Request.Method

	m.requestDuration.WithLabelValues(method, route).Observe(duration)
	if err != nil {
		m.requestErrors.WithLabelValues(method, route).Inc()
	}
	status := "unsent"
	if ctx.Response.Written() {
		status = strconv.Itoa(ctx.Response.Status())
	}
	m.requestsTotal.WithLabelValues(method, route, status).Inc()

	return err
}
