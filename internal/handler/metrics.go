package handler

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/middleware"
)

// Metrics holds all Prometheus collectors for the service. Collectors exist
// from package init; InitMetrics registers them.
var Metrics = struct {
	VotesTotal       *prometheus.CounterVec
	VotesRejected    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	StatusDuration   prometheus.Histogram
	StatusStreets    prometheus.Gauge
}{
	VotesTotal: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plowed_votes_total",
			Help: "Accepted votes, by vote value.",
		},
		[]string{"vote"},
	),
	VotesRejected: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plowed_votes_rejected_total",
			Help: "Rejected votes, by reason.",
		},
		[]string{"reason"},
	),
	RequestDuration: prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plowed_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	),
	RequestsInFlight: prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plowed_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	),
	StatusDuration: prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plowed_status_aggregation_duration_seconds",
			Help:    "Duration of status aggregation over the trailing window.",
			Buckets: prometheus.DefBuckets,
		},
	),
	StatusStreets: prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plowed_status_streets",
			Help: "Streets with at least one vote in the last status computation.",
		},
	),
}

var registerOnce sync.Once

// InitMetrics registers all Prometheus metrics. pool may be nil when the
// in-memory store is used.
func InitMetrics(pool *pgxpool.Pool) {
	registerOnce.Do(func() {
		if pool != nil {
			prometheus.MustRegister(
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "plowed_db_connection_pool_active",
						Help: "Number of active database connections.",
					},
					func() float64 {
						return float64(pool.Stat().AcquiredConns())
					},
				),
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "plowed_db_connection_pool_idle",
						Help: "Number of idle database connections.",
					},
					func() float64 {
						return float64(pool.Stat().IdleConns())
					},
				),
			)
		}

		prometheus.MustRegister(
			Metrics.VotesTotal,
			Metrics.VotesRejected,
			Metrics.RequestDuration,
			Metrics.RequestsInFlight,
			Metrics.StatusDuration,
			Metrics.StatusStreets,
		)
	})
}

// MetricsMiddleware records request duration and in-flight count for Prometheus.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Fiber returns slices backed by the fasthttp buffer, which handlers
		// may reuse. Copy before c.Next().
		endpoint := sanitizeEndpoint(string([]byte(c.Path())))
		method := string([]byte(c.Method()))

		Metrics.RequestsInFlight.Inc()
		defer Metrics.RequestsInFlight.Dec()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)

		return err
	}
}

// sanitizeEndpoint normalizes paths to avoid label cardinality explosion.
func sanitizeEndpoint(path string) string {
	if middleware.IsKnownRoute(path) {
		return path
	}
	if strings.HasPrefix(path, "/api/") {
		return "/api/other"
	}
	return "static"
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
