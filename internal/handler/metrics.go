package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/tubelens/tubelens-go/internal/model"
)

// Metrics holds all Prometheus collectors for the TubeLens backend.
var Metrics = struct {
	AuditsTotal      *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	APICallsTotal    prometheus.Counter
	LLMTokensTotal   prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	DBPoolActive     prometheus.GaugeFunc
	DBPoolIdle       prometheus.GaugeFunc
}{}

// InitMetrics registers all Prometheus metrics. Call once at startup.
func InitMetrics(pool *pgxpool.Pool) {
	Metrics.AuditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubelens_audits_total",
			Help: "Audits finished, by terminal status.",
		},
		[]string{"status"},
	)

	Metrics.StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubelens_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds, by stage key.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	Metrics.APICallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubelens_platform_api_calls_total",
			Help: "External platform API calls made by ingestion.",
		},
	)

	Metrics.LLMTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubelens_llm_tokens_total",
			Help: "LLM tokens consumed by the prose stages.",
		},
	)

	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubelens_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubelens_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	Metrics.CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubelens_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	Metrics.CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubelens_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	// DB pool gauges — read live stats from pgxpool
	if pool != nil {
		Metrics.DBPoolActive = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "tubelens_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 {
				return float64(pool.Stat().AcquiredConns())
			},
		)

		Metrics.DBPoolIdle = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "tubelens_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 {
				return float64(pool.Stat().IdleConns())
			},
		)

		prometheus.MustRegister(Metrics.DBPoolActive)
		prometheus.MustRegister(Metrics.DBPoolIdle)
	}

	prometheus.MustRegister(
		Metrics.AuditsTotal,
		Metrics.StageDuration,
		Metrics.APICallsTotal,
		Metrics.LLMTokensTotal,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
		Metrics.CacheHits,
		Metrics.CacheMisses,
	)
}

// MetricsMiddleware records request duration and in-flight count for Prometheus.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Don't instrument the /metrics endpoint itself
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next() — Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// or overwritten by handlers (especially fasthttpadaptor).
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := sanitizeEndpoint(path)

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// sanitizeEndpoint normalizes paths to avoid cardinality explosion.
func sanitizeEndpoint(path string) string {
	switch {
	case len(path) > 12 && path[:12] == "/api/audits/":
		return "/api/audits/:auditId"
	case len(path) > 14 && path[:14] == "/api/channels/":
		return "/api/channels/:channelId"
	default:
		return path
	}
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}

// PipelineMetricsObserver feeds pipeline lifecycle events into the
// Prometheus collectors. Requires InitMetrics to have run.
type PipelineMetricsObserver struct{}

func (PipelineMetricsObserver) StageFinished(key model.SectionKey, d time.Duration, failed bool) {
	Metrics.StageDuration.WithLabelValues(string(key)).Observe(d.Seconds())
}

func (PipelineMetricsObserver) AuditFinished(status model.AuditStatus) {
	Metrics.AuditsTotal.WithLabelValues(string(status)).Inc()
}

func (PipelineMetricsObserver) CostAdded(delta model.CostDelta) {
	if delta.APICalls > 0 {
		Metrics.APICallsTotal.Add(float64(delta.APICalls))
	}
	if delta.LLMTokens > 0 {
		Metrics.LLMTokensTotal.Add(float64(delta.LLMTokens))
	}
}
