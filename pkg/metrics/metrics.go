package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotransit_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gotransit_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotransit_evaluations_total",
			Help: "Light curve evaluations by model and outcome.",
		},
		[]string{"model", "status"},
	)

	evaluationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gotransit_evaluation_duration_seconds",
			Help:    "Light curve evaluation duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"model"},
	)

	keplerNonConverged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gotransit_kepler_nonconverged_total",
			Help: "Kepler solves that reached the iteration cap.",
		},
	)

	tableLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotransit_table_lookups_total",
			Help: "Interpolation table cache lookups by result (hit, store, miss).",
		},
		[]string{"result"},
	)

	webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotransit_webhook_deliveries_total",
			Help: "Webhook deliveries by outcome.",
		},
		[]string{"status"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gotransit_webhook_breaker_state",
			Help: "Webhook circuit breaker state (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gotransit_worker_queue_depth",
			Help: "Items waiting in the worker pool queues.",
		},
		[]string{"queue"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(evaluationsTotal)
	prometheus.MustRegister(evaluationSeconds)
	prometheus.MustRegister(keplerNonConverged)
	prometheus.MustRegister(tableLookups)
	prometheus.MustRegister(webhookDeliveries)
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(queueDepth)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEvaluation records one evaluation and its duration.
func ObserveEvaluation(model string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	evaluationsTotal.WithLabelValues(model, status).Inc()
	evaluationSeconds.WithLabelValues(model).Observe(d.Seconds())
}

// AddNonConverged adds n non-converged Kepler solves.
func AddNonConverged(n uint64) {
	if n > 0 {
		keplerNonConverged.Add(float64(n))
	}
}

// RecordTableLookup counts a table cache lookup.
func RecordTableLookup(result string) {
	tableLookups.WithLabelValues(result).Inc()
}

// RecordWebhook counts a webhook delivery attempt.
func RecordWebhook(status string) {
	webhookDeliveries.WithLabelValues(status).Inc()
}

// SetBreakerState publishes the breaker state as a number.
func SetBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

// SetQueueDepth publishes the length of a worker queue.
func SetQueueDepth(queue string, n int) {
	queueDepth.WithLabelValues(queue).Set(float64(n))
}

var knownRoutes = map[string]bool{
	"/lightcurve":       true,
	"/lightcurve/batch": true,
	"/health":           true,
	"/metrics":          true,
	"/debug/gc":         true,
	"/debug/memory":     true,
}

// normalizeRoute keeps the path label bounded: unknown paths collapse to
// "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
