package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "alphadesk",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alphadesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "alphadesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alphadesk",
			Subsystem: "marketdata",
			Name:      "provider_requests_total",
			Help:      "Total upstream market data requests by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	cacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alphadesk",
			Subsystem: "marketdata",
			Name:      "cache_events_total",
			Help:      "Market data cache lookups by result.",
		},
		[]string{"result"},
	)

	llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alphadesk",
			Subsystem: "analysis",
			Name:      "llm_requests_total",
			Help:      "Total LLM analysis generations by outcome.",
		},
		[]string{"outcome"},
	)

	alertsFired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "alphadesk",
			Subsystem: "alerts",
			Name:      "fired_total",
			Help:      "Total price alerts fired.",
		},
	)

	ordersFilled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alphadesk",
			Subsystem: "trading",
			Name:      "orders_total",
			Help:      "Total simulated orders by final status.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		providerRequests,
		cacheEvents,
		llmRequests,
		alertsFired,
		ordersFilled,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordProviderRequest counts an upstream market data call.
func RecordProviderRequest(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordCacheEvent counts a cache lookup: "hit" or "miss".
func RecordCacheEvent(result string) {
	cacheEvents.WithLabelValues(result).Inc()
}

// RecordLLMRequest counts an analysis generation: "ok", "error" or "fallback".
func RecordLLMRequest(outcome string) {
	llmRequests.WithLabelValues(outcome).Inc()
}

// RecordAlertFired counts fired price alerts.
func RecordAlertFired() {
	alertsFired.Inc()
}

// RecordOrder counts a simulated order reaching a final status.
func RecordOrder(status string) {
	ordersFilled.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses symbol and ID segments so label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "v1" {
		resource := parts[2]
		if len(parts) > 3 {
			return "/api/v1/" + resource + "/:id"
		}
		return "/api/v1/" + resource
	}
	return "/" + parts[0]
}
