package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal      *prometheus.CounterVec
	searchTierTotal  *prometheus.CounterVec
	searchEmptyTotal *prometheus.CounterVec
	searchRecords    *prometheus.HistogramVec
	searchDuration   *prometheus.HistogramVec
	intentTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faa",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total completed record searches by outcome.",
		},
		[]string{"service", "outcome"},
	)
	searchTierTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faa",
			Subsystem: "search",
			Name:      "tier_hits_total",
			Help:      "Retrieved candidates by the tier that produced them.",
		},
		[]string{"service", "tier"},
	)
	searchEmptyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faa",
			Subsystem: "search",
			Name:      "empty_total",
			Help:      "Total searches that returned no records.",
		},
		[]string{"service"},
	)
	searchRecords := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faa",
			Subsystem: "search",
			Name:      "records_returned",
			Help:      "Distribution of records returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faa",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	intentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faa",
			Subsystem: "assistant",
			Name:      "intent_total",
			Help:      "Classified message intents by type.",
		},
		[]string{"service", "intent"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchTierTotal,
		searchEmptyTotal,
		searchRecords,
		searchDuration,
		intentTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		searchTotal:      searchTotal,
		searchTierTotal:  searchTierTotal,
		searchEmptyTotal: searchEmptyTotal,
		searchRecords:    searchRecords,
		searchDuration:   searchDuration,
		intentTotal:      intentTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/transactions/"):
		return "/v1/transactions/{transaction_id}"
	default:
		return path
	}
}

// RecordSearch is called once per completed search, successful or not.
// Tier counts attribute each returned candidate to the tier that found it.
func (m *HTTPServerMetrics) RecordSearch(service string, tierCounts map[string]int, recordCount int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.searchTotal.WithLabelValues(service, outcome).Inc()
	m.searchDuration.WithLabelValues(service).Observe(duration.Seconds())

	if err != nil {
		return
	}

	m.searchRecords.WithLabelValues(service).Observe(float64(recordCount))
	if recordCount == 0 {
		m.searchEmptyTotal.WithLabelValues(service).Inc()
	}
	for tier, n := range tierCounts {
		if n <= 0 {
			continue
		}
		m.searchTierTotal.WithLabelValues(service, tier).Add(float64(n))
	}
}

func (m *HTTPServerMetrics) RecordIntent(service, intent string) {
	if intent == "" {
		intent = "unknown"
	}
	m.intentTotal.WithLabelValues(service, intent).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}
