package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec

	recurringRuns      *prometheus.CounterVec
	recurringProcessed *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faa",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faa",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "faa",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "faa",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	recurringRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faa",
			Subsystem: "worker",
			Name:      "recurring_runs_total",
			Help:      "Total recurring schedule passes by status.",
		},
		[]string{"service", "status"},
	)
	recurringProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faa",
			Subsystem: "worker",
			Name:      "recurring_items_total",
			Help:      "Recurring items handled per pass, split by result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		queueLag,
		recurringRuns,
		recurringProcessed,
	)

	return &WorkerMetrics{
		registry:           registry,
		processTotal:       processTotal,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		queueLag:           queueLag,
		recurringRuns:      recurringRuns,
		recurringProcessed: recurringProcessed,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

// FinishRecurringRun records one completed schedule pass. Processed counts
// items that generated a transaction, terminated counts schedules that
// reached their end date during the pass.
func (m *WorkerMetrics) FinishRecurringRun(service string, processed, terminated int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.recurringRuns.WithLabelValues(service, status).Inc()

	if processed > 0 {
		m.recurringProcessed.WithLabelValues(service, "processed").Add(float64(processed))
	}
	if terminated > 0 {
		m.recurringProcessed.WithLabelValues(service, "terminated").Add(float64(terminated))
	}
}
