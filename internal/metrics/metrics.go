// Package metrics provides Prometheus metrics for the capture pipeline.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spice_capture"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics for the capture pipeline. It
// implements both capture.Observer and llm.Observer.
type Metrics struct {
	registry *prometheus.Registry

	// Capture metrics
	CapturesTotal  *prometheus.CounterVec
	CaptureErrors  *prometheus.CounterVec
	SessionsActive prometheus.Gauge

	// Classification metrics
	ClassificationLatency *prometheus.HistogramVec
	ClassificationErrors  *prometheus.CounterVec
	ValidationFailures    *prometheus.CounterVec

	// Finalize metrics
	FinalizeTotal *prometheus.CounterVec

	// Kafka publish metrics
	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// New creates the metrics on a fresh registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CapturesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Capture attempts by input mode and outcome",
		}, []string{"mode", "outcome"}),
		CaptureErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_errors_total",
			Help:      "Failed capture attempts by input mode and error layer",
		}, []string{"mode", "layer"}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open capture sessions",
		}),

		ClassificationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_latency_seconds",
			Help:      "Classification service latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"provider", "mode"}),
		ClassificationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_errors_total",
			Help:      "Classification failures by provider and error type",
		}, []string{"provider", "error_type"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Classification results rejected by the contract validator",
		}, []string{"mode"}),

		FinalizeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_total",
			Help:      "Confirmations by record source and outcome",
		}, []string{"source", "outcome"}),

		PublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic"}),
		PublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic"}),
		PublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code",
		}, []string{"route", "method", "status"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CaptureFinished records the end of one capture attempt.
func (m *Metrics) CaptureFinished(mode model.InputMode, err error) {
	if err == nil {
		m.CapturesTotal.WithLabelValues(string(mode), OutcomeSuccess).Inc()
		return
	}
	m.CapturesTotal.WithLabelValues(string(mode), OutcomeFailure).Inc()
	m.CaptureErrors.WithLabelValues(string(mode), string(common.Layer(err))).Inc()
	if errors.Is(err, common.ErrInvalidContract) {
		m.ValidationFailures.WithLabelValues(string(mode)).Inc()
	}
}

// Finalized records a confirmation.
func (m *Metrics) Finalized(source string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.FinalizeTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveClassification records one call to the classification service.
func (m *Metrics) ObserveClassification(provider string, mode model.InputMode, elapsed time.Duration, err error) {
	m.ClassificationLatency.WithLabelValues(provider, string(mode)).Observe(elapsed.Seconds())
	if err != nil {
		m.ClassificationErrors.WithLabelValues(provider, errorType(err)).Inc()
	}
}

// ObservePublish records one notification publish.
func (m *Metrics) ObservePublish(topic string, elapsed time.Duration, err error) {
	m.PublishTotal.WithLabelValues(topic).Inc()
	m.PublishLatency.WithLabelValues(topic).Observe(elapsed.Seconds())
	if err != nil {
		m.PublishErrors.WithLabelValues(topic).Inc()
	}
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	m.SessionsActive.Dec()
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, common.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, common.ErrTimeout):
		return "timeout"
	case errors.Is(err, common.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, common.ErrTranscriptionFailed):
		return "transcription"
	case errors.Is(err, common.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
