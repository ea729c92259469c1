// Package metrics provides Prometheus metrics collection for the housing price
// service. It defines the HTTP, pipeline, model and relay metrics exposed via
// the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec   // Requests by route and status code
	HTTPDuration  *prometheus.HistogramVec // Request latency by route
	WSConnections prometheus.Gauge         // Open chat sockets

	// Pipeline metrics
	PipelineRequests prometheus.Counter     // Prediction requests entering the pipeline
	PipelineErrors   *prometheus.CounterVec // Failed requests by stage

	// ML metrics
	MLPredictions prometheus.Counter   // Successful model invocations
	MLFailures    prometheus.Counter   // Model invocations that raised a fault
	MLUnavailable prometheus.Counter   // Requests rejected because the model was not ready
	MLLatency     prometheus.Histogram // Model invocation latency in seconds
	MLModelLoaded prometheus.Gauge     // 1 when the model is loaded
	MLModelAge    prometheus.Gauge     // Age of the model artifact in seconds

	// Relay metrics
	RelayMessages *prometheus.CounterVec // Chat messages handled by outcome

	// System metrics
	ErrorsTotal prometheus.Counter // Errors outside the pipeline (journal, socket writes)

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	gatherer := prometheus.DefaultGatherer
	if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Number of open chat WebSocket connections",
		}),
		PipelineRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_requests_total",
			Help: "Total number of prediction requests entering the pipeline",
		}),
		PipelineErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of failed prediction requests by stage",
		}, []string{"stage"}),
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of ML predictions made",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of ML prediction failures",
		}),
		MLUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_unavailable_total",
			Help: "Total number of requests rejected because the model was not loaded",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "ML prediction latency in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		MLModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_loaded",
			Help: "1 when the ML model is loaded, 0 otherwise",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the current ML model artifact in seconds",
		}),
		RelayMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Total number of chat messages relayed by outcome",
		}, []string{"outcome"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered outside the prediction pipeline",
		}),
		gatherer: gatherer,
	}
}

// GetErrorRate returns failed prediction requests divided by all prediction
// requests, or 0 if none have been recorded.
func (m *Metrics) GetErrorRate() float64 {
	var total, failed float64

	metricFamilies, err := m.gatherer.Gather()
	if err != nil {
		return 0
	}

	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "prediction_requests_total":
			for _, metric := range mf.Metric {
				total += metric.GetCounter().GetValue()
			}
		case "prediction_errors_total":
			for _, metric := range mf.Metric {
				failed += metric.GetCounter().GetValue()
			}
		}
	}

	if total == 0 {
		return 0
	}
	return failed / total
}
