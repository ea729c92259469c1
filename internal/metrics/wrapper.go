package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
	Add(float64)
}

// MetricsWrapper adapts Metrics to the narrow interfaces the ml, pipeline,
// api and relay packages depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc()          { w.m.MLPredictions.Inc() }
func (w *MetricsWrapper) MLFailuresInc()             { w.m.MLFailures.Inc() }
func (w *MetricsWrapper) MLUnavailableInc()          { w.m.MLUnavailable.Inc() }
func (w *MetricsWrapper) MLLatencyObserve(v float64) { w.m.MLLatency.Observe(v) }
func (w *MetricsWrapper) MLModelAgeSet(v float64)    { w.m.MLModelAge.Set(v) }

func (w *MetricsWrapper) MLModelLoadedSet(loaded bool) {
	if loaded {
		w.m.MLModelLoaded.Set(1)
		return
	}
	w.m.MLModelLoaded.Set(0)
}

func (w *MetricsWrapper) PipelineRequestsInc() { w.m.PipelineRequests.Inc() }

func (w *MetricsWrapper) PipelineErrorsInc(stage string) {
	w.m.PipelineErrors.WithLabelValues(stage).Inc()
}

// ObserveHTTP records one served request.
func (w *MetricsWrapper) ObserveHTTP(route string, code int, elapsed time.Duration) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (w *MetricsWrapper) RelayMessageInc(outcome string) {
	w.m.RelayMessages.WithLabelValues(outcome).Inc()
}

func (w *MetricsWrapper) WSConnections() MetricsGauge {
	return &GaugeWrapper{w.m.WSConnections}
}

func (w *MetricsWrapper) ErrorsTotal() MetricsCounter {
	return &CounterWrapper{w.m.ErrorsTotal}
}

func (w *MetricsWrapper) ErrorRate() float64 {
	return w.m.GetErrorRate()
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

func (gw *GaugeWrapper) Add(v float64) {
	gw.g.Add(v)
}
