package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	predictions int
	failures    int
	unavailable int
	latencySum  float64
	latencyObs  int
	modelLoaded bool
	modelAge    float64
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLUnavailableInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyObs++
}

func (m *MockMetrics) MLModelLoadedSet(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLoaded = v
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}
