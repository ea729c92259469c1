// Package ml provides the scoring side of the housing price service.
// It includes the Scorer interface the trained model satisfies, the artifact
// loader for persisted models, a load-once Handle shared across requests, and
// the Adapter that maps scoring failures into typed errors.
//
// The model is loaded once and never mutated afterwards, so a ready Handle is
// safe for concurrent reads without locking.
package ml

import "housing-predictor/internal/features"

// Scorer is the trained model seen as a black box: a feature vector in, one
// numeric estimate out.
type Scorer interface {
	// Predict returns the model's raw output for the given features.
	Predict(v features.Vector) (float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(v features.Vector) (float64, error)

func (f ScorerFunc) Predict(v features.Vector) (float64, error) {
	return f(v)
}

// MetricsInterface defines metrics methods needed by the scoring path
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLUnavailableInc()
	MLLatencyObserve(float64)
	MLModelLoadedSet(bool)
	MLModelAgeSet(float64)
}
