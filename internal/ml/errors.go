package ml

import "fmt"

// ModelUnavailableError is returned while the model is still loading or after
// loading failed. Callers may retry later; the adapter never does.
type ModelUnavailableError struct {
	Reason string
	Err    error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Model not loaded: %s: %v", e.Reason, e.Err)
	}
	return "Model not loaded: " + e.Reason
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// PredictionError wraps a fault raised by the scorer during invocation.
type PredictionError struct {
	Message string
	Err     error
}

func (e *PredictionError) Error() string {
	return "Prediction failed: " + e.Message
}

func (e *PredictionError) Unwrap() error { return e.Err }
