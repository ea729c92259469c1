package ml

import (
	"fmt"
	"time"

	"housing-predictor/internal/features"

	"github.com/rs/zerolog/log"
)

// Adapter invokes the model held by a Handle and converts every failure into
// a ModelUnavailableError or a PredictionError. It makes a single attempt per
// call; retry policy belongs to the caller.
type Adapter struct {
	handle  *Handle
	metrics MetricsInterface
}

// NewAdapter creates an adapter over h. metrics may be nil.
func NewAdapter(h *Handle, metrics MetricsInterface) *Adapter {
	return &Adapter{handle: h, metrics: metrics}
}

// Predict scores v and returns the raw model output.
func (a *Adapter) Predict(v features.Vector) (float64, error) {
	if a == nil {
		return 0, &ModelUnavailableError{Reason: "no model configured"}
	}

	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	scorer, err := a.handle.Scorer()
	if err != nil {
		if a.metrics != nil {
			a.metrics.MLUnavailableInc()
		}
		return 0, err
	}

	raw, err := invoke(scorer, v)
	if err != nil {
		log.Error().Err(err).Floats64("features", v.Slice()).Msg("Prediction error")
		if a.metrics != nil {
			a.metrics.MLFailuresInc()
		}
		return 0, err
	}

	if a.metrics != nil {
		a.metrics.MLPredictionsInc()
	}
	log.Debug().Floats64("features", v.Slice()).Float64("raw", raw).Msg("Prediction successful")
	return raw, nil
}

// invoke calls the scorer, turning both returned errors and panics into a
// PredictionError.
func invoke(s Scorer, v features.Vector) (raw float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw = 0
			err = &PredictionError{Message: fmt.Sprint(r)}
		}
	}()

	raw, err = s.Predict(v)
	if err != nil {
		return 0, &PredictionError{Message: err.Error(), Err: err}
	}
	return raw, nil
}
