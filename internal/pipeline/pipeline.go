// Package pipeline assembles the boundary response of a prediction request:
// parse the input, score it, format the result. The first failing stage ends
// the request with a structured error result; later stages are not attempted.
package pipeline

import (
	"errors"

	"housing-predictor/internal/features"
	"housing-predictor/internal/format"
	"housing-predictor/internal/ml"

	"github.com/rs/zerolog/log"
)

// StatusError marks a failed result.
const StatusError = "error"

// Stage identifies where a request failed.
type Stage string

const (
	StageNone             Stage = ""
	StageParse            Stage = "parse"
	StageModelUnavailable Stage = "model_unavailable"
	StagePrediction       Stage = "prediction"
	StageFormat           Stage = "format"
)

// Predictor is the scoring step. *ml.Adapter implements it.
type Predictor interface {
	Predict(v features.Vector) (float64, error)
}

// MetricsInterface defines metrics methods needed by the assembler
type MetricsInterface interface {
	PipelineRequestsInc()
	PipelineErrorsInc(stage string)
}

// Result is the response object returned at the service boundary. On success
// it carries the formatted prediction; on failure only status and message.
type Result struct {
	*format.Prediction
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	Stage Stage `json:"-"`
	Err   error `json:"-"`
}

// OK reports whether the request succeeded.
func (r Result) OK() bool {
	return r.Status == format.StatusSuccess && r.Prediction != nil
}

// Assembler runs the pipeline. It holds no per-request state and is safe for
// concurrent use.
type Assembler struct {
	predictor Predictor
	formatter *format.Formatter
	metrics   MetricsInterface
}

// New creates an assembler. metrics may be nil.
func New(predictor Predictor, formatter *format.Formatter, metrics MetricsInterface) *Assembler {
	return &Assembler{predictor: predictor, formatter: formatter, metrics: metrics}
}

// FromString runs the pipeline on a delimited string of eight numbers.
func (a *Assembler) FromString(input string) Result {
	a.countRequest()
	v, err := features.Parse(input)
	if err != nil {
		return a.fail(StageParse, err)
	}
	return a.score(v)
}

// FromNamed runs the pipeline on the structured eight-field object.
func (a *Assembler) FromNamed(n features.Named) Result {
	a.countRequest()
	v, err := features.FromNamed(n)
	if err != nil {
		return a.fail(StageParse, err)
	}
	return a.score(v)
}

// FromVector runs the scoring and formatting stages on an already parsed vector.
func (a *Assembler) FromVector(v features.Vector) Result {
	a.countRequest()
	return a.score(v)
}

func (a *Assembler) score(v features.Vector) Result {
	raw, err := a.predictor.Predict(v)
	if err != nil {
		var unavailable *ml.ModelUnavailableError
		if errors.As(err, &unavailable) {
			return a.fail(StageModelUnavailable, err)
		}
		return a.fail(StagePrediction, err)
	}

	p, err := a.formatter.Format(raw, format.StatusSuccess)
	if err != nil {
		return a.fail(StageFormat, err)
	}

	return Result{Prediction: &p, Status: format.StatusSuccess}
}

func (a *Assembler) fail(stage Stage, err error) Result {
	if stage == StageParse {
		log.Warn().Err(err).Msg("Validation error")
	} else {
		log.Error().Err(err).Str("stage", string(stage)).Msg("Prediction request failed")
	}
	if a.metrics != nil {
		a.metrics.PipelineErrorsInc(string(stage))
	}
	return Result{Status: StatusError, Message: err.Error(), Stage: stage, Err: err}
}

func (a *Assembler) countRequest() {
	if a.metrics != nil {
		a.metrics.PipelineRequestsInc()
	}
}
