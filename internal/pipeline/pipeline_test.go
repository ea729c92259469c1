package pipeline

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"housing-predictor/internal/features"
	"housing-predictor/internal/format"
	"housing-predictor/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMetrics struct {
	mu       sync.Mutex
	requests int
	errors   map[string]int
}

func (m *mockMetrics) PipelineRequestsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
}

func (m *mockMetrics) PipelineErrorsInc(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[stage]++
}

func newAssembler(scorer ml.Scorer, metrics MetricsInterface) *Assembler {
	return New(
		ml.NewAdapter(ml.Ready(scorer), nil),
		format.New(100000.0, 1.10, format.TransformNone),
		metrics,
	)
}

func constant(raw float64) ml.Scorer {
	return ml.ScorerFunc(func(features.Vector) (float64, error) { return raw, nil })
}

const wantSuccess = `{
	"prediction": 1.93101,
	"prediction_eur": 193101.0,
	"prediction_usd": 212411.1,
	"prediction_eur_formatted": "193,101.00 EUR",
	"prediction_usd_formatted": "212,411.10 USD",
	"status": "success",
	"message_text": "🏠 Estimated price: 193,101.00 EUR / 212,411.10 USD\n\nStatus: success",
	"message_html": "🏠 <b>Estimated price</b>\n193,101.00 EUR / 212,411.10 USD\n\n✅ <b>Status</b>: success"
}`

func TestFromString_EndToEnd(t *testing.T) {
	a := newAssembler(constant(1.931010), nil)

	res := a.FromString("4.2,15,5.3,1.2,1800,3.1,34.05,-118.25")
	require.True(t, res.OK(), "unexpected failure: %s", res.Message)
	assert.Equal(t, StageNone, res.Stage)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, wantSuccess, string(body))
}

func TestFromNamed_MatchesFromString(t *testing.T) {
	var seen []features.Vector
	var mu sync.Mutex
	scorer := ml.ScorerFunc(func(v features.Vector) (float64, error) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
		return 1.931010, nil
	})
	a := newAssembler(scorer, nil)

	fromString := a.FromString("4.2;15;5.3;1.2;1800;3.1;34.05;-118.25")
	fromNamed := a.FromNamed(features.NamedFrom(features.Vector{4.2, 15, 5.3, 1.2, 1800, 3.1, 34.05, -118.25}))

	require.True(t, fromString.OK())
	require.True(t, fromNamed.OK())
	assert.Equal(t, fromString, fromNamed)
	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
}

func TestPipeline_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		scorer  ml.Scorer
		input   string
		stage   Stage
		message string
	}{
		{
			name:    "parse error",
			scorer:  constant(1),
			input:   "1,2,3",
			stage:   StageParse,
			message: "exactly 8 numerical values (got 3)",
		},
		{
			name:    "non numeric",
			scorer:  constant(1),
			input:   "a,2,3,4,5,6,7,8",
			stage:   StageParse,
			message: "not a valid number",
		},
		{
			name: "scorer error",
			scorer: ml.ScorerFunc(func(features.Vector) (float64, error) {
				return 0, errors.New("boom")
			}),
			input:   "1,2,3,4,5,6,7,8",
			stage:   StagePrediction,
			message: "Prediction failed: boom",
		},
		{
			name: "scorer panic",
			scorer: ml.ScorerFunc(func(features.Vector) (float64, error) {
				panic("kaboom")
			}),
			input:   "1,2,3,4,5,6,7,8",
			stage:   StagePrediction,
			message: "kaboom",
		},
		{
			name:    "non finite output",
			scorer:  constant(math.NaN()),
			input:   "1,2,3,4,5,6,7,8",
			stage:   StageFormat,
			message: "not a finite number",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &mockMetrics{}
			res := newAssembler(tc.scorer, metrics).FromString(tc.input)

			assert.False(t, res.OK())
			assert.Equal(t, StatusError, res.Status)
			assert.Equal(t, tc.stage, res.Stage)
			assert.Contains(t, res.Message, tc.message)
			assert.Nil(t, res.Prediction)
			assert.Error(t, res.Err)
			assert.Equal(t, 1, metrics.errors[string(tc.stage)])

			body, err := json.Marshal(res)
			require.NoError(t, err)

			var payload map[string]any
			require.NoError(t, json.Unmarshal(body, &payload))
			assert.Equal(t, "error", payload["status"])
			assert.NotEmpty(t, payload["message"])
			assert.NotContains(t, payload, "prediction_eur")
			assert.NotContains(t, payload, "prediction")
			assert.Len(t, payload, 2)
		})
	}
}

func TestPipeline_ModelUnavailable(t *testing.T) {
	a := New(ml.NewAdapter(ml.NewHandle("model.yaml", nil), nil), format.New(100000, 1.1, ""), nil)

	res := a.FromString("1,2,3,4,5,6,7,8")
	assert.Equal(t, StageModelUnavailable, res.Stage)
	assert.Contains(t, res.Message, "Model not loaded")

	var unavailable *ml.ModelUnavailableError
	assert.True(t, errors.As(res.Err, &unavailable))
}

func TestPipeline_ShortCircuits(t *testing.T) {
	calls := 0
	a := newAssembler(ml.ScorerFunc(func(features.Vector) (float64, error) {
		calls++
		return 1, nil
	}), nil)

	res := a.FromString("")
	assert.Equal(t, StageParse, res.Stage)
	assert.Equal(t, 0, calls)

	res = a.FromNamed(features.Named{})
	assert.Equal(t, StageParse, res.Stage)
	assert.Equal(t, 0, calls)
}

func TestPipeline_CountsRequests(t *testing.T) {
	metrics := &mockMetrics{}
	a := newAssembler(constant(2), metrics)

	a.FromString("1,2,3,4,5,6,7,8")
	a.FromString("bad")
	a.FromVector(features.Vector{})

	assert.Equal(t, 3, metrics.requests)
	assert.Equal(t, 1, metrics.errors[string(StageParse)])
}

func TestPipeline_Concurrent(t *testing.T) {
	a := newAssembler(ml.ScorerFunc(func(v features.Vector) (float64, error) {
		return v[features.MedInc] / 2, nil
	}), nil)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := a.FromVector(features.Vector{float64(i)})
			if assert.True(t, res.OK()) {
				assert.InDelta(t, float64(i)*50000, res.EUR, 0.001)
			}
		}(i)
	}
	wg.Wait()
}
