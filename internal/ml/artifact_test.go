package ml

import (
	"os"
	"path/filepath"
	"testing"

	"housing-predictor/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linearYAML = `
kind: linear
version: "20240101-120000"
trained_at: "2024-01-01T12:00:00Z"
features: [MedInc, HouseAge, AveRooms, AveBedrms, Population, AveOccup, Latitude, Longitude]
linear:
  intercept: 0.5
  coefficients: [0.25, 0, 0, 0, 0, 0, 0, 0]
`

const forestJSON = `{
  "kind": "forest",
  "version": "rf-10",
  "forest": {
    "trees": [
      {
        "children_left":  [1, -1, -1],
        "children_right": [2, -1, -1],
        "feature":        [0, -2, -2],
        "threshold":      [3.0, -2, -2],
        "value":          [1.5, 1.0, 2.0]
      },
      {
        "children_left":  [-1],
        "children_right": [-1],
        "feature":        [-2],
        "threshold":      [-2],
        "value":          [3.0]
      }
    ]
  }
}`

func TestDecode_Linear(t *testing.T) {
	m, err := Decode([]byte(linearYAML))
	require.NoError(t, err)

	got, err := m.Predict(features.Vector{4, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got, 1e-12)

	md := m.Metadata()
	assert.Equal(t, KindLinear, md.Kind)
	assert.Equal(t, "20240101-120000", md.Version)
	assert.Equal(t, "2024-01-01T12:00:00Z", md.TrainedAt)
}

func TestDecode_LinearWithScaler(t *testing.T) {
	doc := `
kind: linear
scaler:
  mean:  [2, 0, 0, 0, 0, 0, 0, 0]
  scale: [4, 1, 1, 1, 1, 1, 1, 1]
linear:
  intercept: 1
  coefficients: [2, 0, 0, 0, 0, 0, 0, 0]
`
	m, err := Decode([]byte(doc))
	require.NoError(t, err)

	// (6 - 2) / 4 = 1, so 1 + 2*1 = 3
	got, err := m.Predict(features.Vector{6})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got, 1e-12)
	assert.Equal(t, "unknown", m.Metadata().Version)
}

func TestDecode_Forest(t *testing.T) {
	m, err := Decode([]byte(forestJSON))
	require.NoError(t, err)

	low, err := m.Predict(features.Vector{2.5})
	require.NoError(t, err)
	assert.InDelta(t, (1.0+3.0)/2, low, 1e-12)

	// the threshold itself goes left
	edge, err := m.Predict(features.Vector{3.0})
	require.NoError(t, err)
	assert.InDelta(t, low, edge, 1e-12)

	high, err := m.Predict(features.Vector{4.2})
	require.NoError(t, err)
	assert.InDelta(t, (2.0+3.0)/2, high, 1e-12)

	assert.Equal(t, 2, m.Metadata().Trees)
}

func TestDecode_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		msg  string
	}{
		{"not yaml", "kind: [", "failed to parse"},
		{"unknown kind", "kind: svm", "unsupported model kind"},
		{"missing linear", "kind: linear", "requires a linear section"},
		{"short coefficients", "kind: linear\nlinear: {coefficients: [1, 2]}", "expected 8 coefficients"},
		{"wrong feature order", "kind: linear\nfeatures: [HouseAge, MedInc]\nlinear: {coefficients: [0,0,0,0,0,0,0,0]}", "feature order"},
		{"zero scale", "kind: linear\nscaler: {mean: [0,0,0,0,0,0,0,0], scale: [1,1,0,1,1,1,1,1]}\nlinear: {coefficients: [0,0,0,0,0,0,0,0]}", "scale 2 is zero"},
		{"empty forest", "kind: forest\nforest: {trees: []}", "at least one tree"},
		{"mismatched arrays", "kind: forest\nforest: {trees: [{children_left: [-1], children_right: [-1], feature: [], threshold: [0], value: [1]}]}", "mismatched lengths"},
		{"backwards child", "kind: forest\nforest: {trees: [{children_left: [0, -1], children_right: [1, -1], feature: [0, -2], threshold: [0, 0], value: [1, 2]}]}", "out of range children"},
		{"one child", "kind: forest\nforest: {trees: [{children_left: [-1], children_right: [3], feature: [0], threshold: [0], value: [1]}]}", "only one child"},
		{"bad feature index", "kind: forest\nforest: {trees: [{children_left: [1, -1, -1], children_right: [2, -1, -1], feature: [9, -2, -2], threshold: [0, 0, 0], value: [0, 1, 2]}]}", "unknown feature 9"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(linearYAML), 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, KindLinear, m.Metadata().Kind)

	_, err = Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read model file")
}

func TestModel_NilSafety(t *testing.T) {
	var m *Model
	_, err := m.Predict(features.Vector{})
	assert.Error(t, err)
}

func TestOpen_ShippedArtifact(t *testing.T) {
	m, err := Open(filepath.Join("..", "..", "model", "model.yaml"))
	require.NoError(t, err)
	assert.Equal(t, KindLinear, m.Metadata().Kind)

	v := features.Vector{8.3252, 41, 6.984127, 1.02381, 322, 2.555556, 37.88, -122.23}
	raw, err := m.Predict(v)
	require.NoError(t, err)
	assert.InDelta(t, 4.13, raw, 0.05)
}
