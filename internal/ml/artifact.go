package ml

import (
	"fmt"
	"os"
	"slices"

	"housing-predictor/internal/features"

	"gopkg.in/yaml.v3"
)

// Supported estimator kinds.
const (
	KindLinear = "linear"
	KindForest = "forest"
)

// Artifact is the persisted form of a trained model. It is read from YAML or
// JSON; yaml.v3 accepts both.
type Artifact struct {
	Kind      string   `yaml:"kind"`
	Version   string   `yaml:"version"`
	TrainedAt string   `yaml:"trained_at"`
	Features  []string `yaml:"features"`
	Scaler    *Scaler  `yaml:"scaler"`
	Linear    *Linear  `yaml:"linear"`
	Forest    *Forest  `yaml:"forest"`
}

// Scaler standardizes each feature as (x - mean) / scale before scoring.
type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// Linear is an ordinary least squares estimator.
type Linear struct {
	Intercept    float64   `yaml:"intercept"`
	Coefficients []float64 `yaml:"coefficients"`
}

// Forest averages the outputs of its regression trees.
type Forest struct {
	Trees []Tree `yaml:"trees"`
}

// Tree is a flattened binary regression tree. Node 0 is the root; a node is a
// leaf when its left child is -1. Samples go left when x[feature] <= threshold.
type Tree struct {
	ChildrenLeft  []int     `yaml:"children_left"`
	ChildrenRight []int     `yaml:"children_right"`
	Feature       []int     `yaml:"feature"`
	Threshold     []float64 `yaml:"threshold"`
	Value         []float64 `yaml:"value"`
}

// ModelMetadata describes a loaded model for health and info endpoints.
type ModelMetadata struct {
	Kind      string `json:"kind"`
	Version   string `json:"version"`
	TrainedAt string `json:"trained_at,omitempty"`
	Trees     int    `json:"trees,omitempty"`
}

// Model is an opened, validated artifact. It is immutable.
type Model struct {
	artifact Artifact
}

// Open reads and validates a model artifact from disk.
func Open(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses and validates an artifact document.
func Decode(data []byte) (*Model, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	return &Model{artifact: a}, nil
}

func (a *Artifact) validate() error {
	if len(a.Features) > 0 && !slices.Equal(a.Features, features.Names()) {
		return fmt.Errorf("feature order %v does not match %v", a.Features, features.Names())
	}

	if a.Scaler != nil {
		if len(a.Scaler.Mean) != features.Count || len(a.Scaler.Scale) != features.Count {
			return fmt.Errorf("scaler needs %d means and scales, got %d and %d",
				features.Count, len(a.Scaler.Mean), len(a.Scaler.Scale))
		}
		for i, s := range a.Scaler.Scale {
			if s == 0 {
				return fmt.Errorf("scaler scale %d is zero", i)
			}
		}
	}

	switch a.Kind {
	case KindLinear:
		if a.Linear == nil {
			return fmt.Errorf("kind %q requires a linear section", a.Kind)
		}
		if len(a.Linear.Coefficients) != features.Count {
			return fmt.Errorf("expected %d coefficients, got %d", features.Count, len(a.Linear.Coefficients))
		}
	case KindForest:
		if a.Forest == nil || len(a.Forest.Trees) == 0 {
			return fmt.Errorf("kind %q requires at least one tree", a.Kind)
		}
		for i := range a.Forest.Trees {
			if err := a.Forest.Trees[i].validate(); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	return nil
}

func (t *Tree) validate() error {
	n := len(t.Value)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.ChildrenLeft) != n || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n {
		return fmt.Errorf("node arrays have mismatched lengths")
	}
	for i := 0; i < n; i++ {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == -1 {
			if right != -1 {
				return fmt.Errorf("node %d has only one child", i)
			}
			continue
		}
		// Children always follow their parent, which rules out cycles.
		if left <= i || left >= n || right <= i || right >= n {
			return fmt.Errorf("node %d has out of range children %d, %d", i, left, right)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= features.Count {
			return fmt.Errorf("node %d splits on unknown feature %d", i, t.Feature[i])
		}
	}
	return nil
}

// Predict implements Scorer.
func (m *Model) Predict(v features.Vector) (float64, error) {
	if m == nil {
		return 0, fmt.Errorf("model is nil")
	}

	x := v
	if s := m.artifact.Scaler; s != nil {
		for i := range x {
			x[i] = (x[i] - s.Mean[i]) / s.Scale[i]
		}
	}

	switch m.artifact.Kind {
	case KindLinear:
		y := m.artifact.Linear.Intercept
		for i, c := range m.artifact.Linear.Coefficients {
			y += c * x[i]
		}
		return y, nil
	case KindForest:
		var sum float64
		for i := range m.artifact.Forest.Trees {
			sum += m.artifact.Forest.Trees[i].predict(x)
		}
		return sum / float64(len(m.artifact.Forest.Trees)), nil
	}
	return 0, fmt.Errorf("unsupported model kind %q", m.artifact.Kind)
}

func (t *Tree) predict(x features.Vector) float64 {
	node := 0
	for t.ChildrenLeft[node] != -1 {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// Metadata returns a description of the model.
func (m *Model) Metadata() ModelMetadata {
	md := ModelMetadata{
		Kind:      m.artifact.Kind,
		Version:   m.artifact.Version,
		TrainedAt: m.artifact.TrainedAt,
	}
	if md.Version == "" {
		md.Version = "unknown"
	}
	if m.artifact.Forest != nil {
		md.Trees = len(m.artifact.Forest.Trees)
	}
	return md
}
