// Package features turns user input into the fixed-length feature vector the
// housing price model scores. Both entry points, a delimited string and a
// structured object with named fields, produce the same Vector.
package features

import (
	"fmt"
	"math"
)

// Count is the number of features the model expects.
const Count = 8

// Feature positions. Order is significant: the model was trained on columns
// in exactly this order.
const (
	MedInc = iota
	HouseAge
	AveRooms
	AveBedrms
	Population
	AveOccup
	Latitude
	Longitude
)

var names = [Count]string{
	"MedInc",
	"HouseAge",
	"AveRooms",
	"AveBedrms",
	"Population",
	"AveOccup",
	"Latitude",
	"Longitude",
}

// Vector is an ordered set of finite feature values.
type Vector [Count]float64

// Names returns the canonical feature names in vector order.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// Slice returns the vector as a fresh slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Count)
	copy(out, v[:])
	return out
}

// Named is the structured request body. Pointers let a missing field be told
// apart from an explicit zero.
type Named struct {
	MedInc     *float64 `json:"MedInc"`
	HouseAge   *float64 `json:"HouseAge"`
	AveRooms   *float64 `json:"AveRooms"`
	AveBedrms  *float64 `json:"AveBedrms"`
	Population *float64 `json:"Population"`
	AveOccup   *float64 `json:"AveOccup"`
	Latitude   *float64 `json:"Latitude"`
	Longitude  *float64 `json:"Longitude"`
}

// NamedFrom builds a fully populated Named from a vector.
func NamedFrom(v Vector) Named {
	vals := v
	return Named{
		MedInc:     &vals[MedInc],
		HouseAge:   &vals[HouseAge],
		AveRooms:   &vals[AveRooms],
		AveBedrms:  &vals[AveBedrms],
		Population: &vals[Population],
		AveOccup:   &vals[AveOccup],
		Latitude:   &vals[Latitude],
		Longitude:  &vals[Longitude],
	}
}

func (n Named) fields() [Count]*float64 {
	return [Count]*float64{
		n.MedInc, n.HouseAge, n.AveRooms, n.AveBedrms,
		n.Population, n.AveOccup, n.Latitude, n.Longitude,
	}
}

// FromNamed converts the structured input into a Vector. Every field is
// required and must be finite.
func FromNamed(n Named) (Vector, error) {
	var v Vector
	var missing []string
	for i, f := range n.fields() {
		if f == nil {
			missing = append(missing, names[i])
			continue
		}
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			return Vector{}, &ParseError{Reason: fmt.Sprintf("%s must be a finite number", names[i])}
		}
		v[i] = *f
	}
	if len(missing) > 0 {
		return Vector{}, &ParseError{Reason: fmt.Sprintf("missing required fields: %v", missing)}
	}
	return v, nil
}
