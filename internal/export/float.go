// Package export renders pipeline artifacts for the outside world. Every float
// crossing that boundary passes through Float, so NaN and ±Inf always become an
// explicit null (JSON, YAML) or an empty cell (CSV).
package export

import (
	"math"
	"strconv"
)

// Float is a float64 that serializes non-finite values as missing.
type Float float64

// Valid reports whether f is finite.
func (f Float) Valid() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(f), 'g', -1, 64), nil
}

func (f Float) MarshalYAML() (any, error) {
	if !f.Valid() {
		return nil, nil
	}
	return float64(f), nil
}

// String formats f for CSV; non-finite values are empty.
func (f Float) String() string {
	if !f.Valid() {
		return ""
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

// Floats converts a slice.
func Floats(xs []float64) []Float {
	if xs == nil {
		return nil
	}
	out := make([]Float, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}

// Ptr converts an optional score; nil stays nil.
func Ptr(p *float64) *Float {
	if p == nil {
		return nil
	}
	f := Float(*p)
	return &f
}
