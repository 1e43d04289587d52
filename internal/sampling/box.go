// Package sampling draws low-discrepancy samples from a hyper-rectangle
// defined in log10 space and returns them in linear parameter space.
package sampling

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRange indicates a malformed sampling box: mismatched or empty
	// bounds, non-finite values, or low > high in some dimension.
	ErrInvalidRange = errors.New("sampling: invalid range")

	// ErrInvalidCount indicates a non-positive or oversized sample count.
	ErrInvalidCount = errors.New("sampling: invalid sample count")

	// ErrDimension indicates more dimensions than the sequence supports.
	ErrDimension = errors.New("sampling: unsupported dimension")

	// ErrUnknownSequence indicates an unrecognised sequence name.
	ErrUnknownSequence = errors.New("sampling: unknown sequence")
)

// Box is a closed hyper-rectangle in log10 space.
type Box struct {
	Low  []float64 `json:"low"`
	High []float64 `json:"high"`
}

// NewBox validates and copies the bounds.
func NewBox(low, high []float64) (Box, error) {
	if len(low) == 0 {
		return Box{}, fmt.Errorf("%w: empty bounds", ErrInvalidRange)
	}
	if len(low) != len(high) {
		return Box{}, fmt.Errorf("%w: low has %d entries, high has %d", ErrInvalidRange, len(low), len(high))
	}
	for i := range low {
		if math.IsNaN(low[i]) || math.IsInf(low[i], 0) || math.IsNaN(high[i]) || math.IsInf(high[i], 0) {
			return Box{}, fmt.Errorf("%w: non-finite bound at index %d", ErrInvalidRange, i)
		}
		if low[i] > high[i] {
			return Box{}, fmt.Errorf("%w: low[%d]=%g > high[%d]=%g", ErrInvalidRange, i, low[i], i, high[i])
		}
	}
	return Box{Low: append([]float64(nil), low...), High: append([]float64(nil), high...)}, nil
}

// Around returns the box [base-delta, base+delta]. delta must have length 1
// (applied to every dimension) or len(base).
func Around(base, delta []float64) (Box, error) {
	if len(delta) != 1 && len(delta) != len(base) {
		return Box{}, fmt.Errorf("%w: delta has %d entries, want 1 or %d", ErrInvalidRange, len(delta), len(base))
	}
	low := make([]float64, len(base))
	high := make([]float64, len(base))
	for i, b := range base {
		d := delta[0]
		if len(delta) > 1 {
			d = delta[i]
		}
		low[i] = b - d
		high[i] = b + d
	}
	return NewBox(low, high)
}

// Dim returns the number of parameters P.
func (b Box) Dim() int { return len(b.Low) }

// Width returns High[i]-Low[i].
func (b Box) Width(i int) float64 { return b.High[i] - b.Low[i] }

// Map transforms a unit-cube point into linear space:
// 10^(Low[i] + u[i]*(High[i]-Low[i])).
func (b Box) Map(dst, u []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(u))
	}
	for i, v := range u {
		dst[i] = math.Pow(10, b.Low[i]+v*b.Width(i))
	}
	return dst
}

// Contains reports whether every component of x (linear space) lies within
// [10^Low[i], 10^High[i]].
func (b Box) Contains(x []float64) bool {
	if len(x) != b.Dim() {
		return false
	}
	for i, v := range x {
		if v < math.Pow(10, b.Low[i]) || v > math.Pow(10, b.High[i]) {
			return false
		}
	}
	return true
}
