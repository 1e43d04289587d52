package sampling

import (
	"fmt"
	"math/bits"

	"github.com/banshee-data/gram/internal/monitoring"
)

// LogSampler draws quasi-random samples from a Box in log10 space and
// returns them exponentiated back to linear space.
//
// Any sample count N >= 1 is accepted: Sample(N) returns the first N points
// of the sequence, starting from the origin. Sobol balance properties only
// hold when N is a power of two, so other counts log a warning.
type LogSampler struct {
	box Box
	seq Sequence
}

// State is the serializable configuration of a LogSampler.
type State struct {
	Low      []float64 `json:"low"`
	High     []float64 `json:"high"`
	Sequence string    `json:"sequence"`
	Seed     uint64    `json:"seed,omitempty"`
}

// Option configures a LogSampler.
type Option func(*LogSampler)

// WithSequence selects the unit-cube sequence. Nil keeps the Sobol default.
func WithSequence(seq Sequence) Option {
	return func(s *LogSampler) {
		if seq != nil {
			s.seq = seq
		}
	}
}

// NewLogSampler validates the log10 bounds and returns a sampler. It fails
// with ErrInvalidRange when the bounds are malformed.
func NewLogSampler(low, high []float64, opts ...Option) (*LogSampler, error) {
	box, err := NewBox(low, high)
	if err != nil {
		return nil, err
	}
	s := &LogSampler{box: box, seq: Sobol{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.seq.Name() == SequenceSobol && box.Dim() > MaxSobolDim {
		return nil, fmt.Errorf("%w: %d parameters exceed sobol limit %d", ErrDimension, box.Dim(), MaxSobolDim)
	}
	return s, nil
}

// FromState rebuilds a sampler from its persisted state.
func FromState(st State) (*LogSampler, error) {
	seq, err := NewSequence(st.Sequence, st.Seed)
	if err != nil {
		return nil, err
	}
	return NewLogSampler(st.Low, st.High, WithSequence(seq))
}

// Box returns a copy of the sampling box.
func (s *LogSampler) Box() Box {
	b, _ := NewBox(s.box.Low, s.box.High)
	return b
}

// Dim returns the number of parameters P.
func (s *LogSampler) Dim() int { return s.box.Dim() }

// State returns the serializable sampler configuration.
func (s *LogSampler) State() State {
	return State{
		Low:      append([]float64(nil), s.box.Low...),
		High:     append([]float64(nil), s.box.High...),
		Sequence: s.seq.Name(),
		Seed:     seedOf(s.seq),
	}
}

// UnitPoints returns the first n unit-cube points, one row per sample.
func (s *LogSampler) UnitPoints(n int) ([][]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	m, err := s.seq.Points(n, s.box.Dim())
	if err != nil {
		return nil, err
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return out, nil
}

// Sample returns n parameter vectors in linear space, each component within
// [10^Low[i], 10^High[i]]. Two samplers with equal state return identical
// output for equal n.
func (s *LogSampler) Sample(n int) ([][]float64, error) {
	if n >= 1 && bits.OnesCount(uint(n)) != 1 {
		monitoring.Warnf("sampling: N=%d is not a power of two; using the first %d points of the %s sequence", n, n, s.seq.Name())
	}
	points, err := s.UnitPoints(n)
	if err != nil {
		return nil, err
	}
	for i, u := range points {
		points[i] = s.box.Map(u, u)
	}
	return points, nil
}
