package sampling

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"
)

// Sequence names stored in sampler state.
const (
	SequenceSobol  = "sobol"
	SequenceHalton = "halton"
)

// Sequence generates deterministic points in the unit hypercube [0,1)^dim.
type Sequence interface {
	Name() string
	Points(n, dim int) (*mat.Dense, error)
}

// Halton generates an Owen-scrambled Halton sequence. The scrambling
// permutations come from a PCG source seeded with Seed, so equal seeds give
// equal point sets.
type Halton struct {
	Seed uint64
}

// maxHaltonDim mirrors the prime table limit in gonum's samplemv.
const maxHaltonDim = 1000

// Name implements Sequence.
func (Halton) Name() string { return SequenceHalton }

// Points implements Sequence.
func (h Halton) Points(n, dim int) (*mat.Dense, error) {
	if n < 1 || n > maxSobolPoints {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	if dim < 1 || dim > maxHaltonDim {
		return nil, fmt.Errorf("%w: halton supports 1..%d dimensions, got %d", ErrDimension, maxHaltonDim, dim)
	}
	out := mat.NewDense(n, dim, nil)
	samplemv.Halton{
		Kind: samplemv.Owen,
		Q:    distmv.NewUnitUniform(dim, nil),
		Src:  rand.NewPCG(h.Seed, h.Seed^0x9e3779b97f4a7c15),
	}.Sample(out)
	return out, nil
}

// NewSequence returns the sequence registered under name. The seed is only
// used by scrambled sequences.
func NewSequence(name string, seed uint64) (Sequence, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SequenceSobol:
		return Sobol{}, nil
	case SequenceHalton:
		return Halton{Seed: seed}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSequence, name)
	}
}

// seedOf extracts the seed of a scrambled sequence for state persistence.
func seedOf(seq Sequence) uint64 {
	if h, ok := seq.(Halton); ok {
		return h.Seed
	}
	return 0
}
