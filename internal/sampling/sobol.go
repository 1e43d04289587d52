package sampling

import (
	"fmt"
	"math/bits"

	"gonum.org/v1/gonum/mat"
)

const (
	sobolBits = 32
	// maxSobolPoints bounds the Gray-code index so every point has a distinct
	// 32-bit code.
	maxSobolPoints = 1 << 31
)

// sobolPolynomial holds one row of the Joe-Kuo (new-joe-kuo-6.21201)
// direction-number table: the degree s, the encoded interior coefficients a
// and the initial odd integers m_1..m_s.
type sobolPolynomial struct {
	s uint
	a uint32
	m []uint32
}

// joeKuo covers dimensions 2..21; dimension 1 is the van der Corput sequence.
var joeKuo = []sobolPolynomial{
	{1, 0, []uint32{1}},
	{2, 1, []uint32{1, 3}},
	{3, 1, []uint32{1, 3, 1}},
	{3, 2, []uint32{1, 1, 1}},
	{4, 1, []uint32{1, 1, 3, 3}},
	{4, 4, []uint32{1, 3, 5, 13}},
	{5, 2, []uint32{1, 1, 5, 5, 17}},
	{5, 4, []uint32{1, 1, 5, 5, 5}},
	{5, 7, []uint32{1, 1, 7, 11, 19}},
	{5, 11, []uint32{1, 1, 5, 1, 1}},
	{5, 13, []uint32{1, 1, 1, 3, 11}},
	{5, 14, []uint32{1, 3, 5, 5, 31}},
	{6, 1, []uint32{1, 3, 3, 9, 7, 49}},
	{6, 13, []uint32{1, 1, 1, 15, 21, 21}},
	{6, 16, []uint32{1, 3, 1, 13, 27, 49}},
	{6, 19, []uint32{1, 1, 1, 15, 7, 5}},
	{6, 22, []uint32{1, 3, 1, 15, 13, 25}},
	{6, 25, []uint32{1, 1, 5, 5, 19, 61}},
	{7, 1, []uint32{1, 3, 7, 11, 23, 15, 103}},
	{7, 4, []uint32{1, 3, 7, 13, 13, 15, 69}},
}

// MaxSobolDim is the largest dimension the built-in direction numbers support.
var MaxSobolDim = len(joeKuo) + 1

// Sobol generates the unscrambled Sobol sequence with Joe-Kuo direction
// numbers. Point 0 is the origin; the first 2^k points of every dimension
// form a (0,k,1)-net, so each 1D projection is exactly {j/2^k}.
type Sobol struct{}

// Name implements Sequence.
func (Sobol) Name() string { return SequenceSobol }

// Points returns the first n points of the dim-dimensional sequence as rows
// of an n×dim matrix.
func (Sobol) Points(n, dim int) (*mat.Dense, error) {
	if n < 1 || n > maxSobolPoints {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidCount, n, maxSobolPoints)
	}
	if dim < 1 || dim > MaxSobolDim {
		return nil, fmt.Errorf("%w: sobol supports 1..%d dimensions, got %d", ErrDimension, MaxSobolDim, dim)
	}

	v := sobolDirections(dim)
	x := make([]uint32, dim)
	out := mat.NewDense(n, dim, nil)
	const scale = 1.0 / (1 << sobolBits)

	// Row 0 stays at the origin. Row i flips the direction number selected by
	// the lowest zero bit of i-1 (Gray-code ordering).
	for i := 1; i < n; i++ {
		c := bits.TrailingZeros32(^uint32(i - 1))
		row := out.RawRowView(i)
		for j := 0; j < dim; j++ {
			x[j] ^= v[j][c]
			row[j] = float64(x[j]) * scale
		}
	}
	return out, nil
}

// sobolDirections returns the direction numbers v[j][k], scaled to 32 bits.
func sobolDirections(dim int) [][sobolBits]uint32 {
	v := make([][sobolBits]uint32, dim)
	for k := 0; k < sobolBits; k++ {
		v[0][k] = 1 << (sobolBits - 1 - k)
	}
	for j := 1; j < dim; j++ {
		p := joeKuo[j-1]
		s := int(p.s)
		for k := 0; k < s && k < sobolBits; k++ {
			v[j][k] = p.m[k] << (sobolBits - 1 - k)
		}
		for k := s; k < sobolBits; k++ {
			v[j][k] = v[j][k-s] ^ (v[j][k-s] >> p.s)
			for l := 1; l < s; l++ {
				if (p.a>>(s-1-l))&1 == 1 {
					v[j][k] ^= v[j][k-l]
				}
			}
		}
	}
	return v
}
