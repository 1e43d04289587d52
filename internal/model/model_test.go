package model

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exp10(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Pow(10, x)
	}
	return out
}

func TestBuilders_DefaultBase(t *testing.T) {
	for _, b := range []Builder{Linear{}, Hill{}, TwoState{}} {
		t.Run(b.Name(), func(t *testing.T) {
			base := b.DefaultBase()
			require.Len(t, base, 9)
			require.Len(t, b.ParameterNames(), 9)

			for _, params := range [][]float64{base, exp10(base)} {
				m, err := b.Build(params)
				require.NoError(t, err)
				assert.Equal(t, b.Kind(), m.Kind)

				unperturbed, perturbed, err := m.Conditions()
				require.NoError(t, err)
				assert.False(t, unperturbed.Perturbed)
				assert.True(t, perturbed.Perturbed)
				if diff := cmp.Diff(unperturbed.Strengths, perturbed.Strengths); diff != "" {
					t.Errorf("feedback strengths differ (-unperturbed +perturbed):\n%s", diff)
				}
			}
		})
	}
}

func TestLinear_Mapping(t *testing.T) {
	params := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	m, err := Linear{}.Build(params)
	require.NoError(t, err)

	want := map[string]float64{"k0": 1, "k1": 2, "k2": 3, "g0": 4, "g1": 5, "g2": 6}
	if diff := cmp.Diff(want, m.Rates); diff != "" {
		t.Errorf("rates mismatch (-want +got):\n%s", diff)
	}
	fb, _, err := m.Conditions()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"eta0": 7, "eta1": 8, "eta2": 9}, fb.Strengths)
}

func TestHill_Mapping(t *testing.T) {
	params := []float64{2, 10, 20, 0.1, 0.01, 3, 4, 0.5, 0.25}
	m, err := Hill{}.Build(params)
	require.NoError(t, err)

	assert.Equal(t, HillActivatorKm, m.Rates["k_m"])
	assert.Equal(t, 2.0, m.Rates["n"])
	assert.Equal(t, 0.01, m.Rates["g2"])

	_, fb, err := m.Conditions()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"k_m": 3, "r_n": 4, "eta1": 0.5, "eta2": 0.25}, fb.Strengths)
}

func TestBuild_Pure(t *testing.T) {
	params := exp10(TwoState{}.DefaultBase())
	a, err := TwoState{}.Build(params)
	require.NoError(t, err)
	b, err := TwoState{}.Build(params)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Build is not deterministic:\n%s", diff)
	}

	params[0] = 99
	assert.NotEqual(t, 99.0, a.Rates["k0"], "model must not alias the input vector")
}

func TestBuild_InvalidParameters(t *testing.T) {
	testCases := []struct {
		name   string
		params []float64
	}{
		{"too_short", []float64{1, 2, 3}},
		{"too_long", make([]float64, 10)},
		{"nan", []float64{1, 1, 1, 1, math.NaN(), 1, 1, 1, 1}},
		{"inf", []float64{1, 1, 1, 1, 1, 1, 1, 1, math.Inf(-1)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, b := range []Builder{Linear{}, Hill{}, TwoState{}} {
				_, err := b.Build(tc.params)
				assert.ErrorIs(t, err, ErrInvalidParameters, b.Name())
			}
		})
	}
}

func TestModel_Validate(t *testing.T) {
	m := &Model{Kind: KindLinear, Rates: map[string]float64{"k0": 1}}
	assert.ErrorIs(t, m.Validate(), ErrInvalidFeedback)

	require.NoError(t, m.AddFeedback(map[string]float64{"eta0": 1}, false))
	assert.ErrorIs(t, m.AddFeedback(map[string]float64{"eta0": 1}, false), ErrInvalidFeedback)

	m.Feedback = append(m.Feedback, Feedback{Perturbed: true, Strengths: map[string]float64{"eta0": 2}})
	assert.ErrorIs(t, m.Validate(), ErrInvalidFeedback, "mismatched strengths")

	m.Feedback[1].Strengths["eta0"] = 1
	assert.NoError(t, m.Validate())

	m.Rates["k0"] = math.NaN()
	assert.ErrorIs(t, m.Validate(), ErrInvalidParameters)

	var nilModel *Model
	assert.Error(t, nilModel.Validate())
}

func TestModel_RateNames(t *testing.T) {
	m, err := Linear{}.Build(make([]float64, 9))
	require.NoError(t, err)
	assert.Equal(t, []string{"g0", "g1", "g2", "k0", "k1", "k2"}, m.RateNames())
}

func TestParseKind(t *testing.T) {
	testCases := []struct {
		input string
		want  Kind
	}{
		{"linear", KindLinear},
		{"Linear", KindLinear},
		{"LinearSweep", KindLinear},
		{"hill", KindHill},
		{"HillSweep", KindHill},
		{"twostate", KindTwoState},
		{"two-state", KindTwoState},
		{"TwoStateSweep", KindTwoState},
		{" two_state ", KindTwoState},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseKind(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseKind("cubic")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []Kind{KindHill, KindLinear, KindTwoState}, Kinds())

	b, err := Lookup(KindHill)
	require.NoError(t, err)
	assert.Equal(t, "Hill", b.Name())

	_, err = Lookup("cubic")
	assert.ErrorIs(t, err, ErrUnknownKind)

	r := NewRegistry()
	r.Register(Linear{})
	r.Register(Linear{})
	assert.Len(t, r.Kinds(), 1)
	_, ok := r.Get(KindHill)
	assert.False(t, ok)
}
