package model

// Builder maps a flat 9-component parameter vector onto a configured Model.
// Build must be pure: the same parameters always yield an equal model.
type Builder interface {
	Kind() Kind
	// Name is the CamelCase scheme name used for sweep directories.
	Name() string
	ParameterNames() []string
	// DefaultBase returns the default log10 base vector.
	DefaultBase() []float64
	Build(parameters []float64) (*Model, error)
}

// Linear builds the linear kinetic model. Parameters:
//
//	0 k0   activation rate constant
//	1 k1   transcription rate constant
//	2 k2   translation rate constant
//	3 g0   deactivation rate constant
//	4 g1   mRNA degradation rate constant
//	5 g2   protein degradation rate constant
//	6 eta0 transcriptional feedback strength
//	7 eta1 post-transcriptional feedback strength
//	8 eta2 post-translational feedback strength
type Linear struct{}

var linearNames = []string{"k0", "k1", "k2", "g0", "g1", "g2", "eta0", "eta1", "eta2"}

func (Linear) Kind() Kind               { return KindLinear }
func (Linear) Name() string             { return "Linear" }
func (Linear) ParameterNames() []string { return append([]string(nil), linearNames...) }

func (Linear) DefaultBase() []float64 {
	return []float64{0, 0, 0, 0, -2, -3, -4.5, -4.5, -4.5}
}

func (Linear) Build(parameters []float64) (*Model, error) {
	return buildLinearFamily(KindLinear, parameters)
}

// TwoState builds the two-state promoter model. It shares the Linear
// parameter layout but has its own default base vector.
type TwoState struct{}

func (TwoState) Kind() Kind               { return KindTwoState }
func (TwoState) Name() string             { return "TwoState" }
func (TwoState) ParameterNames() []string { return append([]string(nil), linearNames...) }

func (TwoState) DefaultBase() []float64 {
	return []float64{0, 0, 0, -1, -2, -3, -4, -4.5, -4}
}

func (TwoState) Build(parameters []float64) (*Model, error) {
	return buildLinearFamily(KindTwoState, parameters)
}

func buildLinearFamily(kind Kind, parameters []float64) (*Model, error) {
	if err := checkVector(kind, linearNames, parameters); err != nil {
		return nil, err
	}
	p := parameters
	m := &Model{
		Kind: kind,
		Rates: map[string]float64{
			"k0": p[0], "k1": p[1], "k2": p[2],
			"g0": p[3], "g1": p[4], "g2": p[5],
		},
	}
	return withDualFeedback(m, map[string]float64{"eta0": p[6], "eta1": p[7], "eta2": p[8]})
}

// Hill builds the Hill-function model. Parameters:
//
//	0 n    transcription hill coefficient
//	1 k1   transcription rate constant
//	2 k2   translation rate constant
//	3 g1   mRNA degradation rate constant
//	4 g2   protein degradation rate constant
//	5 k_m  repressor michaelis constant
//	6 r_n  repressor hill coefficient
//	7 eta1 post-transcriptional feedback strength
//	8 eta2 post-translational feedback strength
//
// The activator Michaelis constant of the base model is fixed at
// HillActivatorKm; the sampled k_m only parametrises the repressor.
type Hill struct{}

// HillActivatorKm is the fixed transcription Michaelis constant.
const HillActivatorKm = 0.5

var hillNames = []string{"n", "k1", "k2", "g1", "g2", "k_m", "r_n", "eta1", "eta2"}

func (Hill) Kind() Kind               { return KindHill }
func (Hill) Name() string             { return "Hill" }
func (Hill) ParameterNames() []string { return append([]string(nil), hillNames...) }

func (Hill) DefaultBase() []float64 {
	return []float64{0, 0, 0, -2, -3, -4, 0, -5, -4}
}

func (Hill) Build(parameters []float64) (*Model, error) {
	if err := checkVector(KindHill, hillNames, parameters); err != nil {
		return nil, err
	}
	p := parameters
	m := &Model{
		Kind: KindHill,
		Rates: map[string]float64{
			"n": p[0], "k1": p[1], "k_m": HillActivatorKm,
			"k2": p[2], "g1": p[3], "g2": p[4],
		},
	}
	return withDualFeedback(m, map[string]float64{
		"k_m": p[5], "r_n": p[6], "eta1": p[7], "eta2": p[8],
	})
}
