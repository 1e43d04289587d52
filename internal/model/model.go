// Package model maps flat parameter vectors onto the kinetic models used by
// a sweep. Every model carries exactly two feedback conditions, one
// unperturbed and one perturbed, sharing the same feedback strengths.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Kind identifies a kinetic scheme.
type Kind string

const (
	KindLinear   Kind = "linear"
	KindHill     Kind = "hill"
	KindTwoState Kind = "twostate"
)

var (
	// ErrInvalidParameters indicates a parameter vector of the wrong length
	// or with non-finite entries.
	ErrInvalidParameters = errors.New("model: invalid parameters")

	// ErrInvalidFeedback indicates a model whose feedback conditions are not
	// one unperturbed and one perturbed set with identical strengths.
	ErrInvalidFeedback = errors.New("model: invalid feedback conditions")

	// ErrUnknownKind indicates an unregistered model kind.
	ErrUnknownKind = errors.New("model: unknown kind")
)

// Feedback is one regulatory feedback condition.
type Feedback struct {
	Perturbed bool               `json:"perturbed"`
	Strengths map[string]float64 `json:"strengths"`
}

// Model is a fully configured kinetic model: named rate constants plus the
// feedback conditions to simulate.
type Model struct {
	Kind     Kind               `json:"kind"`
	Rates    map[string]float64 `json:"rates"`
	Feedback []Feedback         `json:"feedback"`
}

// AddFeedback appends a feedback condition. A model holds at most one
// condition of each perturbation state.
func (m *Model) AddFeedback(strengths map[string]float64, perturbed bool) error {
	for _, fb := range m.Feedback {
		if fb.Perturbed == perturbed {
			return fmt.Errorf("%w: duplicate condition (perturbed=%t)", ErrInvalidFeedback, perturbed)
		}
	}
	cp := make(map[string]float64, len(strengths))
	for k, v := range strengths {
		cp[k] = v
	}
	m.Feedback = append(m.Feedback, Feedback{Perturbed: perturbed, Strengths: cp})
	return nil
}

// Conditions returns the unperturbed and perturbed feedback conditions.
func (m *Model) Conditions() (unperturbed, perturbed Feedback, err error) {
	if err := m.Validate(); err != nil {
		return Feedback{}, Feedback{}, err
	}
	for _, fb := range m.Feedback {
		if fb.Perturbed {
			perturbed = fb
		} else {
			unperturbed = fb
		}
	}
	return unperturbed, perturbed, nil
}

// Validate checks that the model has finite rates and exactly two feedback
// conditions (unperturbed and perturbed) with identical strengths.
func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil model", ErrInvalidParameters)
	}
	for name, v := range m.Rates {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: rate %s is not finite", ErrInvalidParameters, name)
		}
	}
	if len(m.Feedback) != 2 {
		return fmt.Errorf("%w: have %d conditions, want 2", ErrInvalidFeedback, len(m.Feedback))
	}
	a, b := m.Feedback[0], m.Feedback[1]
	if a.Perturbed == b.Perturbed {
		return fmt.Errorf("%w: both conditions have perturbed=%t", ErrInvalidFeedback, a.Perturbed)
	}
	if len(a.Strengths) != len(b.Strengths) {
		return fmt.Errorf("%w: strength sets differ", ErrInvalidFeedback)
	}
	for k, v := range a.Strengths {
		if w, ok := b.Strengths[k]; !ok || w != v {
			return fmt.Errorf("%w: strength %s differs between conditions", ErrInvalidFeedback, k)
		}
	}
	return nil
}

// RateNames returns the rate-constant names in sorted order.
func (m *Model) RateNames() []string {
	names := make([]string, 0, len(m.Rates))
	for k := range m.Rates {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// checkVector validates a parameter vector against the expected names.
func checkVector(kind Kind, names []string, parameters []float64) error {
	if len(parameters) != len(names) {
		return fmt.Errorf("%w: %s model takes %d parameters, got %d", ErrInvalidParameters, kind, len(names), len(parameters))
	}
	for i, v := range parameters {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s (index %d) is not finite", ErrInvalidParameters, names[i], i)
		}
	}
	return nil
}

// withDualFeedback attaches the same strengths twice, unperturbed first.
func withDualFeedback(m *Model, strengths map[string]float64) (*Model, error) {
	if err := m.AddFeedback(strengths, false); err != nil {
		return nil, err
	}
	if err := m.AddFeedback(strengths, true); err != nil {
		return nil, err
	}
	return m, nil
}
