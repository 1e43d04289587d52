// Package report summarises the sample set of a built sweep and renders
// coverage plots of it.
package report

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/gram/internal/sweep"
)

// ErrNoSamples is returned for a sweep that has not been built.
var ErrNoSamples = errors.New("report: sweep has no samples")

// ParameterSummary describes one parameter of a sample set. All values
// except RelativeGap are in log10 units.
type ParameterSummary struct {
	Index  int     `json:"index"`
	Name   string  `json:"name"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	P05    float64 `json:"p05"`
	P95    float64 `json:"p95"`

	// RelativeGap is the largest uncovered stretch of the parameter's
	// sampling interval as a fraction of its width.
	RelativeGap float64 `json:"relative_gap"`
}

// Summarize computes per-parameter statistics of the sweep's samples in
// log10 space.
func Summarize(st sweep.State) ([]ParameterSummary, error) {
	if len(st.Parameters) == 0 {
		return nil, ErrNoSamples
	}
	dim := len(st.Sampler.Low)
	if dim == 0 || len(st.Sampler.High) != dim {
		return nil, fmt.Errorf("report: malformed sampler bounds")
	}
	names := parameterNames(st, dim)

	out := make([]ParameterSummary, dim)
	for i := 0; i < dim; i++ {
		vals, err := logColumn(st.Parameters, i)
		if err != nil {
			return nil, err
		}
		mean, std := stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			std = 0
		}
		median, err := stats.Median(vals)
		if err != nil {
			return nil, fmt.Errorf("median of %s: %w", names[i], err)
		}
		p05, err := stats.PercentileNearestRank(vals, 5)
		if err != nil {
			return nil, fmt.Errorf("p05 of %s: %w", names[i], err)
		}
		p95, err := stats.PercentileNearestRank(vals, 95)
		if err != nil {
			return nil, fmt.Errorf("p95 of %s: %w", names[i], err)
		}

		low, high := st.Sampler.Low[i], st.Sampler.High[i]
		rel := 0.0
		if width := high - low; width > 0 {
			rel = MaxGap(vals, low, high) / width
		}
		out[i] = ParameterSummary{
			Index:       i,
			Name:        names[i],
			Low:         low,
			High:        high,
			Min:         floats.Min(vals),
			Max:         floats.Max(vals),
			Mean:        mean,
			Std:         std,
			Median:      median,
			P05:         p05,
			P95:         p95,
			RelativeGap: rel,
		}
	}
	return out, nil
}

// MaxGap returns the largest distance between consecutive sorted values,
// counting the distances from low to the smallest value and from the
// largest value to high. Values outside [low, high] are clamped.
func MaxGap(values []float64, low, high float64) float64 {
	if high <= low {
		return 0
	}
	if len(values) == 0 {
		return high - low
	}
	sorted := make([]float64, len(values))
	for i, v := range values {
		sorted[i] = math.Min(math.Max(v, low), high)
	}
	sort.Float64s(sorted)

	gap := sorted[0] - low
	for i := 1; i < len(sorted); i++ {
		gap = math.Max(gap, sorted[i]-sorted[i-1])
	}
	return math.Max(gap, high-sorted[len(sorted)-1])
}

// logColumn extracts parameter i of every sample in log10 units.
func logColumn(rows [][]float64, i int) ([]float64, error) {
	vals := make([]float64, len(rows))
	for r, row := range rows {
		if i >= len(row) {
			return nil, fmt.Errorf("report: sample %d has %d parameters, want > %d", r, len(row), i)
		}
		if row[i] <= 0 {
			return nil, fmt.Errorf("report: sample %d parameter %d is not positive: %g", r, i, row[i])
		}
		vals[r] = math.Log10(row[i])
	}
	return vals, nil
}

func parameterNames(st sweep.State, dim int) []string {
	names := st.ParameterNames()
	if len(names) == dim {
		return names
	}
	names = make([]string, dim)
	for i := range names {
		names[i] = fmt.Sprintf("p%d", i)
	}
	return names
}
