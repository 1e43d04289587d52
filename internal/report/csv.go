package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/gram/internal/sweep"
)

// WriteSamplesCSV writes one row per sample: the index, the simulation path
// and the linear parameter values, with a header naming the parameters.
func WriteSamplesCSV(w io.Writer, st sweep.State) error {
	if len(st.Parameters) == 0 {
		return ErrNoSamples
	}
	names := parameterNames(st, len(st.Sampler.Low))

	cw := csv.NewWriter(w)
	header := append([]string{"index", "path"}, names...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, row := range st.Parameters {
		rec := make([]string, 0, len(row)+2)
		rec = append(rec, strconv.Itoa(i), st.SimulationPaths[i])
		for _, v := range row {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write sample %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the output of Summarize as a table.
func WriteSummaryCSV(w io.Writer, summaries []ParameterSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "name", "low", "high", "min", "max", "mean", "std", "median", "p05", "p95", "relative_gap"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for _, s := range summaries {
		if err := cw.Write([]string{
			strconv.Itoa(s.Index), s.Name, f(s.Low), f(s.High), f(s.Min), f(s.Max),
			f(s.Mean), f(s.Std), f(s.Median), f(s.P05), f(s.P95), f(s.RelativeGap),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
