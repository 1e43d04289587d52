package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCSVFloat64s parses a comma-separated list of finite float64 values,
// as given to --base and --delta. Returns nil, nil for empty input strings.
func ParseCSVFloat64s(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid float '%s': not finite", p)
		}
		out = append(out, v)
	}
	return out, nil
}

// FormatCSVFloat64s is the inverse of ParseCSVFloat64s.
func FormatCSVFloat64s(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
