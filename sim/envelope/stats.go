package envelope

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarises the non-zero samples of a grid.
type Stats struct {
	Count      int // all samples
	ValidCount int // non-zero samples
	Min        float64
	Max        float64
	Mean       float64
	Std        float64 // population standard deviation
}

// GridStatistics reports count/min/max/mean/std over non-zero samples, for
// sanity-checking loaded data. Zero samples are treated as unmeasured.
func (m *Model) GridStatistics() Stats {
	values := m.grid.Values()
	s := Stats{Count: len(values)}
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if v != 0 {
			valid = append(valid, v)
		}
	}
	s.ValidCount = len(valid)
	if len(valid) == 0 {
		return s
	}
	s.Min, s.Max = valid[0], valid[0]
	for _, v := range valid[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean, s.Std = stat.PopMeanStdDev(valid, nil)
	return s
}

// InterpolationError returns the mean absolute percentage error (in percent)
// of unclamped queries against held-out measurements. Points whose actual
// value is zero are skipped.
func (m *Model) InterpolationError(points []Point, actual []float64) (float64, error) {
	if len(points) != len(actual) {
		return 0, fmt.Errorf("interpolation error: %d points but %d actual values", len(points), len(actual))
	}
	errs := make([]float64, 0, len(points))
	for i, p := range points {
		if actual[i] == 0 {
			continue
		}
		res, err := m.Query(p, QueryOptions{})
		if err != nil {
			return 0, fmt.Errorf("interpolation error: point %d: %w", i, err)
		}
		errs = append(errs, math.Abs(res.Bandwidth-actual[i])/math.Abs(actual[i]))
	}
	if len(errs) == 0 {
		return 0, fmt.Errorf("interpolation error: no points with non-zero actual value")
	}
	return stat.Mean(errs, nil) * 100, nil
}
