package preprocess

import (
	"math"
	"sort"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/dataset"
)

// imputeNumeric returns the column as floats with missing cells set to the median
// of the present values, plus the number of filled cells.
func imputeNumeric(c *dataset.Column) ([]float64, int, error) {
	out := make([]float64, c.Len())
	present := make([]float64, 0, c.Len())
	for i := range out {
		if x, ok := c.Float(i); ok {
			present = append(present, x)
		}
	}
	if len(present) == 0 {
		return nil, 0, apperr.ForColumn(apperr.ErrPreprocessing, "preprocess", c.Name, "all values are missing; no median to impute")
	}
	sort.Float64s(present)
	fill := quantile(present, 0.5)
	filled := 0
	for i := range out {
		if x, ok := c.Float(i); ok {
			out[i] = x
			continue
		}
		out[i] = fill
		filled++
	}
	return out, filled, nil
}

// imputeCategorical fills missing cells with the most frequent value. Ties go to
// the value that sorts first, which is also its order in the EncodingMap.
func imputeCategorical(c *dataset.Column) ([]string, int, error) {
	counts := map[string]int{}
	for i, v := range c.Values {
		if !c.IsMissing(i) {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return nil, 0, apperr.ForColumn(apperr.ErrPreprocessing, "preprocess", c.Name, "all values are missing; no mode to impute")
	}
	mode, best := "", -1
	for v, n := range counts {
		if n > best || (n == best && v < mode) {
			mode, best = v, n
		}
	}
	out := make([]string, c.Len())
	filled := 0
	for i, v := range c.Values {
		if c.IsMissing(i) {
			out[i] = mode
			filled++
			continue
		}
		out[i] = v
	}
	return out, filled, nil
}

// quantile interpolates linearly between closest ranks of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
