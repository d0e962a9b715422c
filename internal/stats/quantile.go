// Package stats provides the empirical quantile threshold resolver.
//
// Thresholds are recomputed from the current batch's own distribution on
// every run; nothing is learned or persisted across batches.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmptyColumn is returned when a threshold is requested over no data.
// Callers must treat it as fatal for the stage: a zero-valued default
// threshold would silently score every entity against garbage.
var ErrEmptyColumn = errors.New("stats: empty column")

// Quantile returns the value below which the fraction q of the batch's
// values fall, using linear interpolation between order statistics. The
// input slice is not modified, and ordering of the input does not affect
// the result.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyColumn
	}
	if q < 0 || q > 1 {
		return 0, fmt.Errorf("stats: quantile %v out of range [0,1]", q)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0], nil
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1], nil
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), nil
}

// QuantileFloor returns the q-quantile, raised to floor if the empirical
// value falls below it. Used for velocity thresholds where tiny batches
// would otherwise flag ordinary activity.
func QuantileFloor(values []float64, q, floor float64) (float64, error) {
	v, err := Quantile(values, q)
	if err != nil {
		return 0, err
	}
	return math.Max(v, floor), nil
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyColumn
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}
