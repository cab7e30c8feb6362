// Package percentile computes percentiles over unevenly weighted samples.
package percentile

import (
	"sort"
	"strconv"
)

// Default are the percentile targets reported when none are configured.
// 0 and 100 denote the minimum and maximum.
var Default = []float64{0, 2, 25, 50, 75, 98, 100}

// Sample is a keyed value with its statistical weight within a group
type Sample struct {
	Key    int64
	Value  float64
	Weight float64
}

// Result holds the value at each target and the rank of every sample
type Result struct {
	Values map[float64]float64 // target percentile -> value
	Ranks  map[int64]float64   // sample key -> cumulative weight below it
}

// Compute walks the samples in ascending value order, accumulating weight.
// Each target takes the value of the first sample whose cumulative weight
// (after adding its own) reaches target/100. Targets must be ascending; each
// is matched once. Targets never reached because of rounding take the
// maximum value. Ties keep the input order.
func Compute(samples []Sample, targets []float64) Result {
	res := Result{
		Values: make(map[float64]float64, len(targets)),
		Ranks:  make(map[int64]float64, len(samples)),
	}
	if len(samples) == 0 {
		for _, p := range targets {
			res.Values[p] = 0
		}
		return res
	}

	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value < sorted[j].Value
	})

	var cumulative float64
	next := 0
	for _, s := range sorted {
		res.Ranks[s.Key] = cumulative
		cumulative += s.Weight
		for next < len(targets) && cumulative >= targets[next]/100 {
			res.Values[targets[next]] = s.Value
			next++
		}
	}

	// Rounding can leave the cumulative weight just short of 1.0
	maxValue := sorted[len(sorted)-1].Value
	for ; next < len(targets); next++ {
		res.Values[targets[next]] = maxValue
	}
	return res
}

// Fill builds one sample per group member, in member order. Members missing
// from observed were omitted from the source file because their value was
// zero and get an explicit zero sample.
func Fill(members []int64, observed map[int64]float64, weight func(int64) float64) []Sample {
	samples := make([]Sample, 0, len(members))
	for _, key := range members {
		samples = append(samples, Sample{Key: key, Value: observed[key], Weight: weight(key)})
	}
	return samples
}

// Label returns the report column name for a target
func Label(p float64) string {
	return "percentile_" + Format(p)
}

// Format renders a target without trailing zeros
func Format(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
