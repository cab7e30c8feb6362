// Package cumulative carries per-period increments forward into running totals.
package cumulative

import "slices"

// Carry folds increments keyed by period into cumulative totals. Every period
// at or after the earliest increment receives the sum of all increments whose
// period is not later than it. Periods before the first increment are absent
// from the result rather than zero.
func Carry(increments map[int]float64, periods []int) map[int]float64 {
	out := make(map[int]float64)
	if len(increments) == 0 {
		return out
	}

	sources := make([]int, 0, len(increments))
	for p := range increments {
		sources = append(sources, p)
	}
	slices.Sort(sources)
	first := sources[0]

	targets := slices.Clone(sources)
	for _, p := range periods {
		if p >= first {
			targets = append(targets, p)
		}
	}
	slices.Sort(targets)
	targets = slices.Compact(targets)

	for _, target := range targets {
		var total float64
		for _, source := range sources {
			if source > target {
				break
			}
			total += increments[source]
		}
		out[target] = total
	}
	return out
}

// Sorted returns the periods of a cumulative map in ascending order
func Sorted(totals map[int]float64) []int {
	keys := make([]int, 0, len(totals))
	for p := range totals {
		keys = append(keys, p)
	}
	slices.Sort(keys)
	return keys
}
