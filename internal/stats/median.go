package stats

import "sort"

// Median returns the median of values. An even-sized sample averages the two
// middle values. ok is false for an empty sample.
func Median(values []int) (median float64, ok bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2]), true
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2, true
}

func mean(sum, n int) float64 {
	return ratio(sum, n)
}
