package stats

// Streaks scans an ordered sequence of per-game outcomes once.
// current is the run of trues ending at the last element; longest is the
// maximum run anywhere.
func Streaks(seq []bool) (current, longest int) {
	for _, ok := range seq {
		if ok {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return current, longest
}
