package stats

import "sort"

type counted struct {
	key   string
	count int
}

// top sorts counts by count desc, key asc and keeps at most n entries.
func top(counts map[string]int, n int) []counted {
	out := make([]counted, 0, len(counts))
	for k, c := range counts {
		if c > 0 {
			out = append(out, counted{key: k, count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (idx *index) topUsers(counts map[string]int, n int) []UserCount {
	ranked := top(counts, n)
	out := make([]UserCount, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, UserCount{UserID: r.key, Username: idx.names[r.key], Count: r.count})
	}
	return out
}

func topWords(counts map[string]int, n int) []WordCount {
	ranked := top(counts, n)
	out := make([]WordCount, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, WordCount{Word: r.key, Count: r.count})
	}
	return out
}

func topChannels(counts map[string]int, n int) []ChannelCount {
	ranked := top(counts, n)
	out := make([]ChannelCount, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, ChannelCount{ChannelID: r.key, Count: r.count})
	}
	return out
}

// argmax returns the smallest bucket with the highest count.
func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
