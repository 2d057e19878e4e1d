package stats

import (
	"sort"
	"time"
)

func channelStats(idx *index, channelID string, topN int) ChannelStats {
	cs := ChannelStats{
		ChannelID:  channelID,
		TotalGames: len(idx.games),
	}

	var (
		solvedCounts []int
		guessSum     int
		partSum      int
		duration     time.Duration
		hours        = make([]int, 24)
		weekdays     = make([]int, 7)
		answers      = map[string]int{}
		firsts       = map[string]int{}
		wins         = map[string]int{}
		guesses      = map[string]int{}
		played       = map[string]int{}
	)
	for _, g := range idx.games {
		start := g.StartedAt.UTC()
		hours[start.Hour()]++
		weekdays[start.Weekday()]++

		seen := map[string]bool{}
		for _, gs := range idx.guesses[g.ID] {
			guesses[gs.UserID]++
			if !seen[gs.UserID] {
				seen[gs.UserID] = true
				played[gs.UserID]++
			}
		}

		switch {
		case g.Solved:
			cs.SolvedGames++
			solvedCounts = append(solvedCounts, g.GuessCount)
			wins[g.WinningUser]++
			if first, ok := idx.firstGuess(g.ID, g.WinningUser); ok {
				firsts[first.Word]++
			}
		case g.Forfeit:
			cs.ForfeitedGames++
		default:
			cs.ActiveGames++
			continue
		}
		answers[g.Answer]++
		guessSum += g.GuessCount
		partSum += g.ParticipantCount
		duration += g.Duration()
	}

	finished := cs.SolvedGames + cs.ForfeitedGames
	cs.SolveRate = ratio(cs.SolvedGames, cs.TotalGames)
	cs.MedianGuesses, cs.HasMedian = Median(solvedCounts)
	cs.AverageGuessesPerGame = mean(guessSum, finished)
	cs.AverageParticipants = mean(partSum, finished)
	if finished > 0 {
		cs.AverageDuration = duration / time.Duration(finished)
	}

	cs.MostCommonAnswers = topWords(answers, topN)
	cs.MostSuccessfulFirstGuesses = topWords(firsts, topN)
	cs.MostWins = idx.topUsers(wins, topN)
	cs.MostGuesses = idx.topUsers(guesses, topN)
	cs.MostParticipation = idx.topUsers(played, topN)

	cs.HasData = cs.TotalGames > 0
	if cs.HasData {
		cs.MostActiveHour = argmax(hours)
		cs.MostActiveWeekday = time.Weekday(argmax(weekdays))
	}
	return cs
}

func leaderboard(idx *index, limit int) []LeaderboardEntry {
	byUser := map[string]*LeaderboardEntry{}
	for _, g := range idx.terminal {
		if !g.Solved {
			continue
		}
		e, ok := byUser[g.WinningUser]
		if !ok {
			// terminal is chronological, so the first sighting is the first win.
			e = &LeaderboardEntry{
				UserID:       g.WinningUser,
				Username:     idx.names[g.WinningUser],
				FirstWinAt:   *g.EndedAt,
				firstWinGame: g.ID,
			}
			byUser[g.WinningUser] = e
		}
		e.Wins++
	}

	out := make([]LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		for _, g := range idx.games {
			if idx.participated(g.ID, e.UserID) {
				e.GamesPlayed++
			}
		}
		e.WinRate = ratio(e.Wins, e.GamesPlayed)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if !a.FirstWinAt.Equal(b.FirstWinAt) {
			return a.FirstWinAt.Before(b.FirstWinAt)
		}
		return a.firstWinGame < b.firstWinGame
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func globalStats(idx *index, topN int) GlobalStats {
	gs := GlobalStats{TotalGames: len(idx.games)}
	channels := map[string]int{}
	wins := map[string]int{}
	players := map[string]bool{}
	for _, g := range idx.games {
		channels[g.ChannelID]++
		if g.Solved {
			gs.SolvedGames++
			wins[g.WinningUser]++
		}
		for _, guess := range idx.guesses[g.ID] {
			players[guess.UserID] = true
		}
	}
	gs.TotalPlayers = len(players)
	gs.SolveRate = ratio(gs.SolvedGames, gs.TotalGames)
	gs.MostActiveChannels = topChannels(channels, topN)
	gs.MostSuccessfulPlayers = idx.topUsers(wins, topN)
	gs.HasData = gs.TotalGames > 0
	return gs
}
