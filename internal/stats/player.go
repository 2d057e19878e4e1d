package stats

import "time"

func playerStats(idx *index, userID, channelID string, maxGuesses int) PlayerStats {
	ps := PlayerStats{
		UserID:                 userID,
		Username:               idx.names[userID],
		ChannelID:              channelID,
		TotalGames:             len(idx.games),
		FirstGuessDistribution: make([]int, maxGuesses),
	}

	var (
		wonGuessTotal int
		solveTime     time.Duration
	)
	for _, g := range idx.games {
		for _, gs := range idx.guesses[g.ID] {
			if gs.UserID == userID {
				ps.TotalGuesses++
			}
		}
		first, played := idx.firstGuess(g.ID, userID)
		if played {
			ps.GamesPlayed++
		}
		if !g.Solved || g.WinningUser != userID {
			continue
		}
		ps.WinCount++
		wonGuessTotal += g.GuessCount
		solveTime += g.Duration()
		if played {
			bucket := first.Number
			if bucket > maxGuesses {
				bucket = maxGuesses
			}
			if bucket >= 1 {
				ps.FirstGuessDistribution[bucket-1]++
			}
		}
	}

	ps.AverageGuessesPerWin = mean(wonGuessTotal, ps.WinCount)
	ps.GuessesPerWin = ratio(ps.TotalGuesses, ps.WinCount)
	ps.WinRate = ratio(ps.WinCount, ps.GamesPlayed)
	ps.ParticipationRate = ratio(ps.GamesPlayed, ps.TotalGames)
	if ps.WinCount > 0 {
		ps.AverageSolveTime = solveTime / time.Duration(ps.WinCount)
	}

	// Win streaks run over the player's own finished games; participation
	// streaks over every finished game in scope.
	var wins, participation []bool
	for _, g := range idx.terminal {
		played := idx.participated(g.ID, userID)
		participation = append(participation, played)
		if played {
			wins = append(wins, g.Solved && g.WinningUser == userID)
		}
	}
	ps.CurrentWinStreak, ps.LongestWinStreak = Streaks(wins)
	ps.CurrentParticipationStreak, ps.LongestParticipationStreak = Streaks(participation)

	ps.HasData = ps.GamesPlayed > 0
	return ps
}
