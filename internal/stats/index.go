package stats

import (
	"sort"

	"github.com/robalobadob/snaildle/internal/game"
	"github.com/robalobadob/snaildle/internal/store"
)

// index holds a snapshot with the lookups every query needs.
type index struct {
	games    []game.Game            // ordered by ID
	terminal []game.Game            // solved or forfeited, ordered by (EndedAt, ID)
	guesses  map[int64][]game.Guess // per game, ordered by Number
	names    map[string]string      // user id -> cached username
}

func newIndex(snap store.Snapshot) *index {
	idx := &index{
		games:   snap.Games,
		guesses: make(map[int64][]game.Guess, len(snap.Games)),
		names:   make(map[string]string, len(snap.Players)),
	}
	for _, gs := range snap.Guesses {
		idx.guesses[gs.GameID] = append(idx.guesses[gs.GameID], gs)
	}
	for id := range idx.guesses {
		list := idx.guesses[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Number < list[j].Number })
	}
	for _, p := range snap.Players {
		idx.names[p.UserID] = p.Username
	}
	for _, g := range snap.Games {
		if !g.Active() && g.EndedAt != nil {
			idx.terminal = append(idx.terminal, g)
		}
	}
	sortChronological(idx.terminal)
	return idx
}

// sortChronological orders terminal games by end time, ties by game ID.
func sortChronological(games []game.Game) {
	sort.Slice(games, func(i, j int) bool {
		a, b := games[i], games[j]
		if !a.EndedAt.Equal(*b.EndedAt) {
			return a.EndedAt.Before(*b.EndedAt)
		}
		return a.ID < b.ID
	})
}

// firstGuess returns userID's earliest guess in gameID.
func (idx *index) firstGuess(gameID int64, userID string) (game.Guess, bool) {
	for _, gs := range idx.guesses[gameID] {
		if gs.UserID == userID {
			return gs, true
		}
	}
	return game.Guess{}, false
}

// participated reports whether userID guessed at least once in gameID.
func (idx *index) participated(gameID int64, userID string) bool {
	_, ok := idx.firstGuess(gameID, userID)
	return ok
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
