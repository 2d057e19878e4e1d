// internal/game/types.go
//
// Core records for the channel word game.
// Defines:
//   - Mark / Feedback: per-letter result of a guess (hit/present/miss).
//   - Game:   one puzzle instance owned by a channel.
//   - Guess:  one submitted word, numbered game-wide.
//   - Player: denormalized identity cache.
//   - Actor / Outcome: values exchanged with the session engine's callers.

package game

import (
	"strings"
	"time"
)

// WordLength is the fixed number of letters in answers and guesses.
const WordLength = 5

// Mark represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "hit":     letter is correct and in the correct position.
//   - "present": letter exists in the answer but in a different position.
//   - "miss":    letter does not exist in the (remaining) answer letters.
type Mark string

const (
	MarkHit     Mark = "hit"
	MarkPresent Mark = "present"
	MarkMiss    Mark = "miss"
)

// Feedback is the ordered list of marks for one guess.
type Feedback []Mark

// Solved reports whether every mark is a hit.
func (f Feedback) Solved() bool {
	if len(f) == 0 {
		return false
	}
	for _, m := range f {
		if m != MarkHit {
			return false
		}
	}
	return true
}

// String renders the feedback as a compact code: H for hit, P for present, . for miss.
func (f Feedback) String() string {
	var b strings.Builder
	b.Grow(len(f))
	for _, m := range f {
		switch m {
		case MarkHit:
			b.WriteByte('H')
		case MarkPresent:
			b.WriteByte('P')
		default:
			b.WriteByte('.')
		}
	}
	return b.String()
}

// Game holds the persisted state of one puzzle.
type Game struct {
	ID               int64      // Assigned by the store on creation.
	ChannelID        string     // Channel the puzzle belongs to.
	Answer           string     // Lowercase solution; never disclosed while active.
	StartedAt        time.Time  // UTC.
	EndedAt          *time.Time // Nil until the game is solved or forfeited.
	Solved           bool
	Forfeit          bool
	GuessCount       int    // Guesses recorded across all participants.
	ParticipantCount int    // Distinct users with at least one guess.
	WinningUser      string // Set exactly when Solved.
}

// Active reports whether the game still accepts guesses.
func (g Game) Active() bool { return !g.Solved && !g.Forfeit }

// State is a coarse string form: "active", "solved" or "forfeit".
func (g Game) State() string {
	switch {
	case g.Solved:
		return "solved"
	case g.Forfeit:
		return "forfeit"
	default:
		return "active"
	}
}

// Duration returns EndedAt-StartedAt for terminal games, zero otherwise.
func (g Game) Duration() time.Duration {
	if g.EndedAt == nil {
		return 0
	}
	return g.EndedAt.Sub(g.StartedAt)
}

// Guess is one word attempt. Number is shared across participants and
// gap-free within a game, starting at 1.
type Guess struct {
	ID        int64
	GameID    int64
	UserID    string
	Word      string
	Number    int
	CreatedAt time.Time
}

// Player caches the display identity of a user.
type Player struct {
	UserID     string
	Username   string
	FirstSeen  time.Time
	LastActive time.Time
}

// Actor identifies who performs an operation.
type Actor struct {
	UserID   string
	Username string
}

// Outcome is the result of a successfully recorded guess.
type Outcome struct {
	GameID         int64
	GuessNumber    int
	Word           string
	Feedback       Feedback
	Won            bool
	Answer         string // Only populated when Won.
	NewParticipant bool
}
