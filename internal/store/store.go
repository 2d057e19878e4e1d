// internal/store/store.go
//
// Session Store contract for games, guesses and players.
// Implementations:
//   - Memory (memory.go): map-backed, for tests and ephemeral runs.
//   - SQL    (sql.go):    database/sql with sqlite, postgres and mysql dialects.
//
// Every write method is one atomic unit from a reader's point of view: either
// all of its effects are visible or none are.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalobadob/snaildle/internal/game"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrActiveGameExists is returned by CreateGame when the channel already has an active game.
	ErrActiveGameExists = errors.New("store: channel already has an active game")
	// ErrGameFinished is returned when a terminal game is asked to change.
	ErrGameFinished = errors.New("store: game is finished")
)

// Store defines the persistence interface used by the session and stats engines.
type Store interface {
	// CreateGame inserts a new active game for channelID.
	CreateGame(ctx context.Context, channelID, answer string, startedAt time.Time) (game.Game, error)

	// ActiveGame returns the channel's active game or ErrNotFound.
	ActiveGame(ctx context.Context, channelID string) (game.Game, error)

	// GetGame loads a game by id or returns ErrNotFound.
	GetGame(ctx context.Context, id int64) (game.Game, error)

	// ForfeitGame marks an active game as forfeited at endedAt.
	ForfeitGame(ctx context.Context, id int64, endedAt time.Time) (game.Game, error)

	// RecordGuess appends a guess and applies every counter/terminal effect atomically.
	RecordGuess(ctx context.Context, in GuessInput) (Recorded, error)

	// GuessesForGame lists a game's guesses ordered by number.
	GuessesForGame(ctx context.Context, gameID int64) ([]game.Guess, error)

	// UpsertPlayer inserts or refreshes a player; FirstSeen is kept on update.
	UpsertPlayer(ctx context.Context, p game.Player) error

	// GetPlayer loads a player or returns ErrNotFound.
	GetPlayer(ctx context.Context, userID string) (game.Player, error)

	// ListActiveGames lists every active game, newest first.
	ListActiveGames(ctx context.Context) ([]game.Game, error)

	// Snapshot reads games, guesses and players in scope as one consistent view.
	Snapshot(ctx context.Context, f Filter) (Snapshot, error)

	// Close releases resources held by the store.
	Close() error
}

// GuessInput describes a guess to append. Number, counters and the participant
// flag are derived by the store inside the atomic unit.
type GuessInput struct {
	GameID int64
	UserID string
	Word   string
	At     time.Time
	Solves bool // Word equals the answer; the game becomes solved by UserID.
}

// Recorded is the committed result of RecordGuess.
type Recorded struct {
	Game           game.Game  // Game state after the guess.
	Guess          game.Guess // The appended row.
	NewParticipant bool
}

// Filter narrows a Snapshot. An empty ChannelID means every channel.
type Filter struct {
	ChannelID string
}

// Snapshot is a consistent read of the store.
//   - Games are ordered by ID.
//   - Guesses are ordered by GameID, then Number.
type Snapshot struct {
	Games   []game.Game
	Guesses []game.Guess
	Players []game.Player
}

// Config selects and configures a Store implementation.
type Config struct {
	Type string // memory | sqlite | postgres | mysql
	Path string // sqlite file path
	URL  string // postgres/mysql DSN
}

// Open constructs the Store described by cfg and applies migrations for SQL backends.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if strings.EqualFold(cfg.Type, "memory") {
		return NewMemory(), nil
	}
	dialect, err := DialectFor(cfg.Type)
	if err != nil {
		return nil, err
	}
	s, err := OpenSQL(ctx, dialect, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", dialect.Name(), err)
	}
	return s, nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }
