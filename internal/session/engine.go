// internal/session/engine.go
//
// Game Session Engine: lifecycle of one puzzle per channel.
// Responsibilities:
//   - Start / Forfeit / SubmitGuess with distinct, typed failures.
//   - Serializing writes per channel through a lock.Locker.
//   - Delegating atomic persistence to store.Store.
//   - Keeping the player identity cache fresh (best effort).

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/robalobadob/snaildle/internal/game"
	"github.com/robalobadob/snaildle/internal/lock"
	"github.com/robalobadob/snaildle/internal/store"
	"github.com/robalobadob/snaildle/internal/telemetry"
)

var tracer = telemetry.Tracer("github.com/robalobadob/snaildle/internal/session")

// WordSource provides answers and validates guesses.
type WordSource interface {
	RandomAnswer() string
	IsValidGuess(word string) bool
}

// Engine runs game sessions. Safe for concurrent use.
type Engine struct {
	store       store.Store
	words       WordSource
	locker      lock.Locker
	now         func() time.Time
	lockTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLockTimeout bounds how long a write waits for its channel.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lockTimeout = d
		}
	}
}

// New wires an Engine. A nil locker falls back to an in-process one.
func New(s store.Store, words WordSource, locker lock.Locker, opts ...Option) *Engine {
	if locker == nil {
		locker = lock.NewLocal()
	}
	e := &Engine{
		store:       s,
		words:       words,
		locker:      locker,
		now:         time.Now,
		lockTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockChannel holds the channel's write lock for the rest of the operation.
func (e *Engine) lockChannel(ctx context.Context, channelID string) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()
	unlock, err := e.locker.Lock(lctx, channelID)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", game.ErrBusy, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: lock channel: %w", game.ErrStorage, err)
	}
	return unlock, nil
}

// Start creates a new game in channelID with a random answer.
func (e *Engine) Start(ctx context.Context, channelID string) (g game.Game, err error) {
	ctx, span := tracer.Start(ctx, "session.Start")
	span.SetAttributes(attribute.String("channel.id", channelID))
	defer func() { telemetry.End(span, err) }()

	unlock, err := e.lockChannel(ctx, channelID)
	if err != nil {
		return game.Game{}, err
	}
	defer unlock()

	if _, err := e.store.ActiveGame(ctx, channelID); err == nil {
		return game.Game{}, game.ErrAlreadyActive
	} else if !errors.Is(err, store.ErrNotFound) {
		return game.Game{}, fmt.Errorf("%w: load active game: %w", game.ErrStorage, err)
	}

	g, err = e.store.CreateGame(ctx, channelID, e.words.RandomAnswer(), e.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrActiveGameExists) {
			return game.Game{}, game.ErrAlreadyActive
		}
		return game.Game{}, fmt.Errorf("%w: create game: %w", game.ErrStorage, err)
	}
	span.SetAttributes(attribute.Int64("game.id", g.ID))
	log.Info().Str("channel", channelID).Int64("game_id", g.ID).Msg("game started")
	return g, nil
}

// Forfeit ends the channel's active game without a winner and returns its answer.
func (e *Engine) Forfeit(ctx context.Context, channelID string) (answer string, err error) {
	ctx, span := tracer.Start(ctx, "session.Forfeit")
	span.SetAttributes(attribute.String("channel.id", channelID))
	defer func() { telemetry.End(span, err) }()

	unlock, err := e.lockChannel(ctx, channelID)
	if err != nil {
		return "", err
	}
	defer unlock()

	active, err := e.activeGame(ctx, channelID)
	if err != nil {
		return "", err
	}
	g, err := e.store.ForfeitGame(ctx, active.ID, e.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrGameFinished) || errors.Is(err, store.ErrNotFound) {
			return "", game.ErrNoActiveGame
		}
		return "", fmt.Errorf("%w: forfeit game: %w", game.ErrStorage, err)
	}
	log.Info().
		Str("channel", channelID).
		Int64("game_id", g.ID).
		Int("guesses", g.GuessCount).
		Msg("game forfeited")
	return g.Answer, nil
}

// SubmitGuess validates, scores and records one guess.
//
// Validation order: active game, length, alphabet, word list. Each failure has
// its own error; nothing is persisted unless every check passes.
func (e *Engine) SubmitGuess(ctx context.Context, channelID string, who game.Actor, word string) (out game.Outcome, err error) {
	ctx, span := tracer.Start(ctx, "session.SubmitGuess")
	span.SetAttributes(
		attribute.String("channel.id", channelID),
		attribute.String("user.id", who.UserID),
	)
	defer func() {
		if game.IsInputError(err) {
			// Rejected input is not a fault.
			span.SetAttributes(attribute.String("guess.rejected", err.Error()))
			telemetry.End(span, nil)
			return
		}
		telemetry.End(span, err)
	}()

	unlock, err := e.lockChannel(ctx, channelID)
	if err != nil {
		return game.Outcome{}, err
	}
	defer unlock()

	g, err := e.activeGame(ctx, channelID)
	if err != nil {
		return game.Outcome{}, err
	}

	word = game.Normalize(word)
	if err := game.ValidateShape(word); err != nil {
		return game.Outcome{}, err
	}
	if !e.words.IsValidGuess(word) {
		return game.Outcome{}, game.ErrInvalidWord
	}

	feedback := game.Score(word, g.Answer)
	now := e.now().UTC()
	rec, err := e.store.RecordGuess(ctx, store.GuessInput{
		GameID: g.ID,
		UserID: who.UserID,
		Word:   word,
		At:     now,
		Solves: word == g.Answer,
	})
	if err != nil {
		if errors.Is(err, store.ErrGameFinished) || errors.Is(err, store.ErrNotFound) {
			return game.Outcome{}, game.ErrNoActiveGame
		}
		return game.Outcome{}, fmt.Errorf("%w: record guess: %w", game.ErrStorage, err)
	}

	if err := e.touch(ctx, who, now); err != nil {
		log.Warn().Err(err).Str("user", who.UserID).Msg("player cache update failed")
	}

	out = game.Outcome{
		GameID:         g.ID,
		GuessNumber:    rec.Guess.Number,
		Word:           word,
		Feedback:       feedback,
		Won:            rec.Game.Solved,
		NewParticipant: rec.NewParticipant,
	}
	if out.Won {
		out.Answer = g.Answer
		log.Info().
			Str("channel", channelID).
			Int64("game_id", g.ID).
			Str("winner", who.UserID).
			Int("guesses", rec.Game.GuessCount).
			Int("participants", rec.Game.ParticipantCount).
			Msg("game solved")
	}
	span.SetAttributes(attribute.Int("guess.number", out.GuessNumber), attribute.Bool("guess.won", out.Won))
	return out, nil
}

// ActiveGame returns the running game and its guesses. The caller must not
// disclose Game.Answer.
func (e *Engine) ActiveGame(ctx context.Context, channelID string) (game.Game, []game.Guess, error) {
	g, err := e.activeGame(ctx, channelID)
	if err != nil {
		return game.Game{}, nil, err
	}
	guesses, err := e.store.GuessesForGame(ctx, g.ID)
	if err != nil {
		return game.Game{}, nil, fmt.Errorf("%w: load guesses: %w", game.ErrStorage, err)
	}
	return g, guesses, nil
}

// TouchPlayer refreshes the cached identity of who.
func (e *Engine) TouchPlayer(ctx context.Context, who game.Actor) error {
	if err := e.touch(ctx, who, e.now().UTC()); err != nil {
		return fmt.Errorf("%w: upsert player: %w", game.ErrStorage, err)
	}
	return nil
}

// ResumeActive logs every game left active in storage, e.g. after a restart.
func (e *Engine) ResumeActive(ctx context.Context) (int, error) {
	games, err := e.store.ListActiveGames(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list active games: %w", game.ErrStorage, err)
	}
	for _, g := range games {
		log.Info().
			Str("channel", g.ChannelID).
			Int64("game_id", g.ID).
			Time("started_at", g.StartedAt).
			Int("guesses", g.GuessCount).
			Msg("resuming active game")
	}
	return len(games), nil
}

func (e *Engine) activeGame(ctx context.Context, channelID string) (game.Game, error) {
	g, err := e.store.ActiveGame(ctx, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return game.Game{}, game.ErrNoActiveGame
		}
		return game.Game{}, fmt.Errorf("%w: load active game: %w", game.ErrStorage, err)
	}
	return g, nil
}

func (e *Engine) touch(ctx context.Context, who game.Actor, at time.Time) error {
	if who.UserID == "" {
		return nil
	}
	name := who.Username
	if name == "" {
		name = who.UserID
	}
	return e.store.UpsertPlayer(ctx, game.Player{
		UserID:     who.UserID,
		Username:   name,
		FirstSeen:  at,
		LastActive: at,
	})
}
