// internal/stats/stats.go
//
// Statistics & Leaderboard Engine.
// Read-only aggregation over a store.Snapshot:
//   - PlayerStats:  win/guess totals, rates, streaks, first-guess histogram.
//   - ChannelStats: solve rate, median guesses, averages, rankings, activity.
//   - Leaderboard:  distinct winners of a channel, ranked.
//   - GlobalStats:  totals and rankings across every channel.
//
// Every query reads one snapshot and computes in memory, so the numbers of a
// single response are mutually consistent. Empty input yields HasData=false.

package stats

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/robalobadob/snaildle/internal/game"
	"github.com/robalobadob/snaildle/internal/store"
	"github.com/robalobadob/snaildle/internal/telemetry"
)

var tracer = telemetry.Tracer("github.com/robalobadob/snaildle/internal/stats")

// Engine answers statistics queries. Safe for concurrent use.
type Engine struct {
	store      store.Store
	maxGuesses int
	topN       int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxGuesses sets the first-guess histogram size.
func WithMaxGuesses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxGuesses = n
		}
	}
}

// WithTopN sets the length of ranking lists.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// New returns an Engine reading from s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{store: s, maxGuesses: 6, topN: 10}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UserCount is one row of a player ranking.
type UserCount struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Count    int    `json:"count"`
}

// WordCount is one row of a word ranking.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ChannelCount is one row of a channel ranking.
type ChannelCount struct {
	ChannelID string `json:"channelId"`
	Count     int    `json:"count"`
}

// PlayerStats describes one player in a scope (a channel, or everything).
type PlayerStats struct {
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	ChannelID string `json:"channelId,omitempty"`

	WinCount     int `json:"winCount"`
	TotalGuesses int `json:"totalGuesses"`
	GamesPlayed  int `json:"gamesPlayed"`
	TotalGames   int `json:"totalGames"`

	AverageGuessesPerWin float64 `json:"averageGuessesPerWin"` // mean game guess count of games won
	GuessesPerWin        float64 `json:"guessesPerWin"`        // own guesses / wins
	WinRate              float64 `json:"winRate"`              // wins / games played
	ParticipationRate    float64 `json:"participationRate"`    // games played / games in scope

	CurrentWinStreak           int `json:"currentWinStreak"`
	LongestWinStreak           int `json:"longestWinStreak"`
	CurrentParticipationStreak int `json:"currentParticipationStreak"`
	LongestParticipationStreak int `json:"longestParticipationStreak"`

	// FirstGuessDistribution[i] counts won games whose first guess by the
	// player had number i+1; the last bucket also holds anything later.
	FirstGuessDistribution []int `json:"firstGuessDistribution"`

	AverageSolveTime time.Duration `json:"averageSolveTimeNs"`
	HasData          bool          `json:"hasData"`
}

// ChannelStats describes the history of one channel.
type ChannelStats struct {
	ChannelID string `json:"channelId"`

	TotalGames     int `json:"totalGames"`
	SolvedGames    int `json:"solvedGames"`
	ForfeitedGames int `json:"forfeitedGames"`
	ActiveGames    int `json:"activeGames"`

	SolveRate             float64       `json:"solveRate"`
	MedianGuesses         float64       `json:"medianGuesses"`
	HasMedian             bool          `json:"hasMedian"`
	AverageGuessesPerGame float64       `json:"averageGuessesPerGame"`
	AverageParticipants   float64       `json:"averageParticipants"`
	AverageDuration       time.Duration `json:"averageDurationNs"`

	MostCommonAnswers          []WordCount `json:"mostCommonAnswers"`
	MostSuccessfulFirstGuesses []WordCount `json:"mostSuccessfulFirstGuesses"`
	MostWins                   []UserCount `json:"mostWins"`
	MostGuesses                []UserCount `json:"mostGuesses"`
	MostParticipation          []UserCount `json:"mostParticipation"`

	MostActiveHour    int          `json:"mostActiveHour"`    // 0-23 UTC, by game start
	MostActiveWeekday time.Weekday `json:"mostActiveWeekday"` // by game start, UTC
	HasData           bool         `json:"hasData"`
}

// LeaderboardEntry is one ranked winner.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username,omitempty"`
	Wins        int       `json:"wins"`
	GamesPlayed int       `json:"gamesPlayed"`
	WinRate     float64   `json:"winRate"`
	FirstWinAt  time.Time `json:"firstWinAt"`

	firstWinGame int64
}

// GlobalStats summarizes every channel.
type GlobalStats struct {
	TotalGames            int            `json:"totalGames"`
	SolvedGames           int            `json:"solvedGames"`
	TotalPlayers          int            `json:"totalPlayers"`
	SolveRate             float64        `json:"solveRate"`
	MostActiveChannels    []ChannelCount `json:"mostActiveChannels"`
	MostSuccessfulPlayers []UserCount    `json:"mostSuccessfulPlayers"`
	HasData               bool           `json:"hasData"`
}

func (e *Engine) snapshot(ctx context.Context, channelID string) (*index, error) {
	snap, err := e.store.Snapshot(ctx, store.Filter{ChannelID: channelID})
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %w", game.ErrStorage, err)
	}
	return newIndex(snap), nil
}

// PlayerStats computes stats for userID. An empty channelID means every channel.
func (e *Engine) PlayerStats(ctx context.Context, userID, channelID string) (ps PlayerStats, err error) {
	ctx, span := tracer.Start(ctx, "stats.PlayerStats")
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("channel.id", channelID))
	defer func() { telemetry.End(span, err) }()

	idx, err := e.snapshot(ctx, channelID)
	if err != nil {
		return PlayerStats{}, err
	}
	return playerStats(idx, userID, channelID, e.maxGuesses), nil
}

// ChannelStats computes stats for one channel.
func (e *Engine) ChannelStats(ctx context.Context, channelID string) (cs ChannelStats, err error) {
	ctx, span := tracer.Start(ctx, "stats.ChannelStats")
	span.SetAttributes(attribute.String("channel.id", channelID))
	defer func() { telemetry.End(span, err) }()

	idx, err := e.snapshot(ctx, channelID)
	if err != nil {
		return ChannelStats{}, err
	}
	return channelStats(idx, channelID, e.topN), nil
}

// Leaderboard ranks the channel's winners. limit <= 0 returns every winner.
func (e *Engine) Leaderboard(ctx context.Context, channelID string, limit int) (out []LeaderboardEntry, err error) {
	ctx, span := tracer.Start(ctx, "stats.Leaderboard")
	span.SetAttributes(attribute.String("channel.id", channelID), attribute.Int("limit", limit))
	defer func() { telemetry.End(span, err) }()

	idx, err := e.snapshot(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return leaderboard(idx, limit), nil
}

// GlobalStats computes totals across every channel.
func (e *Engine) GlobalStats(ctx context.Context) (gs GlobalStats, err error) {
	ctx, span := tracer.Start(ctx, "stats.GlobalStats")
	defer func() { telemetry.End(span, err) }()

	idx, err := e.snapshot(ctx, "")
	if err != nil {
		return GlobalStats{}, err
	}
	return globalStats(idx, e.topN), nil
}
