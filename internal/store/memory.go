// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// This is a lightweight persistence layer used for ephemeral sessions,
// primarily in development/testing, or when durability is not required.
//
// Characteristics:
//   - Games keyed by ID, guesses kept per game in append order.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Every method copies records in and out; callers never share memory with the store.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robalobadob/snaildle/internal/game"
)

// Memory is an in-memory map-based Store implementation.
type Memory struct {
	mu      sync.RWMutex           // guards everything below
	nextID  int64                  // last assigned game id
	guessID int64                  // last assigned guess id
	games   map[int64]*game.Game   // keyed by Game.ID
	guesses map[int64][]game.Guess // keyed by Game.ID, ordered by Number
	players map[string]game.Player // keyed by UserID
	active  map[string]int64       // channel -> active game id
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		games:   make(map[int64]*game.Game),
		guesses: make(map[int64][]game.Guess),
		players: make(map[string]game.Player),
		active:  make(map[string]int64),
	}
}

// copyGame detaches the EndedAt pointer from the stored record.
func copyGame(g *game.Game) game.Game {
	out := *g
	if g.EndedAt != nil {
		t := *g.EndedAt
		out.EndedAt = &t
	}
	return out
}

func (m *Memory) CreateGame(ctx context.Context, channelID, answer string, startedAt time.Time) (game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[channelID]; ok {
		return game.Game{}, ErrActiveGameExists
	}
	m.nextID++
	g := &game.Game{
		ID:        m.nextID,
		ChannelID: channelID,
		Answer:    answer,
		StartedAt: startedAt.UTC(),
	}
	m.games[g.ID] = g
	m.active[channelID] = g.ID
	return copyGame(g), nil
}

func (m *Memory) ActiveGame(ctx context.Context, channelID string) (game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.active[channelID]
	if !ok {
		return game.Game{}, ErrNotFound
	}
	return copyGame(m.games[id]), nil
}

func (m *Memory) GetGame(ctx context.Context, id int64) (game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return game.Game{}, ErrNotFound
	}
	return copyGame(g), nil
}

func (m *Memory) ForfeitGame(ctx context.Context, id int64, endedAt time.Time) (game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return game.Game{}, ErrNotFound
	}
	if !g.Active() {
		return game.Game{}, ErrGameFinished
	}
	end := endedAt.UTC()
	g.Forfeit = true
	g.EndedAt = &end
	delete(m.active, g.ChannelID)
	return copyGame(g), nil
}

func (m *Memory) RecordGuess(ctx context.Context, in GuessInput) (Recorded, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[in.GameID]
	if !ok {
		return Recorded{}, ErrNotFound
	}
	if !g.Active() {
		return Recorded{}, ErrGameFinished
	}

	newParticipant := true
	for _, prior := range m.guesses[g.ID] {
		if prior.UserID == in.UserID {
			newParticipant = false
			break
		}
	}

	m.guessID++
	row := game.Guess{
		ID:        m.guessID,
		GameID:    g.ID,
		UserID:    in.UserID,
		Word:      in.Word,
		Number:    g.GuessCount + 1,
		CreatedAt: in.At.UTC(),
	}
	m.guesses[g.ID] = append(m.guesses[g.ID], row)
	g.GuessCount++
	if newParticipant {
		g.ParticipantCount++
	}
	if in.Solves {
		end := in.At.UTC()
		g.Solved = true
		g.EndedAt = &end
		g.WinningUser = in.UserID
		delete(m.active, g.ChannelID)
	}
	return Recorded{Game: copyGame(g), Guess: row, NewParticipant: newParticipant}, nil
}

func (m *Memory) GuessesForGame(ctx context.Context, gameID int64) ([]game.Guess, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]game.Guess{}, m.guesses[gameID]...), nil
}

func (m *Memory) UpsertPlayer(ctx context.Context, p game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.players[p.UserID]; ok {
		p.FirstSeen = prev.FirstSeen
	}
	p.FirstSeen = p.FirstSeen.UTC()
	p.LastActive = p.LastActive.UTC()
	m.players[p.UserID] = p
	return nil
}

func (m *Memory) GetPlayer(ctx context.Context, userID string) (game.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[userID]
	if !ok {
		return game.Player{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListActiveGames(ctx context.Context) ([]game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]game.Game, 0, len(m.active))
	for _, id := range m.active {
		out = append(out, copyGame(m.games[id]))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) Snapshot(ctx context.Context, f Filter) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.games))
	for id, g := range m.games {
		if f.ChannelID == "" || g.ChannelID == f.ChannelID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	snap := Snapshot{
		Games:   make([]game.Game, 0, len(ids)),
		Guesses: []game.Guess{},
		Players: make([]game.Player, 0, len(m.players)),
	}
	for _, id := range ids {
		snap.Games = append(snap.Games, copyGame(m.games[id]))
		snap.Guesses = append(snap.Guesses, m.guesses[id]...)
	}
	for _, p := range m.players {
		snap.Players = append(snap.Players, p)
	}
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].UserID < snap.Players[j].UserID })
	return snap, nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error { return nil }
