package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// runContract exercises the behavior every Store must share.
func runContract(t *testing.T, open func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and load active game", func(t *testing.T) {
		s := open(t)
		g, err := s.CreateGame(ctx, "c1", "crane", t0)
		if err != nil {
			t.Fatalf("CreateGame: %v", err)
		}
		if g.ID == 0 || !g.Active() || g.ChannelID != "c1" || g.Answer != "crane" {
			t.Fatalf("unexpected game: %+v", g)
		}
		got, err := s.ActiveGame(ctx, "c1")
		if err != nil {
			t.Fatalf("ActiveGame: %v", err)
		}
		if got.ID != g.ID || !got.StartedAt.Equal(t0) {
			t.Fatalf("ActiveGame = %+v, want id %d started %v", got, g.ID, t0)
		}
		if _, err := s.ActiveGame(ctx, "other"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("ActiveGame(other) err = %v, want ErrNotFound", err)
		}
		if _, err := s.GetGame(ctx, g.ID+100); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetGame(missing) err = %v, want ErrNotFound", err)
		}
	})

	t.Run("one active game per channel", func(t *testing.T) {
		s := open(t)
		if _, err := s.CreateGame(ctx, "c1", "crane", t0); err != nil {
			t.Fatal(err)
		}
		if _, err := s.CreateGame(ctx, "c1", "slate", t0); !errors.Is(err, ErrActiveGameExists) {
			t.Fatalf("second CreateGame err = %v, want ErrActiveGameExists", err)
		}
		if _, err := s.CreateGame(ctx, "c2", "slate", t0); err != nil {
			t.Fatalf("other channel: %v", err)
		}
	})

	t.Run("guesses number sequentially and count participants", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "c1", "crane", t0)
		steps := []struct {
			user    string
			word    string
			wantNew bool
		}{
			{"u1", "slate", true},
			{"u2", "pilot", true},
			{"u1", "snail", false},
		}
		for i, st := range steps {
			rec, err := s.RecordGuess(ctx, GuessInput{GameID: g.ID, UserID: st.user, Word: st.word, At: t0.Add(time.Duration(i+1) * time.Minute)})
			if err != nil {
				t.Fatalf("RecordGuess %d: %v", i, err)
			}
			if rec.Guess.Number != i+1 {
				t.Errorf("guess %d number = %d", i, rec.Guess.Number)
			}
			if rec.NewParticipant != st.wantNew {
				t.Errorf("guess %d new participant = %v, want %v", i, rec.NewParticipant, st.wantNew)
			}
			if rec.Game.GuessCount != i+1 {
				t.Errorf("guess %d game guess count = %d", i, rec.Game.GuessCount)
			}
		}
		got, err := s.GetGame(ctx, g.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.GuessCount != 3 || got.ParticipantCount != 2 {
			t.Fatalf("counters = %d/%d, want 3/2", got.GuessCount, got.ParticipantCount)
		}
		list, err := s.GuessesForGame(ctx, g.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 3 || list[0].Word != "slate" || list[2].Word != "snail" {
			t.Fatalf("GuessesForGame = %+v", list)
		}
	})

	t.Run("solving guess ends the game", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "c1", "crane", t0)
		end := t0.Add(3 * time.Minute)
		rec, err := s.RecordGuess(ctx, GuessInput{GameID: g.ID, UserID: "u1", Word: "crane", At: end, Solves: true})
		if err != nil {
			t.Fatal(err)
		}
		if !rec.Game.Solved || rec.Game.WinningUser != "u1" || rec.Game.EndedAt == nil || !rec.Game.EndedAt.Equal(end) {
			t.Fatalf("recorded game = %+v", rec.Game)
		}
		if _, err := s.ActiveGame(ctx, "c1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("ActiveGame after solve err = %v", err)
		}
		if _, err := s.RecordGuess(ctx, GuessInput{GameID: g.ID, UserID: "u2", Word: "slate", At: end}); !errors.Is(err, ErrGameFinished) {
			t.Fatalf("guess after solve err = %v, want ErrGameFinished", err)
		}
		if _, err := s.ForfeitGame(ctx, g.ID, end); !errors.Is(err, ErrGameFinished) {
			t.Fatalf("forfeit after solve err = %v, want ErrGameFinished", err)
		}
		if _, err := s.CreateGame(ctx, "c1", "slate", end); err != nil {
			t.Fatalf("new game after solve: %v", err)
		}
	})

	t.Run("forfeit ends the game", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "c1", "crane", t0)
		end := t0.Add(time.Hour)
		got, err := s.ForfeitGame(ctx, g.ID, end)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Forfeit || got.Solved || got.EndedAt == nil || !got.EndedAt.Equal(end) {
			t.Fatalf("forfeited game = %+v", got)
		}
		if _, err := s.ForfeitGame(ctx, g.ID, end); !errors.Is(err, ErrGameFinished) {
			t.Fatalf("second forfeit err = %v", err)
		}
		if _, err := s.ForfeitGame(ctx, g.ID+100, end); !errors.Is(err, ErrNotFound) {
			t.Fatalf("forfeit missing err = %v", err)
		}
	})

	t.Run("upsert player keeps first seen", func(t *testing.T) {
		s := open(t)
		if err := s.UpsertPlayer(ctx, gamePlayer("u1", "alice", t0, t0)); err != nil {
			t.Fatal(err)
		}
		later := t0.Add(24 * time.Hour)
		if err := s.UpsertPlayer(ctx, gamePlayer("u1", "alice2", later, later)); err != nil {
			t.Fatal(err)
		}
		p, err := s.GetPlayer(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if p.Username != "alice2" || !p.FirstSeen.Equal(t0) || !p.LastActive.Equal(later) {
			t.Fatalf("player = %+v", p)
		}
		if _, err := s.GetPlayer(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetPlayer(missing) err = %v", err)
		}
	})

	t.Run("list active games newest first", func(t *testing.T) {
		s := open(t)
		a, _ := s.CreateGame(ctx, "c1", "crane", t0)
		b, _ := s.CreateGame(ctx, "c2", "slate", t0.Add(time.Minute))
		c, _ := s.CreateGame(ctx, "c3", "pilot", t0.Add(2*time.Minute))
		if _, err := s.ForfeitGame(ctx, c.ID, t0.Add(3*time.Minute)); err != nil {
			t.Fatal(err)
		}
		list, err := s.ListActiveGames(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
			t.Fatalf("ListActiveGames = %+v", list)
		}
	})

	t.Run("snapshot filters by channel", func(t *testing.T) {
		s := open(t)
		a, _ := s.CreateGame(ctx, "c1", "crane", t0)
		b, _ := s.CreateGame(ctx, "c2", "slate", t0)
		_, _ = s.RecordGuess(ctx, GuessInput{GameID: a.ID, UserID: "u1", Word: "pilot", At: t0})
		_, _ = s.RecordGuess(ctx, GuessInput{GameID: b.ID, UserID: "u2", Word: "slate", At: t0, Solves: true})
		_ = s.UpsertPlayer(ctx, gamePlayer("u1", "alice", t0, t0))

		all, err := s.Snapshot(ctx, Filter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(all.Games) != 2 || len(all.Guesses) != 2 || len(all.Players) != 1 {
			t.Fatalf("full snapshot sizes = %d/%d/%d", len(all.Games), len(all.Guesses), len(all.Players))
		}
		one, err := s.Snapshot(ctx, Filter{ChannelID: "c2"})
		if err != nil {
			t.Fatal(err)
		}
		if len(one.Games) != 1 || one.Games[0].ID != b.ID || len(one.Guesses) != 1 || one.Guesses[0].GameID != b.ID {
			t.Fatalf("channel snapshot = %+v", one)
		}
	})

	t.Run("concurrent guesses keep numbering dense", func(t *testing.T) {
		s := open(t)
		g, _ := s.CreateGame(ctx, "c1", "crane", t0)
		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user := "u" + string(rune('a'+i%5))
				if _, err := s.RecordGuess(ctx, GuessInput{GameID: g.ID, UserID: user, Word: "slate", At: t0}); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent RecordGuess: %v", err)
		}
		list, err := s.GuessesForGame(ctx, g.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != n {
			t.Fatalf("got %d guesses, want %d", len(list), n)
		}
		for i, gs := range list {
			if gs.Number != i+1 {
				t.Fatalf("guess %d has number %d", i, gs.Number)
			}
		}
		got, _ := s.GetGame(ctx, g.ID)
		if got.GuessCount != n || got.ParticipantCount != 5 {
			t.Fatalf("counters = %d/%d, want %d/5", got.GuessCount, got.ParticipantCount, n)
		}
	})
}
