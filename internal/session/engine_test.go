package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/snaildle/internal/game"
	"github.com/robalobadob/snaildle/internal/lock"
	"github.com/robalobadob/snaildle/internal/store"
)

type fixedWords struct {
	answer  string
	allowed map[string]bool
}

func (w fixedWords) RandomAnswer() string { return w.answer }

func (w fixedWords) IsValidGuess(word string) bool { return w.allowed[word] }

func newWords(answer string, allowed ...string) fixedWords {
	set := map[string]bool{answer: true}
	for _, a := range allowed {
		set[a] = true
	}
	return fixedWords{answer: answer, allowed: set}
}

// failingStore makes RecordGuess fail with a driver-level error.
type failingStore struct {
	store.Store
}

func (failingStore) RecordGuess(context.Context, store.GuessInput) (store.Recorded, error) {
	return store.Recorded{}, errors.New("disk full")
}

var base = time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, s store.Store) *Engine {
	t.Helper()
	tick := 0
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return New(s, newWords("crane", "slate", "pilot", "snail", "trace"), lock.NewLocal(), WithClock(clock))
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())

	g, err := e.Start(ctx, "c1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !g.Active() || g.GuessCount != 0 || g.ParticipantCount != 0 || g.Answer != "crane" {
		t.Fatalf("new game = %+v", g)
	}
	if _, err := e.Start(ctx, "c1"); !errors.Is(err, game.ErrAlreadyActive) {
		t.Fatalf("second Start err = %v, want ErrAlreadyActive", err)
	}
	if _, err := e.Start(ctx, "c2"); err != nil {
		t.Fatalf("Start in another channel: %v", err)
	}
}

func TestSubmitGuessValidationOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := newEngine(t, s)
	who := game.Actor{UserID: "u1", Username: "alice"}

	if _, err := e.SubmitGuess(ctx, "c1", who, "ab"); !errors.Is(err, game.ErrNoActiveGame) {
		t.Fatalf("no game err = %v, want ErrNoActiveGame", err)
	}
	g, err := e.Start(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		word string
		want error
	}{
		{"too short", "abc", game.ErrWrongLength},
		{"too long", "cranes", game.ErrWrongLength},
		{"length checked before alphabet", "ab1", game.ErrWrongLength},
		{"surrounding spaces count", " crane ", game.ErrWrongLength},
		{"digits", "cr4ne", game.ErrNonAlphabetic},
		{"punctuation", "cran!", game.ErrNonAlphabetic},
		{"unknown word", "zzzzz", game.ErrInvalidWord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SubmitGuess(ctx, "c1", who, tt.word)
			if !errors.Is(err, tt.want) {
				t.Fatalf("SubmitGuess(%q) err = %v, want %v", tt.word, err, tt.want)
			}
			if !game.IsInputError(err) {
				t.Fatalf("%v should be an input error", err)
			}
		})
	}

	got, _ := s.GetGame(ctx, g.ID)
	if got.GuessCount != 0 || got.ParticipantCount != 0 {
		t.Fatalf("rejected guesses changed counters: %+v", got)
	}
	if list, _ := s.GuessesForGame(ctx, g.ID); len(list) != 0 {
		t.Fatalf("rejected guesses were stored: %+v", list)
	}
}

func TestSubmitGuessRecordsAndWins(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := newEngine(t, s)
	g, _ := e.Start(ctx, "c1")

	alice := game.Actor{UserID: "u1", Username: "alice"}
	bob := game.Actor{UserID: "u2", Username: "bob"}

	out, err := e.SubmitGuess(ctx, "c1", alice, "Slate")
	if err != nil {
		t.Fatal(err)
	}
	if out.GuessNumber != 1 || !out.NewParticipant || out.Won || out.Answer != "" || out.Word != "slate" {
		t.Fatalf("first outcome = %+v", out)
	}
	if out.Feedback.String() != "..H.H" {
		t.Fatalf("feedback = %s, want ..H.H", out.Feedback)
	}

	out, err = e.SubmitGuess(ctx, "c1", bob, "pilot")
	if err != nil {
		t.Fatal(err)
	}
	if out.GuessNumber != 2 || !out.NewParticipant {
		t.Fatalf("second outcome = %+v", out)
	}

	out, err = e.SubmitGuess(ctx, "c1", alice, "CRANE")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Won || out.Answer != "crane" || out.GuessNumber != 3 || out.NewParticipant {
		t.Fatalf("winning outcome = %+v", out)
	}
	if !out.Feedback.Solved() {
		t.Fatalf("winning feedback not solved: %s", out.Feedback)
	}

	got, _ := s.GetGame(ctx, g.ID)
	if !got.Solved || got.WinningUser != "u1" || got.GuessCount != 3 || got.ParticipantCount != 2 || got.EndedAt == nil {
		t.Fatalf("final game = %+v", got)
	}
	if _, err := e.SubmitGuess(ctx, "c1", bob, "crane"); !errors.Is(err, game.ErrNoActiveGame) {
		t.Fatalf("guess after win err = %v, want ErrNoActiveGame", err)
	}

	p, err := s.GetPlayer(ctx, "u2")
	if err != nil || p.Username != "bob" {
		t.Fatalf("player cache = %+v, %v", p, err)
	}
}

func TestForfeit(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := newEngine(t, s)

	if _, err := e.Forfeit(ctx, "c1"); !errors.Is(err, game.ErrNoActiveGame) {
		t.Fatalf("forfeit without game err = %v", err)
	}
	g, _ := e.Start(ctx, "c1")
	answer, err := e.Forfeit(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "crane" {
		t.Fatalf("answer = %q", answer)
	}
	got, _ := s.GetGame(ctx, g.ID)
	if !got.Forfeit || got.Solved || got.WinningUser != "" || got.EndedAt == nil {
		t.Fatalf("forfeited game = %+v", got)
	}
	if _, err := e.Forfeit(ctx, "c1"); !errors.Is(err, game.ErrNoActiveGame) {
		t.Fatalf("second forfeit err = %v", err)
	}
	if _, err := e.Start(ctx, "c1"); err != nil {
		t.Fatalf("start after forfeit: %v", err)
	}
}

func TestConcurrentGuessesSameChannel(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := newEngine(t, s)
	g, _ := e.Start(ctx, "c1")

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := game.Actor{UserID: fmt.Sprintf("u%d", i%7), Username: "player"}
			if _, err := e.SubmitGuess(ctx, "c1", who, "slate"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("SubmitGuess: %v", err)
	}

	list, _ := s.GuessesForGame(ctx, g.ID)
	if len(list) != n {
		t.Fatalf("stored %d guesses, want %d", len(list), n)
	}
	for i, gs := range list {
		if gs.Number != i+1 {
			t.Fatalf("guess %d numbered %d", i, gs.Number)
		}
	}
	got, _ := s.GetGame(ctx, g.ID)
	if got.GuessCount != n || got.ParticipantCount != 7 {
		t.Fatalf("counters = %d/%d, want %d/7", got.GuessCount, got.ParticipantCount, n)
	}
}

func TestConcurrentWinnersExactlyOne(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := newEngine(t, s)
	g, _ := e.Start(ctx, "c1")

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, closed := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := e.SubmitGuess(ctx, "c1", game.Actor{UserID: fmt.Sprintf("u%d", i)}, "crane")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && out.Won:
				wins++
			case errors.Is(err, game.ErrNoActiveGame):
				closed++
			default:
				t.Errorf("unexpected result %+v, %v", out, err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 || closed != n-1 {
		t.Fatalf("wins=%d closed=%d, want 1 and %d", wins, closed, n-1)
	}
	got, _ := s.GetGame(ctx, g.ID)
	if got.GuessCount != 1 {
		t.Fatalf("guess count = %d, want 1", got.GuessCount)
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := lock.NewLocal()
	e := New(store.NewMemory(), newWords("crane", "slate"), l, WithLockTimeout(20*time.Millisecond))
	if _, err := e.Start(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Start(ctx, "c2"); err != nil {
		t.Fatal(err)
	}

	unlock, err := l.Lock(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	if _, err := e.SubmitGuess(ctx, "c1", game.Actor{UserID: "u1"}, "slate"); !errors.Is(err, game.ErrBusy) {
		t.Fatalf("guess on held channel err = %v, want ErrBusy", err)
	}
	if _, err := e.SubmitGuess(ctx, "c2", game.Actor{UserID: "u1"}, "slate"); err != nil {
		t.Fatalf("guess on free channel: %v", err)
	}
}

func TestStorageFailureIsWrapped(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := newEngine(t, failingStore{Store: mem})
	if _, err := e.Start(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	_, err := e.SubmitGuess(ctx, "c1", game.Actor{UserID: "u1"}, "slate")
	if !errors.Is(err, game.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if game.IsInputError(err) {
		t.Fatal("storage failure classified as input error")
	}
	g, _ := mem.ActiveGame(ctx, "c1")
	if g.GuessCount != 0 {
		t.Fatalf("failed guess changed counters: %+v", g)
	}
}

func TestActiveGameAndResume(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := newEngine(t, s)

	if _, _, err := e.ActiveGame(ctx, "c1"); !errors.Is(err, game.ErrNoActiveGame) {
		t.Fatalf("ActiveGame err = %v", err)
	}
	_, _ = e.Start(ctx, "c1")
	_, _ = e.Start(ctx, "c2")
	_, _ = e.SubmitGuess(ctx, "c1", game.Actor{UserID: "u1"}, "slate")

	g, guesses, err := e.ActiveGame(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if g.ChannelID != "c1" || len(guesses) != 1 || guesses[0].Word != "slate" {
		t.Fatalf("ActiveGame = %+v %+v", g, guesses)
	}

	n, err := e.ResumeActive(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ResumeActive = %d, %v", n, err)
	}
}

func TestTouchPlayerKeepsFirstSeen(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	e := newEngine(t, s)

	if err := e.TouchPlayer(ctx, game.Actor{UserID: "u1", Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	first, _ := s.GetPlayer(ctx, "u1")
	if err := e.TouchPlayer(ctx, game.Actor{UserID: "u1", Username: "alice_renamed"}); err != nil {
		t.Fatal(err)
	}
	p, _ := s.GetPlayer(ctx, "u1")
	if p.Username != "alice_renamed" || !p.FirstSeen.Equal(first.FirstSeen) || !p.LastActive.After(first.LastActive) {
		t.Fatalf("player = %+v, first = %+v", p, first)
	}
}
