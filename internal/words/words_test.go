package words

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeList(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadEmbeddedDefaults(t *testing.T) {
	l, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	answers, allowed := l.Stats()
	if answers == 0 {
		t.Fatal("embedded answers list is empty")
	}
	if allowed < answers {
		t.Fatalf("allowed (%d) should include all answers (%d)", allowed, answers)
	}
	if !l.IsAnswer("crane") || !l.IsValidGuess("CRANE") {
		t.Error("crane should be an answer and a valid guess")
	}
	if !l.IsValidGuess("speed") || l.IsAnswer("speed") {
		t.Error("speed should be a guess-only word")
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	answers := writeList(t, dir, "answers.txt", "Crane", " slate ", "toolong", "ab1de", "", "crane")
	allowed := writeList(t, dir, "allowed.txt", "adieu", "roate", "four")

	tests := []struct {
		name        string
		opts        Options
		wantAnswers int
		guess       string
		wantGuess   bool
	}{
		{name: "both files", opts: Options{AnswersFile: answers, AllowedFile: allowed}, wantAnswers: 2, guess: "adieu", wantGuess: true},
		{name: "allowed only doubles as answers", opts: Options{AllowedFile: allowed}, wantAnswers: 2, guess: "roate", wantGuess: true},
		{name: "answers only uses embedded guesses", opts: Options{AnswersFile: answers}, wantAnswers: 2, guess: "speed", wantGuess: true},
		{name: "short words dropped", opts: Options{AnswersFile: answers, AllowedFile: allowed}, wantAnswers: 2, guess: "four", wantGuess: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Load(tt.opts)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if n, _ := l.Stats(); n != tt.wantAnswers {
				t.Errorf("answers = %d, want %d (%v)", n, tt.wantAnswers, l.Answers())
			}
			if got := l.IsValidGuess(tt.guess); got != tt.wantGuess {
				t.Errorf("IsValidGuess(%q) = %v, want %v", tt.guess, got, tt.wantGuess)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(Options{AnswersFile: filepath.Join(t.TempDir(), "nope.txt"), AllowedFile: "x"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewRejectsEmptyAnswers(t *testing.T) {
	if _, err := New([]string{"no", "123456"}, nil); !errors.Is(err, ErrEmptyAnswers) {
		t.Fatalf("New() error = %v, want ErrEmptyAnswers", err)
	}
}

func TestRandomAnswerComesFromList(t *testing.T) {
	l, err := New([]string{"crane", "slate", "pilot"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		if w := l.RandomAnswer(); !l.IsAnswer(w) {
			t.Fatalf("RandomAnswer() = %q, not in answers", w)
		}
	}
}
