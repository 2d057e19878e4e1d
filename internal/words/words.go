// internal/words/words.go
//
// Word source for the session engine.
//
// Responsibilities:
//   - Load answer and allowed guess lists from files or fall back to embedded defaults.
//   - Maintain sets for quick lookups (answers only, answers∪guesses).
//   - Supply RandomAnswer, IsValidGuess, IsAnswer and Stats.
//
// Word Lists:
//   - "answers": canonical solutions (exactly 5 lowercase letters).
//   - "allowed": valid guesses (always includes answers).
//
// Loading behavior (Load):
//  1. If AnswersFile and AllowedFile are both set,
//     load answers from the first and allowed guesses from the second.
//  2. If only AllowedFile is set,
//     load that file and use it for both answers and allowed guesses.
//  3. If only AnswersFile is set,
//     load answers from it and use the embedded allowed list for extra guesses.
//  4. If neither is set, use the embedded defaults from the assets package.
//
// Constraints:
//   - Words must be 5 alphabetic letters (a–z); other lines are dropped.
//   - Lists are normalized to lowercase.
//   - A List is immutable after construction and safe for concurrent use.

package words

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/robalobadob/snaildle/assets"
	"github.com/robalobadob/snaildle/internal/game"
)

// ErrEmptyAnswers is returned when no valid answer survives normalization.
var ErrEmptyAnswers = errors.New("words: answers list is empty")

// Options selects the files backing a List. Empty paths fall back to the
// embedded defaults.
type Options struct {
	AnswersFile string
	AllowedFile string
}

// List is a loaded pair of answer/guess word lists.
type List struct {
	answers    []string
	answersSet map[string]struct{}
	allowedSet map[string]struct{} // answers ∪ guesses
}

// Load builds a List according to opts.
func Load(opts Options) (*List, error) {
	var ansList, allowList []string
	var err error

	switch {
	case opts.AnswersFile != "" && opts.AllowedFile != "":
		if ansList, err = readWordFile(opts.AnswersFile); err != nil {
			return nil, err
		}
		if allowList, err = readWordFile(opts.AllowedFile); err != nil {
			return nil, err
		}

	case opts.AnswersFile == "" && opts.AllowedFile != "":
		if allowList, err = readWordFile(opts.AllowedFile); err != nil {
			return nil, err
		}
		ansList = allowList

	case opts.AnswersFile != "":
		if ansList, err = readWordFile(opts.AnswersFile); err != nil {
			return nil, err
		}
		if allowList, err = assets.AllowedList(); err != nil {
			return nil, fmt.Errorf("words: embedded allowed list: %w", err)
		}

	default:
		if ansList, err = assets.AnswersList(); err != nil {
			return nil, fmt.Errorf("words: embedded answers: %w", err)
		}
		if allowList, err = assets.AllowedList(); err != nil {
			return nil, fmt.Errorf("words: embedded allowed list: %w", err)
		}
	}
	return New(ansList, allowList)
}

// New builds a List from in-memory slices. Invalid entries are dropped and
// every answer is also accepted as a guess.
func New(answers, allowed []string) (*List, error) {
	ansList := normalize(answers)
	if len(ansList) == 0 {
		return nil, ErrEmptyAnswers
	}
	l := &List{
		answers:    ansList,
		answersSet: toSet(ansList),
		allowedSet: toSet(ansList),
	}
	for _, w := range normalize(allowed) {
		l.allowedSet[w] = struct{}{}
	}
	return l, nil
}

// readWordFile loads one word per line from a file; normalize does the rest.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("words: open %s: %w", path, err)
	}
	defer f.Close()
	out, err := assets.ScanWords(f)
	if err != nil {
		return nil, fmt.Errorf("words: read %s: %w", path, err)
	}
	return out, nil
}

// normalize lowercases, trims and keeps only valid 5-letter alphabetic words,
// dropping duplicates while preserving order.
func normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, line := range in {
		w := game.Normalize(strings.TrimSpace(line))
		if len(w) != game.WordLength || !game.IsAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// toSet converts a list of strings into a lookup set.
func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

// RandomAnswer returns a cryptographically random answer.
func (l *List) RandomAnswer() string {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(len(l.answers))))
	if err != nil {
		return l.answers[0]
	}
	return l.answers[nBig.Int64()]
}

// IsValidGuess reports whether w is a valid guess (answers ∪ guesses), ignoring case.
func (l *List) IsValidGuess(w string) bool {
	_, ok := l.allowedSet[strings.ToLower(w)]
	return ok
}

// IsAnswer reports whether w is an answer word.
func (l *List) IsAnswer(w string) bool {
	_, ok := l.answersSet[strings.ToLower(w)]
	return ok
}

// Answers returns a copy of the answer list.
func (l *List) Answers() []string {
	return append([]string(nil), l.answers...)
}

// Stats returns counts of loaded words: (answers, allowed).
func (l *List) Stats() (answersCount int, allowedCount int) {
	return len(l.answers), len(l.allowedSet)
}
