// internal/game/score.go
//
// Guess scoring and word validation.
// Responsibilities:
//   - Score guesses using the classic two-pass algorithm.
//   - Validate raw guesses (length, alphabetic) before list lookup.
//
// Notes:
//   - Membership in the valid-guess list is checked by the caller's word source,
//     this file only knows about shape.

package game

import (
	"strings"
	"unicode/utf8"
)

// Score compares guess against answer, case-insensitively, and returns one
// mark per letter.
//
// Pass 1:
//   - Mark exact matches as Hit.
//   - Count remaining (non-hit) answer letters.
//
// Pass 2:
//   - For each non-hit guess letter: if there is remaining count for that letter,
//     mark Present and decrement the count; otherwise mark Miss.
//
// Pass 1 must finish before pass 2 starts so that letters consumed by hits are
// not offered again as presents.
func Score(guess, answer string) Feedback {
	guessRunes := []rune(strings.ToLower(guess))
	answerRunes := []rune(strings.ToLower(answer))
	n := len(guessRunes)
	res := make(Feedback, n)

	counts := make(map[rune]int, len(answerRunes))

	for i := 0; i < n; i++ {
		if i < len(answerRunes) && guessRunes[i] == answerRunes[i] {
			res[i] = MarkHit
			continue
		}
		if i < len(answerRunes) {
			counts[answerRunes[i]]++
		}
	}
	for i := n; i < len(answerRunes); i++ {
		counts[answerRunes[i]]++
	}

	for i := 0; i < n; i++ {
		if res[i] == MarkHit {
			continue
		}
		r := guessRunes[i]
		if counts[r] > 0 {
			res[i] = MarkPresent
			counts[r]--
		} else {
			res[i] = MarkMiss
		}
	}
	return res
}

// Normalize lowercases a raw guess. Surrounding whitespace is kept and
// counts toward the length check.
func Normalize(word string) string {
	return strings.ToLower(word)
}

// ValidateShape checks length and alphabet of a normalized word, in that order.
// Returns ErrWrongLength or ErrNonAlphabetic.
func ValidateShape(word string) error {
	if utf8.RuneCountInString(word) != WordLength {
		return ErrWrongLength
	}
	if !IsAlpha(word) {
		return ErrNonAlphabetic
	}
	return nil
}

// IsAlpha reports whether s consists only of lowercase a–z.
func IsAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
