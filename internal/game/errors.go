package game

import "errors"

// User input errors. Reported back verbatim, never logged as faults.
var (
	ErrWrongLength   = errors.New("guess must be exactly 5 letters")
	ErrNonAlphabetic = errors.New("guess must contain only letters")
	ErrInvalidWord   = errors.New("not in word list")
)

// Session state conflicts.
var (
	ErrAlreadyActive = errors.New("a game is already active in this channel")
	ErrNoActiveGame  = errors.New("no active game in this channel")
	ErrBusy          = errors.New("channel is busy, try again")
)

// ErrStorage marks persistence faults. Wrapped together with the cause:
//
//	fmt.Errorf("%w: record guess: %w", game.ErrStorage, err)
var ErrStorage = errors.New("storage failure")

// IsInputError reports whether err is caused by a malformed or unknown guess.
func IsInputError(err error) bool {
	return errors.Is(err, ErrWrongLength) ||
		errors.Is(err, ErrNonAlphabetic) ||
		errors.Is(err, ErrInvalidWord)
}
