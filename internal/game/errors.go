package game

import "errors"

// Rejection reasons. Match them with errors.Is.
var (
	ErrNotActive       = errors.New("game not active")
	ErrNotANumber      = errors.New("not a number")
	ErrOutOfRange      = errors.New("out of range")
	ErrHintUnavailable = errors.New("hint unavailable")
)

// ValidationError is returned for any rejected input. The session is left
// untouched when one is returned.
type ValidationError struct {
	Err error  // one of the Err* sentinels
	Msg string // text suitable for showing to the player
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.Err }

// Reason returns a short machine-readable code for the rejection.
func (e *ValidationError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrNotActive):
		return "not_active"
	case errors.Is(e.Err, ErrNotANumber):
		return "not_a_number"
	case errors.Is(e.Err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(e.Err, ErrHintUnavailable):
		return "hint_unavailable"
	default:
		return "invalid"
	}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func reject(sentinel error, msg string) error {
	return &ValidationError{Err: sentinel, Msg: msg}
}
