package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown instances and unknown tokens.
	ErrNotFound = errors.New("assessment not found")

	// ErrInvalidState is the base error for transitions attempted from a
	// terminal or incompatible state. The wrapped variants below let callers
	// render distinct messages while still matching ErrInvalidState.
	ErrInvalidState = errors.New("invalid state transition")

	ErrAlreadyCompleted = fmt.Errorf("%w: assessment already completed", ErrInvalidState)
	ErrCancelled        = fmt.Errorf("%w: assessment was cancelled", ErrInvalidState)
	ErrLinkExpired      = fmt.Errorf("%w: link has expired", ErrInvalidState)

	// ErrValidation covers bad answers and unknown measure names.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyScheduled marks an idempotent generation no-op, not a real
	// failure. Callers treat it as success with zero effect.
	ErrAlreadyScheduled = errors.New("already scheduled")
)

// terminalErr maps a terminal status to its distinguishable error.
func terminalErr(s Status) error {
	switch s {
	case StatusCompleted:
		return ErrAlreadyCompleted
	case StatusCancelled:
		return ErrCancelled
	case StatusExpired:
		return ErrLinkExpired
	}
	return ErrInvalidState
}
