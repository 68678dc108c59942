package domain

import "errors"

// Domain errors
var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrUnknownGame     = errors.New("unknown game")
	ErrInvalidScore    = errors.New("invalid score value")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDuplicateEvent  = errors.New("duplicate score event")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternalError   = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound)
}

// IsValidationError checks if an error was caused by bad caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrUnknownGame) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidRequest)
}
