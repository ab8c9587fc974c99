package errs

import "errors"

// Domain sentinel errors, mapped to HTTP codes in handlers.
var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamExists        = errors.New("team already exists")
	ErrStoryNotFound     = errors.New("story not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrStoryNotActive    = errors.New("story is not active")
	ErrSessionNotStarted = errors.New("session is waiting to be started")
	ErrSessionNotWaiting = errors.New("session is not in waiting state")
	ErrSessionExpired    = errors.New("session time budget exhausted")
	ErrInvalidInput      = errors.New("invalid input")

	// ErrGenerationUnavailable never leaves the generator package: callers
	// always receive fallback content instead.
	ErrGenerationUnavailable = errors.New("text generation unavailable")
)
