package scheduling

import "errors"

// Error kinds returned by the scheduling service. Handlers map these to HTTP
// status codes with errors.Is; callers branch on kind, not on message text.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("not authorized")
)
