package resolution

import "errors"

var (
	// ErrNotFound covers unknown customers, cards and sessions.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means an operation was invoked out of session-state order.
	ErrInvalidState = errors.New("invalid session state")
	// ErrEmptyInput means no transcript could be derived from any source.
	ErrEmptyInput = errors.New("no transcript derivable from input")
	// ErrUpstream wraps speech or account-action service failures.
	ErrUpstream = errors.New("upstream service failure")
)
