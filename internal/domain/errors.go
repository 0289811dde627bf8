package domain

import "errors"

// Error kinds. Every failure returned by the ledger wraps exactly one of these,
// so callers classify with errors.Is.
var (
	// ErrNotFound means a referenced account, payment method, category,
	// transaction or recurring template does not exist.
	ErrNotFound = errors.New("domain: not found")

	// ErrInvalidArgument means input was rejected before anything was persisted.
	ErrInvalidArgument = errors.New("domain: invalid argument")

	// ErrInvalidState means the operation is not allowed in the entity's
	// current state. Nothing was mutated.
	ErrInvalidState = errors.New("domain: invalid state")

	// ErrAlreadyExists means a record with the same id is already stored.
	ErrAlreadyExists = errors.New("domain: already exists")
)

// Kind returns a short name for the error kind of err, or "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	default:
		return "internal"
	}
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
