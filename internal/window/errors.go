package window

import "errors"

var (
	// ErrNotFound means an operation referenced an id that is no longer known.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID means an id was registered twice.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidState means a gesture or mode conflict; nothing was changed.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvariantViolation means an internal consistency check failed.
	ErrInvariantViolation = errors.New("invariant violation")
)
