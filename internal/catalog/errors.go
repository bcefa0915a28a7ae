package catalog

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write would break a uniqueness rule,
	// such as a second edge for the same unordered pair.
	ErrDuplicate = errors.New("already exists")
	// ErrInvalid is returned when a record fails validation.
	ErrInvalid = errors.New("invalid")
)
