package batch

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrTooManyKeys  = errors.New("too many invoice keys")
	ErrDuplicateKey = errors.New("duplicate invoice key")
)
