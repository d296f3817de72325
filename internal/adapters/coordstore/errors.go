package coordstore

import "errors"

// Sentinel kinds for coordinate persistence errors.
var (
	ErrInvalidStep = errors.New("step index out of range")
	ErrCorruptFile = errors.New("corrupt coordinates file")
)
