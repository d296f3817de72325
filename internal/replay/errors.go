package replay

import "errors"

// Sentinel kinds for replay errors.
var (
	ErrAborted       = errors.New("run aborted by operator")
	ErrNotCalibrated = errors.New("calibration incomplete")
)
