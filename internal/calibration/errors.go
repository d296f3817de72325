package calibration

import "errors"

// ErrOutOfSequence reports a capture after the session already finished.
var ErrOutOfSequence = errors.New("calibration already complete")
