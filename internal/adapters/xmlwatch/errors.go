package xmlwatch

import "errors"

// ErrDetectionTimeout reports that the expected XML never appeared within
// the detection window.
var ErrDetectionTimeout = errors.New("download detection timeout")
