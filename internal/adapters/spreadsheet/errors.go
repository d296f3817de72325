package spreadsheet

import "errors"

// Sentinel kinds for spreadsheet errors.
var (
	ErrMalformedFile = errors.New("malformed spreadsheet")
	ErrNoKeys        = errors.New("no invoice keys in spreadsheet")
)
