package app

import "errors"

// ErrNoMissingKeys is returned when the missing-XML ledger has nothing to
// retry.
var ErrNoMissingKeys = errors.New("missing-XML ledger is empty")
