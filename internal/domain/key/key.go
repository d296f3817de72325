// Package key defines the NFe access key type and its validation.
package key

import (
	"errors"
	"fmt"
)

// Length is the fixed number of digits in an NFe access key.
const Length = 44

// maskDigits is how many leading digits survive masking in logs and UI.
const maskDigits = 10

// ErrInvalidKey reports a value that is not a 44-digit numeric string.
var ErrInvalidKey = errors.New("invalid invoice key")

// Key is a validated NFe access key.
type Key string

// Parse validates raw and returns it as a Key.
func Parse(raw string) (Key, error) {
	if len(raw) != Length {
		return "", fmt.Errorf("%w: want %d digits, got %d", ErrInvalidKey, Length, len(raw))
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("%w: non-digit character %q", ErrInvalidKey, c)
		}
	}
	return Key(raw), nil
}

// Valid reports whether raw parses as a Key.
func Valid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

func (k Key) String() string { return string(k) }

// Masked returns the key truncated for display, keeping only the leading
// digits. Full keys go to the audit log, never to the terminal.
func (k Key) Masked() string {
	if len(k) <= maskDigits {
		return string(k)
	}
	return string(k[:maskDigits]) + "..."
}
