// Package batch maintains the ordered set of invoice keys queued for a run.
package batch

import (
	"fmt"

	"github.com/KevymLuccas/hbmxml/internal/domain/key"
)

// MaxKeys caps a batch; the portal workflow is tuned for at most 500 keys
// per session.
const MaxKeys = 500

// Batch is an ordered collection of unique invoice keys. Processing order
// equals insertion order. Not safe for concurrent use.
type Batch struct {
	keys []key.Key
	seen map[key.Key]struct{}
}

// New returns an empty batch.
func New() *Batch {
	return &Batch{seen: make(map[key.Key]struct{})}
}

// Add validates raw and appends it. Duplicates and overflow are rejected.
func (b *Batch) Add(raw string) error {
	k, err := key.Parse(raw)
	if err != nil {
		return err
	}
	return b.AddKey(k)
}

// AddKey appends an already-validated key.
func (b *Batch) AddKey(k key.Key) error {
	if len(b.keys) >= MaxKeys {
		return fmt.Errorf("%w: limit is %d", ErrTooManyKeys, MaxKeys)
	}
	if _, dup := b.seen[k]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, k.Masked())
	}
	b.seen[k] = struct{}{}
	b.keys = append(b.keys, k)
	return nil
}

// Len returns the number of queued keys.
func (b *Batch) Len() int { return len(b.keys) }

// Keys returns the queued keys in processing order. The slice is a copy;
// mutating it does not affect the batch.
func (b *Batch) Keys() []key.Key {
	out := make([]key.Key, len(b.keys))
	copy(out, b.keys)
	return out
}
