// Package simulate fakes the desktop capabilities so calibration and replay
// can run without a display: dry runs, demos, and tests.
package simulate

import (
	"context"
	"fmt"
	"sync"

	"github.com/KevymLuccas/hbmxml/internal/adapters/xmlwatch"
)

// Click is one recorded pointer press.
type Click struct {
	X, Y int
}

// Desk is a scriptable stand-in for the browser-backed desktop driver. It
// implements the replay Pointer/Detector and the calibration Positioner.
type Desk struct {
	mu sync.Mutex

	clicks []Click
	typed  []string

	cursorX, cursorY int
	failKeys         map[string]int // key -> failing attempts remaining (-1 = always)
	downloadsSeen    map[string]int
	onClick          func(n int) // invoked after every click with the running count
}

// Option applies a configuration option to the Desk.
type Option func(*Desk)

// WithFailingKey scripts a key whose download never appears.
func WithFailingKey(key string) Option {
	return func(d *Desk) { d.failKeys[key] = -1 }
}

// WithFlakyKey scripts a key whose download fails for the first n attempts
// and then appears.
func WithFlakyKey(key string, n int) Option {
	return func(d *Desk) { d.failKeys[key] = n }
}

// WithClickHook invokes fn after every click with the running click count.
// Tests use it to trigger aborts mid-sequence.
func WithClickHook(fn func(n int)) Option {
	return func(d *Desk) { d.onClick = fn }
}

// New creates a Desk.
func New(opts ...Option) *Desk {
	d := &Desk{
		failKeys:      make(map[string]int),
		downloadsSeen: make(map[string]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Click records a pointer press.
func (d *Desk) Click(ctx context.Context, x, y int) error {
	d.mu.Lock()
	d.clicks = append(d.clicks, Click{X: x, Y: y})
	n := len(d.clicks)
	hook := d.onClick
	d.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

// TypeKey records typed text.
func (d *Desk) TypeKey(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typed = append(d.typed, text)
	return nil
}

// AwaitDownload resolves instantly according to the scripted failures.
func (d *Desk) AwaitDownload(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.downloadsSeen[key]++
	remaining, scripted := d.failKeys[key]
	if !scripted {
		return nil
	}
	if remaining < 0 {
		return fmt.Errorf("%w: %s.xml (simulated)", xmlwatch.ErrDetectionTimeout, key)
	}
	if d.downloadsSeen[key] <= remaining {
		return fmt.Errorf("%w: %s.xml (simulated)", xmlwatch.ErrDetectionTimeout, key)
	}
	return nil
}

// SetCursor positions the simulated pointer.
func (d *Desk) SetCursor(x, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursorX, d.cursorY = x, y
}

// CursorPosition returns the simulated pointer position.
func (d *Desk) CursorPosition(ctx context.Context) (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursorX, d.cursorY, nil
}

// Clicks returns all recorded clicks in order.
func (d *Desk) Clicks() []Click {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Click, len(d.clicks))
	copy(out, d.clicks)
	return out
}

// Typed returns all recorded typed strings in order.
func (d *Desk) Typed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.typed))
	copy(out, d.typed)
	return out
}
