// Package coordstore persists calibrated screen positions to a local file.
//
// The file is a JSON mapping of step index to position. It is read at
// startup and rewritten only during calibration; whether a stored position
// still points at the intended control is not validated here.
package coordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/KevymLuccas/hbmxml/internal/domain/model"
)

const defaultPath = "positions.json"

// Store reads and writes recorded steps. Each operation opens, touches, and
// closes the file; no lock is held between calls.
type Store struct {
	path string
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithPath sets the coordinates file location.
func WithPath(path string) Option {
	return func(s *Store) {
		if path != "" {
			s.path = path
		}
	}
}

// New creates a Store with configuration options.
func New(opts ...Option) *Store {
	s := &Store{path: defaultPath}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the coordinates file location.
func (s *Store) Path() string { return s.path }

// Load returns the recorded steps keyed by step index. A missing file is an
// empty mapping, not an error.
func (s *Store) Load(ctx context.Context) (map[int]model.RecordedStep, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[int]model.RecordedStep{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read coordinates file: %w", err)
	}

	var raw map[string]model.RecordedStep
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	steps := make(map[int]model.RecordedStep, len(raw))
	for k, v := range raw {
		step, err := strconv.Atoi(k)
		if err != nil || step < 1 || step > model.StepCount {
			return nil, fmt.Errorf("%w: unexpected step index %q", ErrCorruptFile, k)
		}
		v.Step = step
		steps[step] = v
	}
	return steps, nil
}

// Save persists one step's position, overwriting any prior value for that
// index. The file is replaced atomically.
func (s *Store) Save(ctx context.Context, step, x, y int) error {
	if step < 1 || step > model.StepCount {
		return fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}

	steps, err := s.Load(ctx)
	if err != nil {
		return err
	}
	steps[step] = model.RecordedStep{Step: step, X: x, Y: y}

	raw := make(map[string]model.RecordedStep, len(steps))
	for i, v := range steps {
		raw[strconv.Itoa(i)] = v
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode coordinates: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create coordinates dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write coordinates file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace coordinates file: %w", err)
	}
	return nil
}

// Complete reports whether all steps 1..StepCount have a recorded position.
func (s *Store) Complete(ctx context.Context) (bool, error) {
	steps, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	for step := 1; step <= model.StepCount; step++ {
		if _, ok := steps[step]; !ok {
			return false, nil
		}
	}
	return true, nil
}
