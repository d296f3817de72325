// Package results records attempt outcomes for the current run and derives
// the end-of-run summary.
package results

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KevymLuccas/hbmxml/internal/domain/model"
)

// Store collects attempt results for one run.
type Store interface {
	// RecordAttempt appends one immutable attempt result.
	RecordAttempt(ctx context.Context, r model.AttemptResult)

	// MarkKeyDone records the final outcome of one key.
	MarkKeyDone(ctx context.Context, key string, outcome model.Outcome)

	// Attempts returns all recorded attempts for a key, in order.
	Attempts(ctx context.Context, key string) []model.AttemptResult

	// Summary derives the run summary from everything recorded so far.
	Summary(ctx context.Context) model.Summary
}

// InMemoryStore implements Store. Safe for concurrent reads while the
// single replay goroutine writes.
type InMemoryStore struct {
	mu sync.RWMutex

	runID      string
	startedAt  time.Time
	total      int
	attempts   map[string][]model.AttemptResult
	finalByKey map[string]model.Outcome
	keyOrder   []string
}

// NewRun creates a store for a run over total keys, with a fresh run ID.
func NewRun(total int) *InMemoryStore {
	return &InMemoryStore{
		runID:      uuid.NewString(),
		startedAt:  time.Now(),
		total:      total,
		attempts:   make(map[string][]model.AttemptResult),
		finalByKey: make(map[string]model.Outcome),
	}
}

// RunID returns the unique identifier of this run.
func (s *InMemoryStore) RunID() string { return s.runID }

// RecordAttempt appends one attempt result.
func (s *InMemoryStore) RecordAttempt(ctx context.Context, r model.AttemptResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[r.Key] = append(s.attempts[r.Key], r)
}

// MarkKeyDone records the final outcome of one key. Later calls for the
// same key are ignored; the first final outcome stands.
func (s *InMemoryStore) MarkKeyDone(ctx context.Context, key string, outcome model.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.finalByKey[key]; done {
		return
	}
	s.finalByKey[key] = outcome
	s.keyOrder = append(s.keyOrder, key)
}

// Attempts returns all recorded attempts for a key, in order.
func (s *InMemoryStore) Attempts(ctx context.Context, key string) []model.AttemptResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AttemptResult, len(s.attempts[key]))
	copy(out, s.attempts[key])
	return out
}

// Summary derives the run summary.
func (s *InMemoryStore) Summary(ctx context.Context) model.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := model.Summary{
		RunID:      s.runID,
		Total:      s.total,
		StartedAt:  s.startedAt,
		FinishedAt: time.Now(),
	}
	for _, key := range s.keyOrder {
		switch s.finalByKey[key] {
		case model.OutcomeSuccess:
			sum.Succeeded++
		case model.OutcomeFailure:
			sum.Failed++
			sum.FailedKeys = append(sum.FailedKeys, key)
		case model.OutcomeAborted:
			sum.Aborted++
		}
	}
	return sum
}
