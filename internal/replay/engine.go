// Package replay drives the recorded click sequence for each invoice key.
//
// The engine is a blind-coordinate automaton: it clicks the seven recorded
// positions in fixed order with fixed dwell times and has no visual feedback
// loop. Failure is inferred solely from the downloaded file not appearing
// within a bounded wait, which is a best-effort heuristic, not a guarantee.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KevymLuccas/hbmxml/internal/adapters/results"
	"github.com/KevymLuccas/hbmxml/internal/domain/batch"
	"github.com/KevymLuccas/hbmxml/internal/domain/key"
	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	"github.com/KevymLuccas/hbmxml/internal/domain/schedule"
	"github.com/KevymLuccas/hbmxml/pkg/logger"
	"github.com/KevymLuccas/hbmxml/pkg/metrics"
)

// defaultMaxAttempts is the per-key attempt budget: the initial attempt
// plus two retries.
const defaultMaxAttempts = 3

// Pointer moves and clicks the desktop pointer and types into the focused
// field. Supplied by the desktop layer; faked in tests.
type Pointer interface {
	Click(ctx context.Context, x, y int) error
	TypeKey(ctx context.Context, text string) error
}

// Detector reports whether a sequence produced its download. The only
// failure signal the engine has.
type Detector interface {
	AwaitDownload(ctx context.Context, key string) error
}

// Coordinates loads the recorded step positions.
type Coordinates interface {
	Load(ctx context.Context) (map[int]model.RecordedStep, error)
}

// Sink consumes the session event stream. Publish must never block.
type Sink interface {
	Publish(ctx context.Context, e model.Event) bool
}

// nopSink drops events when no sink is wired.
type nopSink struct{}

func (nopSink) Publish(context.Context, model.Event) bool { return false }

// Engine replays the recorded sequence over a batch, one key at a time.
// A single goroutine drives all clicks; keys are never processed
// concurrently because they share one pointer and one browser window.
type Engine struct {
	pointer  Pointer
	detector Detector
	coords   Coordinates
	sched    *schedule.Schedule
	sink     Sink
	log      logger.Logger

	maxAttempts int

	abortOnce sync.Once
	abort     chan struct{}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMaxAttempts sets the per-key attempt budget (initial try included).
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithSink sets the session event sink.
func WithSink(sink Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an Engine over the given capabilities.
func New(pointer Pointer, detector Detector, coords Coordinates, sched *schedule.Schedule, opts ...Option) *Engine {
	e := &Engine{
		pointer:     pointer,
		detector:    detector,
		coords:      coords,
		sched:       sched,
		sink:        nopSink{},
		maxAttempts: defaultMaxAttempts,
		abort:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("replay")
	}
	return e
}

// Abort stops the run at the next safe checkpoint (between clicks). Safe to
// call from any goroutine, any number of times.
func (e *Engine) Abort() {
	e.abortOnce.Do(func() {
		close(e.abort)
		metrics.RecordAbort()
	})
}

// aborted reports whether Abort was triggered.
func (e *Engine) aborted() bool {
	select {
	case <-e.abort:
		return true
	default:
		return false
	}
}

// Run processes every key of b in batch order. A key that exhausts its
// attempts is marked failed and the run moves on; only Abort or context
// cancellation stops the batch early. The summary covers whatever was
// processed either way.
func (e *Engine) Run(ctx context.Context, b *batch.Batch) (model.Summary, error) {
	steps, err := e.coords.Load(ctx)
	if err != nil {
		return model.Summary{}, fmt.Errorf("load coordinates: %w", err)
	}
	for step := 1; step <= model.StepCount; step++ {
		if _, ok := steps[step]; !ok {
			return model.Summary{}, fmt.Errorf("%w: step %d missing", ErrNotCalibrated, step)
		}
	}

	run := results.NewRun(b.Len())
	metrics.UpdateBatchSize(b.Len())
	e.log.Info(ctx, "run started",
		logger.String("run_id", run.RunID()),
		logger.Int("keys", b.Len()),
	)
	e.emit(ctx, model.Event{
		Kind:    model.EventRunState,
		Message: fmt.Sprintf("run %s started: %d key(s)", run.RunID(), b.Len()),
	})

	var runErr error
	for _, k := range b.Keys() {
		outcome := e.processKey(ctx, k, steps, run)
		run.MarkKeyDone(ctx, k.String(), outcome)
		metrics.RecordKeyProcessed()
		e.emit(ctx, model.Event{
			Kind:    model.EventKeyDone,
			Key:     k.String(),
			Outcome: outcome,
		})

		if outcome == model.OutcomeAborted {
			runErr = ErrAborted
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
	}

	sum := run.Summary(ctx)
	e.log.Info(ctx, "run finished",
		logger.String("run_id", sum.RunID),
		logger.Int("succeeded", sum.Succeeded),
		logger.Int("failed", sum.Failed),
		logger.Int("aborted", sum.Aborted),
	)
	e.emit(ctx, model.Event{
		Kind: model.EventRunState,
		Message: fmt.Sprintf("run %s finished: %d ok, %d failed, %d aborted",
			sum.RunID, sum.Succeeded, sum.Failed, sum.Aborted),
	})
	return sum, runErr
}

// processKey runs up to maxAttempts whole-sequence attempts for one key.
// Every attempt, including intermediate failures, is recorded for audit.
func (e *Engine) processKey(ctx context.Context, k key.Key, steps map[int]model.RecordedStep, run *results.InMemoryStore) model.Outcome {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := e.runSequence(ctx, k, steps, attempt)

		outcome := model.OutcomeSuccess
		switch {
		case errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			outcome = model.OutcomeAborted
		case err != nil:
			outcome = model.OutcomeFailure
		}

		run.RecordAttempt(ctx, model.AttemptResult{
			Key:     k.String(),
			Attempt: attempt,
			Outcome: outcome,
			At:      time.Now(),
		})
		metrics.RecordAttempt(string(outcome))
		e.emit(ctx, model.Event{
			Kind:    model.EventAttempt,
			Key:     k.String(),
			Attempt: attempt,
			Outcome: outcome,
		})

		switch outcome {
		case model.OutcomeSuccess, model.OutcomeAborted:
			return outcome
		}

		e.log.Warn(ctx, "attempt failed",
			logger.String("key", k.Masked()),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if attempt < e.maxAttempts {
			metrics.RecordRetry()
		}
	}
	return model.OutcomeFailure
}

// runSequence performs one whole 7-step pass for one key: at most one click
// per recorded step. The download check sits between the popup confirmation
// and the new-query click. On a failed check the sequence skips straight to
// the reload step so the page is back on the query form before the retry.
func (e *Engine) runSequence(ctx context.Context, k key.Key, steps map[int]model.RecordedStep, attempt int) error {
	var seqErr error

	for step := 1; step <= model.StepCount; step++ {
		if seqErr != nil && step != model.StepReload {
			continue // failed sequence: only the reload click remains
		}

		if err := e.clickStep(ctx, k, steps[step], attempt); err != nil {
			return err
		}

		if step == model.StepKeyField {
			if err := e.pointer.TypeKey(ctx, k.String()); err != nil {
				return fmt.Errorf("type key: %w", err)
			}
		}

		if err := e.wait(ctx, e.sched.Dwell(step)); err != nil {
			return err
		}

		if step == model.StepPopupOK {
			if err := e.detector.AwaitDownload(ctx, k.String()); err != nil {
				if cause := ctx.Err(); cause != nil {
					return cause
				}
				metrics.RecordDetectionTimeout()
				seqErr = fmt.Errorf("download not confirmed: %w", err)
			}
		}
	}
	return seqErr
}

// clickStep performs the single click of one step, checking the abort
// checkpoint first. Abort preempts between clicks, never mid-click.
func (e *Engine) clickStep(ctx context.Context, k key.Key, pos model.RecordedStep, attempt int) error {
	if e.aborted() {
		return ErrAborted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := e.pointer.Click(ctx, pos.X, pos.Y); err != nil {
		return fmt.Errorf("click step %d: %w", pos.Step, err)
	}
	metrics.RecordClick()
	e.emit(ctx, model.Event{
		Kind:    model.EventClick,
		Key:     k.String(),
		Step:    pos.Step,
		Attempt: attempt,
	})
	return nil
}

// wait blocks for the dwell, interruptible by abort or ctx.
func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	metrics.ObserveStepDwell(d.Seconds())

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-e.abort:
		return ErrAborted
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) emit(ctx context.Context, event model.Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	e.sink.Publish(ctx, event)
}
