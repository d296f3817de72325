// Package calibration records the seven screen positions replay depends on.
//
// A calibration session walks steps 1..7 in order, fully paced by the
// operator: for each step the operator puts the pointer on the target
// control and confirms, and the current position is captured.
package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	"github.com/KevymLuccas/hbmxml/pkg/logger"
	"github.com/KevymLuccas/hbmxml/pkg/metrics"
)

// Store persists captured positions.
type Store interface {
	Save(ctx context.Context, step, x, y int) error
}

// Positioner reports the current on-screen pointer position. Supplied by
// the desktop layer; faked in tests.
type Positioner interface {
	CursorPosition(ctx context.Context) (x, y int, err error)
}

// Sink consumes capture events, e.g. the audit trail.
type Sink interface {
	Publish(ctx context.Context, e model.Event) bool
}

// Recorder is one calibration session. It is an explicit state object owned
// by its caller; there is no ambient calibration state.
type Recorder struct {
	store      Store
	positioner Positioner
	sink       Sink
	log        logger.Logger

	next int // 1..StepCount while recording, StepCount+1 when done
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithLogger sets a custom logger for the recorder.
func WithLogger(log logger.Logger) Option {
	return func(r *Recorder) {
		if log != nil {
			r.log = log
		}
	}
}

// WithSink publishes a capture event for every recorded step.
func WithSink(sink Sink) Option {
	return func(r *Recorder) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// New creates a Recorder. Begin must be called before capturing.
func New(store Store, positioner Positioner, opts ...Option) *Recorder {
	r := &Recorder{
		store:      store,
		positioner: positioner,
		next:       model.StepCount + 1, // not started
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("calibration")
	}
	return r
}

// Begin resets the session to step 1. Re-running a calibration overwrites
// previously recorded steps one by one as they are captured.
func (r *Recorder) Begin(ctx context.Context) {
	r.next = 1
	r.log.Info(ctx, "calibration started", logger.Int("steps", model.StepCount))
}

// Step returns the step awaiting capture, or 0 when the session is done or
// not started.
func (r *Recorder) Step() int {
	if r.next > model.StepCount {
		return 0
	}
	return r.next
}

// Done reports whether all steps have been captured.
func (r *Recorder) Done() bool { return r.next > model.StepCount }

// Instruction returns the operator prompt for the step awaiting capture.
func (r *Recorder) Instruction() string {
	if r.Done() {
		return ""
	}
	return fmt.Sprintf("step %d/%d: put the pointer on the %s and confirm",
		r.next, model.StepCount, model.StepLabel(r.next))
}

// CaptureCurrent records the current pointer position as the coordinate of
// the step awaiting capture and advances. Fails with ErrOutOfSequence once
// the session is done.
func (r *Recorder) CaptureCurrent(ctx context.Context) (model.RecordedStep, error) {
	if r.Done() {
		return model.RecordedStep{}, ErrOutOfSequence
	}

	x, y, err := r.positioner.CursorPosition(ctx)
	if err != nil {
		return model.RecordedStep{}, fmt.Errorf("query pointer position: %w", err)
	}
	if err := r.store.Save(ctx, r.next, x, y); err != nil {
		return model.RecordedStep{}, fmt.Errorf("persist step %d: %w", r.next, err)
	}

	captured := model.RecordedStep{Step: r.next, X: x, Y: y}
	r.log.Info(ctx, "position captured",
		logger.Int("step", captured.Step),
		logger.Int("x", x),
		logger.Int("y", y),
	)
	metrics.RecordCalibrationCapture()
	if r.sink != nil {
		r.sink.Publish(ctx, model.Event{
			At:      time.Now(),
			Kind:    model.EventCapture,
			Step:    captured.Step,
			Message: fmt.Sprintf("recorded at (%d, %d)", x, y),
		})
	}

	r.next++
	if r.Done() {
		r.log.Info(ctx, "calibration complete")
	}
	return captured, nil
}
