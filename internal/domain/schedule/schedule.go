// Package schedule computes the dwell time observed after each replay click.
//
// The portal gives no readiness signal, so pacing is purely time-based: each
// step has a base dwell tuned by hand, scaled by an operator speed level.
package schedule

import (
	"time"

	"github.com/KevymLuccas/hbmxml/internal/domain/model"
)

// Operator speed levels. Level 3 runs at the hand-tuned base dwells; lower
// levels stretch them, higher levels compress them.
const (
	MinSpeed     = 1
	MaxSpeed     = 5
	DefaultSpeed = 3
)

// speedFactors maps a speed level to a dwell multiplier.
var speedFactors = map[int]float64{
	1: 2.0,
	2: 1.5,
	3: 1.0,
	4: 0.75,
	5: 0.5,
}

// Base dwell per step at speed 3. The captcha dwell is the window the
// operator has to solve the challenge by hand.
var baseDwells = map[int]time.Duration{
	model.StepKeyField: 1 * time.Second,
	model.StepCaptcha:  30 * time.Second,
	model.StepContinue: 5 * time.Second,
	model.StepDownload: 3 * time.Second,
	model.StepPopupOK:  2 * time.Second,
	model.StepNewQuery: 3 * time.Second,
}

// defaultBetweenInvoices is the default step-7 dwell, separating one invoice
// from the next.
const defaultBetweenInvoices = 2 * time.Second

// Schedule resolves per-step dwell durations.
type Schedule struct {
	speed           int
	betweenInvoices time.Duration
	overrides       map[int]time.Duration
}

// Option applies a configuration option to the Schedule.
type Option func(*Schedule)

// WithSpeed sets the operator speed level, clamped to MinSpeed..MaxSpeed.
func WithSpeed(speed int) Option {
	return func(s *Schedule) {
		if speed < MinSpeed {
			speed = MinSpeed
		}
		if speed > MaxSpeed {
			speed = MaxSpeed
		}
		s.speed = speed
	}
}

// WithBetweenInvoices sets the interval between one invoice and the next
// (the step-7 dwell).
func WithBetweenInvoices(d time.Duration) Option {
	return func(s *Schedule) {
		if d > 0 {
			s.betweenInvoices = d
		}
	}
}

// WithStepDwell overrides the base dwell for one step.
func WithStepDwell(step int, d time.Duration) Option {
	return func(s *Schedule) {
		if step >= 1 && step <= model.StepCount && d > 0 {
			s.overrides[step] = d
		}
	}
}

// New builds a Schedule with defaults and applies options.
func New(opts ...Option) *Schedule {
	s := &Schedule{
		speed:           DefaultSpeed,
		betweenInvoices: defaultBetweenInvoices,
		overrides:       make(map[int]time.Duration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Speed returns the configured speed level.
func (s *Schedule) Speed() int { return s.speed }

// Dwell returns the wait observed after clicking the given step. Step 7 is
// the between-invoice interval and, unlike the others, is not scaled by
// speed so operators keep direct control over the inter-invoice gap.
func (s *Schedule) Dwell(step int) time.Duration {
	if d, ok := s.overrides[step]; ok {
		return d
	}
	if step == model.StepReload {
		return s.betweenInvoices
	}
	base, ok := baseDwells[step]
	if !ok {
		return 0
	}
	return time.Duration(float64(base) * speedFactors[s.speed])
}
