// Package model contains domain models passed between layers.
package model

import "time"

// StepCount is the number of recorded screen positions a full calibration
// produces and a replay sequence consumes.
const StepCount = 7

// Replay sequence steps, in click order.
const (
	StepKeyField = 1 // portal field receiving the invoice key
	StepCaptcha  = 2 // captcha input field
	StepContinue = 3 // continue/submit button
	StepDownload = 4 // document download button
	StepPopupOK  = 5 // download-finished popup confirmation
	StepNewQuery = 6 // new query button
	StepReload   = 7 // page reload control
)

// stepLabels describe each step for operators. Indexed by step-1.
var stepLabels = [StepCount]string{
	"invoice key field",
	"captcha field",
	"continue button",
	"document download button",
	"download popup OK",
	"new query button",
	"page reload control",
}

// StepLabel returns the operator-facing description of a step, or "" for an
// index outside 1..StepCount.
func StepLabel(step int) string {
	if step < 1 || step > StepCount {
		return ""
	}
	return stepLabels[step-1]
}

// RecordedStep is one calibrated screen position.
type RecordedStep struct {
	Step int `json:"step"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// Outcome classifies a finished attempt or run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeAborted Outcome = "aborted"
)

// AttemptResult records one whole-sequence attempt for one invoice key.
// Immutable once produced by the replay engine.
type AttemptResult struct {
	Key     string
	Attempt int
	Outcome Outcome
	At      time.Time
}

// EventKind distinguishes entries on the session event stream.
type EventKind string

const (
	EventClick    EventKind = "click"
	EventAttempt  EventKind = "attempt"
	EventKeyDone  EventKind = "key_done"
	EventRunState EventKind = "run_state"
	EventCapture  EventKind = "capture"
)

// Event is one timestamped entry on the session event stream, consumed by
// the UI and the audit log.
type Event struct {
	At      time.Time
	Kind    EventKind
	Key     string
	Step    int
	Attempt int
	Outcome Outcome
	Message string
}

// Summary aggregates one replay run.
type Summary struct {
	RunID      string
	Total      int
	Succeeded  int
	Failed     int
	Aborted    int
	FailedKeys []string
	StartedAt  time.Time
	FinishedAt time.Time
}
