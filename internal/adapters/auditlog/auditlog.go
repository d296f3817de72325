// Package auditlog appends session events to a human-readable log file and
// keeps the ledger of keys whose XML never showed up.
package auditlog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KevymLuccas/hbmxml/internal/domain/model"
)

const (
	defaultAuditPath   = "session_audit.log"
	defaultMissingPath = "missing_xml.log"

	timeLayout = "2006-01-02 15:04:05"
)

// Log writes the append-only audit trail. The file is opened, appended, and
// closed per event; nothing holds it between writes.
type Log struct {
	auditPath   string
	missingPath string
}

// Option applies a configuration option to the Log.
type Option func(*Log)

// WithAuditPath sets the audit trail location.
func WithAuditPath(path string) Option {
	return func(l *Log) {
		if path != "" {
			l.auditPath = path
		}
	}
}

// WithMissingPath sets the missing-XML ledger location.
func WithMissingPath(path string) Option {
	return func(l *Log) {
		if path != "" {
			l.missingPath = path
		}
	}
}

// New creates a Log with configuration options.
func New(opts ...Option) *Log {
	l := &Log{auditPath: defaultAuditPath, missingPath: defaultMissingPath}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WriteEvent appends one event line: timestamp, kind, key, step, outcome.
func (l *Log) WriteEvent(ctx context.Context, e model.Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s | %-9s", at.Format(timeLayout), e.Kind)
	if e.Key != "" {
		fmt.Fprintf(&b, " | key=%s", e.Key)
	}
	if e.Step > 0 {
		fmt.Fprintf(&b, " | step=%d (%s)", e.Step, model.StepLabel(e.Step))
	}
	if e.Attempt > 0 {
		fmt.Fprintf(&b, " | attempt=%d", e.Attempt)
	}
	if e.Outcome != "" {
		fmt.Fprintf(&b, " | outcome=%s", e.Outcome)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " | %s", e.Message)
	}
	b.WriteByte('\n')

	return l.appendLine(l.auditPath, b.String())
}

// RecordMissing appends a key to the missing-XML ledger.
func (l *Log) RecordMissing(ctx context.Context, key string) error {
	line := fmt.Sprintf("%s - NFe: %s\n", time.Now().Format(timeLayout), key)
	return l.appendLine(l.missingPath, line)
}

// LoadMissing returns the unique keys currently on the missing-XML ledger,
// oldest first. A missing ledger file yields an empty list.
func (l *Log) LoadMissing(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(l.missingPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read missing ledger: %w", err)
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		_, after, found := strings.Cut(line, " - NFe: ")
		if !found {
			continue
		}
		k := strings.TrimSpace(after)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, nil
}

// ClearMissing truncates the missing-XML ledger.
func (l *Log) ClearMissing(ctx context.Context) error {
	err := os.Remove(l.missingPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear missing ledger: %w", err)
	}
	return nil
}

func (l *Log) appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return nil
}
