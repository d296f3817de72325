// Package app wires configuration, adapters, and the replay engine into the
// operations the command layer exposes.
package app

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/KevymLuccas/hbmxml/internal/adapters/auditlog"
	"github.com/KevymLuccas/hbmxml/internal/adapters/coordstore"
	"github.com/KevymLuccas/hbmxml/internal/adapters/desktop"
	"github.com/KevymLuccas/hbmxml/internal/adapters/eventbus"
	"github.com/KevymLuccas/hbmxml/internal/adapters/spreadsheet"
	"github.com/KevymLuccas/hbmxml/internal/adapters/xmlwatch"
	"github.com/KevymLuccas/hbmxml/internal/calibration"
	"github.com/KevymLuccas/hbmxml/internal/config"
	"github.com/KevymLuccas/hbmxml/internal/domain/batch"
	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	"github.com/KevymLuccas/hbmxml/internal/domain/schedule"
	"github.com/KevymLuccas/hbmxml/internal/replay"
	"github.com/KevymLuccas/hbmxml/pkg/logger"
)

// Capabilities groups the desktop-facing dependencies so they can be
// swapped for fakes (dry runs, tests).
type Capabilities struct {
	Pointer    replay.Pointer
	Detector   replay.Detector
	Positioner calibration.Positioner

	// Open prepares the capability layer (launches the browser). Nil
	// means nothing to prepare.
	Open func(ctx context.Context) error
	// Close tears it down. Nil means nothing to tear down.
	Close func()
}

// Service implements the session operations.
type Service struct {
	mu sync.Mutex

	cfg *config.Config
	log logger.Logger

	store  *coordstore.Store
	loader *spreadsheet.Loader
	audit  *auditlog.Log
	sched  *schedule.Schedule

	caps       Capabilities
	capsCustom bool
	opened     bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCapabilities replaces the browser-backed desktop layer, e.g. with the
// simulation desk.
func WithCapabilities(caps Capabilities) Option {
	return func(s *Service) {
		s.caps = caps
		s.capsCustom = true
	}
}

// WithSchedule overrides the dwell schedule derived from the configuration.
func WithSchedule(sched *schedule.Schedule) Option {
	return func(s *Service) {
		s.sched = sched
	}
}

// New constructs a Service for the given configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("app")
	}

	s.store = coordstore.New(coordstore.WithPath(cfg.CoordinatesPath))
	s.loader = spreadsheet.New(spreadsheet.WithLogger(s.log.Named("spreadsheet")))
	s.audit = auditlog.New(
		auditlog.WithAuditPath(cfg.AuditLogPath),
		auditlog.WithMissingPath(cfg.MissingLogPath),
	)
	if s.sched == nil {
		s.sched = schedule.New(
			schedule.WithSpeed(cfg.Speed),
			schedule.WithBetweenInvoices(cfg.BetweenInvoices()),
		)
	}

	if !s.capsCustom {
		driver := desktop.New(
			desktop.WithPortalURL(cfg.PortalURL),
			desktop.WithDownloadDir(cfg.DownloadDir),
			desktop.WithHeadless(cfg.Headless),
			desktop.WithLogger(s.log.Named("desktop")),
		)
		watcher := xmlwatch.New(
			xmlwatch.WithDir(cfg.DownloadDir),
			xmlwatch.WithTimeout(cfg.DetectTimeout()),
		)
		s.caps = Capabilities{
			Pointer:    driver,
			Detector:   watcher,
			Positioner: driver,
			Open:       driver.Open,
			Close:      driver.Close,
		}
	}
	return s
}

// Start prepares session directories. The browser is launched lazily by the
// operations that need it.
func (s *Service) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	s.log.Info(ctx, "service started",
		logger.String("data_dir", s.cfg.DataDir),
		logger.Int("speed", s.cfg.Speed),
	)
	return nil
}

// Stop tears down the capability layer.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened && s.caps.Close != nil {
		s.caps.Close()
	}
	s.opened = false
}

// openDesktop launches the capability layer once.
func (s *Service) openDesktop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}
	if s.caps.Open != nil {
		if err := s.caps.Open(ctx); err != nil {
			return err
		}
	}
	s.opened = true
	return nil
}

// ImportBatch loads a batch from a spreadsheet, failing fast before any
// replay starts.
func (s *Service) ImportBatch(ctx context.Context, path string) (*batch.Batch, error) {
	return s.loader.Import(ctx, path)
}

// ExportBatch writes a batch to a spreadsheet.
func (s *Service) ExportBatch(ctx context.Context, path string, b *batch.Batch) error {
	return s.loader.Export(ctx, path, b)
}

// RetryMissing builds a batch from the missing-XML ledger, capped at the
// batch limit, and clears the ledger so a rerun starts a fresh tally.
func (s *Service) RetryMissing(ctx context.Context) (*batch.Batch, error) {
	keys, err := s.audit.LoadMissing(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrNoMissingKeys
	}

	b := batch.New()
	for _, k := range keys {
		if b.Len() == batch.MaxKeys {
			s.log.Warn(ctx, "missing ledger exceeds batch limit; remainder stays on ledger",
				logger.Int("loaded", b.Len()))
			break
		}
		if err := b.Add(k); err != nil {
			s.log.Warn(ctx, "skipping unusable ledger entry", logger.Error(err))
		}
	}
	if b.Len() == 0 {
		return nil, ErrNoMissingKeys
	}
	if err := s.audit.ClearMissing(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Calibrated reports whether all steps have recorded positions.
func (s *Service) Calibrated(ctx context.Context) (bool, error) {
	return s.store.Complete(ctx)
}

// NewCalibration opens the desktop layer and returns a fresh calibration
// session, already begun. The caller paces the captures.
func (s *Service) NewCalibration(ctx context.Context) (*calibration.Recorder, error) {
	if err := s.openDesktop(ctx); err != nil {
		return nil, err
	}
	rec := calibration.New(s.store, s.caps.Positioner,
		calibration.WithLogger(s.log.Named("calibration")),
		calibration.WithSink(&auditSink{log: s.audit, warn: s.log}),
	)
	rec.Begin(ctx)
	return rec, nil
}

// auditSink writes calibration capture events straight to the audit trail.
type auditSink struct {
	log  *auditlog.Log
	warn logger.Logger
}

func (s *auditSink) Publish(ctx context.Context, e model.Event) bool {
	if err := s.log.WriteEvent(ctx, e); err != nil {
		s.warn.Warn(ctx, "audit write failed", logger.Error(err))
		return false
	}
	return true
}

// Run is a handle on one in-flight replay run.
type Run struct {
	events <-chan model.Event
	abort  func()

	done chan struct{}
	sum  model.Summary
	err  error
}

// Events returns the UI event stream. It is closed when the run ends.
func (r *Run) Events() <-chan model.Event { return r.events }

// Abort requests a stop at the next safe checkpoint.
func (r *Run) Abort() { r.abort() }

// Wait blocks until the run ends and returns its summary.
func (r *Run) Wait() (model.Summary, error) {
	<-r.done
	return r.sum, r.err
}

// StartRun launches the replay over b in the background and returns its
// handle. Events are written to the audit trail as they happen; keys that
// exhaust their attempts land on the missing-XML ledger.
func (s *Service) StartRun(ctx context.Context, b *batch.Batch) (*Run, error) {
	if err := s.openDesktop(ctx); err != nil {
		return nil, err
	}

	bus := eventbus.New()
	eng := replay.New(s.caps.Pointer, s.caps.Detector, s.store, s.sched,
		replay.WithSink(bus),
		replay.WithMaxAttempts(s.cfg.MaxAttempts),
		replay.WithLogger(s.log.Named("replay")),
	)

	uiCh := make(chan model.Event, 256)
	run := &Run{events: uiCh, abort: eng.Abort, done: make(chan struct{})}

	// Audit consumer: persist every event, keep the ledger, feed the UI.
	// Detached from ctx: it drains until the engine closes the bus.
	go func() {
		defer close(uiCh)
		bctx := context.Background()
		for e := range bus.Subscribe(bctx) {
			if err := s.audit.WriteEvent(bctx, e); err != nil {
				s.log.Warn(bctx, "audit write failed", logger.Error(err))
			}
			if e.Kind == model.EventKeyDone && e.Outcome == model.OutcomeFailure {
				if err := s.audit.RecordMissing(bctx, e.Key); err != nil {
					s.log.Warn(bctx, "missing ledger write failed", logger.Error(err))
				}
			}
			select {
			case uiCh <- e:
			default: // UI lagging; the audit trail stays complete
			}
		}
	}()

	go func() {
		defer close(run.done)
		defer func() { _ = bus.Close() }()
		run.sum, run.err = eng.Run(ctx, b)
	}()

	return run, nil
}
