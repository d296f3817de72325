package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/KevymLuccas/hbmxml/internal/app"
	"github.com/KevymLuccas/hbmxml/internal/config"
	"github.com/KevymLuccas/hbmxml/internal/domain/batch"
	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	"github.com/KevymLuccas/hbmxml/internal/replay"
	"github.com/KevymLuccas/hbmxml/internal/simulate"
	"github.com/KevymLuccas/hbmxml/internal/tui"
	"github.com/KevymLuccas/hbmxml/pkg/logger"
	"github.com/KevymLuccas/hbmxml/pkg/metrics"
)

// Metrics HTTP server timeouts.
const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to a YAML config file")
		calibrate    = flag.Bool("calibrate", false, "record the click positions and exit")
		importPath   = flag.String("import", "", "xlsx file with one access key per row")
		retryMissing = flag.Bool("retry-missing", false, "run the keys on the missing-XML ledger")
		exportPath   = flag.String("export", "", "write keys that still failed to this xlsx file")
		dryRun       = flag.Bool("dry-run", false, "replay against a simulated desktop, no browser")
	)
	flag.Parse()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Session log doubles as the terminal stream; the TUI owns the screen
	// during replay, so everything also lands in the file.
	if err := logger.Init(logger.WithFile(cfg.SessionLogPath)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{app.WithLogger(log)}
	if *dryRun {
		desk := simulate.New()
		opts = append(opts, app.WithCapabilities(app.Capabilities{
			Pointer:    desk,
			Detector:   desk,
			Positioner: desk,
		}))
	}
	svc := app.New(cfg, opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer svc.Stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	if err := run(ctx, svc, *calibrate, *importPath, *retryMissing, *exportPath); err != nil {
		if !errors.Is(err, replay.ErrAborted) {
			log.Error(ctx, "session failed", logger.Error(err))
			os.Exit(1)
		}
		log.Info(ctx, "session aborted by operator")
	}
}

func run(ctx context.Context, svc *app.Service, calibrate bool, importPath string, retryMissing bool, exportPath string) error {
	if calibrate {
		return runCalibration(ctx, svc)
	}

	var (
		b   *batch.Batch
		err error
	)
	switch {
	case importPath != "":
		b, err = svc.ImportBatch(ctx, importPath)
	case retryMissing:
		b, err = svc.RetryMissing(ctx)
	default:
		flag.Usage()
		return errors.New("nothing to do: pass -calibrate, -import, or -retry-missing")
	}
	if err != nil {
		return err
	}

	ok, err := svc.Calibrated(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no recorded positions yet; run with -calibrate first")
	}

	sum, err := runSession(ctx, svc, b)
	if err != nil && !errors.Is(err, replay.ErrAborted) {
		return err
	}
	printSummary(sum)

	if exportPath != "" && len(sum.FailedKeys) > 0 {
		failed := batch.New()
		for _, k := range sum.FailedKeys {
			if addErr := failed.Add(k); addErr != nil {
				return addErr
			}
		}
		if expErr := svc.ExportBatch(ctx, exportPath, failed); expErr != nil {
			return expErr
		}
		fmt.Printf("failed keys written to %s\n", exportPath)
	}
	return err
}

// runSession drives the replay while the terminal shows the session view.
// The engine keeps running even if the view errors out; the view's abort
// callback is the only way it steers the run.
func runSession(ctx context.Context, svc *app.Service, b *batch.Batch) (model.Summary, error) {
	run, err := svc.StartRun(ctx, b)
	if err != nil {
		return model.Summary{}, err
	}

	view := tui.NewSession(b.Len(), run.Events(), run.Abort)
	if _, err := tea.NewProgram(view, tea.WithContext(ctx)).Run(); err != nil {
		// Headless terminal or TUI failure: drain events so the run
		// and its audit trail still finish.
		for range run.Events() {
		}
	}
	return run.Wait()
}

func runCalibration(ctx context.Context, svc *app.Service) error {
	rec, err := svc.NewCalibration(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Calibration: place the pointer on each control, then press Enter.")
	in := bufio.NewScanner(os.Stdin)
	for !rec.Done() {
		fmt.Printf("  step %d/%d: %s ", rec.Step(), model.StepCount, rec.Instruction())
		if !in.Scan() {
			return errors.New("calibration interrupted")
		}
		pos, err := rec.CaptureCurrent(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  recorded (%d, %d)\n", pos.X, pos.Y)
	}
	fmt.Println("All positions recorded.")
	return nil
}

func printSummary(sum model.Summary) {
	fmt.Printf("run %s: %d key(s), %d ok, %d failed, %d aborted\n",
		sum.RunID, sum.Total, sum.Succeeded, sum.Failed, sum.Aborted)
	for _, k := range sum.FailedKeys {
		fmt.Printf("  missing XML: %s\n", k)
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Get().Warn(context.Background(), "metrics server failed", logger.Error(err))
	}
}
