package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/KevymLuccas/hbmxml/internal/app"
	"github.com/KevymLuccas/hbmxml/internal/config"
	"github.com/KevymLuccas/hbmxml/internal/domain/batch"
	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	"github.com/KevymLuccas/hbmxml/internal/domain/schedule"
	"github.com/KevymLuccas/hbmxml/internal/simulate"
	"github.com/KevymLuccas/hbmxml/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	dir := t.TempDir()
	cfg.DataDir = dir
	cfg.DownloadDir = filepath.Join(dir, "xml")
	cfg.CoordinatesPath = filepath.Join(dir, "positions.json")
	cfg.SessionLogPath = filepath.Join(dir, "session.log")
	cfg.AuditLogPath = filepath.Join(dir, "audit.log")
	cfg.MissingLogPath = filepath.Join(dir, "missing.log")
	return cfg
}

func fastSchedule() *schedule.Schedule {
	opts := []schedule.Option{schedule.WithBetweenInvoices(time.Millisecond)}
	for step := 1; step <= model.StepCount; step++ {
		opts = append(opts, schedule.WithStepDwell(step, time.Millisecond))
	}
	return schedule.New(opts...)
}

func newService(t *testing.T, desk *simulate.Desk) (*app.Service, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	svc := app.New(cfg,
		app.WithCapabilities(app.Capabilities{
			Pointer:    desk,
			Detector:   desk,
			Positioner: desk,
		}),
		app.WithSchedule(fastSchedule()),
	)
	return svc, cfg
}

func calibrate(ctx context.Context, t *testing.T, svc *app.Service, desk *simulate.Desk) {
	t.Helper()
	rec, err := svc.NewCalibration(ctx)
	if err != nil {
		t.Fatalf("new calibration: %v", err)
	}
	for step := 1; step <= model.StepCount; step++ {
		desk.SetCursor(step*10, step*20)
		if _, err := rec.CaptureCurrent(ctx); err != nil {
			t.Fatalf("capture step %d: %v", step, err)
		}
	}
}

func fileContains(t *testing.T, path, needle string) bool {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Contains(string(data), needle)
}

func TestServiceRun(t *testing.T) {
	ctx := context.Background()

	goodKey := strings.Repeat("1", 44)
	badKey := strings.Repeat("2", 44)

	Convey("Given a calibrated service over the simulation desk", t, func() {
		desk := simulate.New(simulate.WithFailingKey(badKey))
		svc, cfg := newService(t, desk)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		calibrate(ctx, t, svc, desk)

		ok, err := svc.Calibrated(ctx)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		b := batch.New()
		So(b.Add(goodKey), ShouldBeNil)
		So(b.Add(badKey), ShouldBeNil)

		Convey("A run processes every key and settles the summary", func() {
			run, err := svc.StartRun(ctx, b)
			So(err, ShouldBeNil)

			var kinds []model.EventKind
			for e := range run.Events() {
				kinds = append(kinds, e.Kind)
			}
			sum, runErr := run.Wait()
			So(runErr, ShouldBeNil)
			So(sum.Succeeded, ShouldEqual, 1)
			So(sum.Failed, ShouldEqual, 1)
			So(sum.FailedKeys, ShouldResemble, []string{badKey})
			So(kinds, ShouldContain, model.EventKeyDone)

			Convey("The failed key lands on the missing-XML ledger", func() {
				retry, err := svc.RetryMissing(ctx)
				So(err, ShouldBeNil)
				So(retry.Len(), ShouldEqual, 1)
				So(retry.Keys()[0].String(), ShouldEqual, badKey)

				Convey("and the ledger is cleared once loaded", func() {
					_, err := svc.RetryMissing(ctx)
					So(err, ShouldEqual, app.ErrNoMissingKeys)
				})
			})

			Convey("The audit trail recorded the run", func() {
				// Written by the consumer goroutine before Events closed.
				So(fileContains(t, cfg.AuditLogPath, badKey), ShouldBeTrue)
				So(fileContains(t, cfg.AuditLogPath, "run "), ShouldBeTrue)
			})
		})
	})
}

func TestServiceSpreadsheetRoundTrip(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service and a batch of keys", t, func() {
		desk := simulate.New()
		svc, cfg := newService(t, desk)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		b := batch.New()
		So(b.Add(strings.Repeat("3", 44)), ShouldBeNil)
		So(b.Add("0"+strings.Repeat("4", 43)), ShouldBeNil)

		Convey("Export then import preserves keys and order", func() {
			path := filepath.Join(cfg.DataDir, "keys.xlsx")
			So(svc.ExportBatch(ctx, path, b), ShouldBeNil)

			got, err := svc.ImportBatch(ctx, path)
			So(err, ShouldBeNil)
			So(got.Len(), ShouldEqual, 2)
			So(got.Keys()[1].String(), ShouldEqual, "0"+strings.Repeat("4", 43))
		})
	})
}

func TestServiceRetryMissingEmpty(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with an empty ledger", t, func() {
		desk := simulate.New()
		svc, _ := newService(t, desk)

		Convey("RetryMissing reports there is nothing to do", func() {
			_, err := svc.RetryMissing(ctx)
			So(err, ShouldEqual, app.ErrNoMissingKeys)
		})
	})
}
