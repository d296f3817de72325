package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KevymLuccas/hbmxml/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given no file and no env overrides", t, func() {
		cfg, err := config.Load(ctx, "")
		So(err, ShouldBeNil)

		Convey("Defaults apply and derived paths hang off the data dir", func() {
			So(cfg.Speed, ShouldEqual, 3)
			So(cfg.MaxAttempts, ShouldEqual, 3)
			So(cfg.BetweenInvoices(), ShouldEqual, 2*time.Second)
			So(cfg.DetectTimeout(), ShouldEqual, 10*time.Second)
			So(cfg.DownloadDir, ShouldEqual, filepath.Join(".", "xml"))
			So(cfg.CoordinatesPath, ShouldEqual, filepath.Join(".", "positions.json"))
		})
	})

	Convey("Given a YAML config file", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte("speed: 5\ndata_dir: /tmp/hbm\nheadless: true\n"), 0o644), ShouldBeNil)

		cfg, err := config.Load(ctx, path)
		So(err, ShouldBeNil)

		Convey("File values override defaults", func() {
			So(cfg.Speed, ShouldEqual, 5)
			So(cfg.Headless, ShouldBeTrue)
			So(cfg.AuditLogPath, ShouldEqual, filepath.Join("/tmp/hbm", "audit.log"))
		})
	})

	Convey("Given env overrides", t, func() {
		t.Setenv("HBMXML_SPEED", "1")
		t.Setenv("HBMXML_MAX_ATTEMPTS", "2")

		cfg, err := config.Load(ctx, "")
		So(err, ShouldBeNil)

		Convey("Env wins over defaults", func() {
			So(cfg.Speed, ShouldEqual, 1)
			So(cfg.MaxAttempts, ShouldEqual, 2)
		})
	})

	Convey("Given invalid values", t, func() {
		Convey("An out-of-range speed is rejected", func() {
			t.Setenv("HBMXML_SPEED", "9")
			_, err := config.Load(ctx, "")
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("A missing config file is a load error", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "absent.yaml"))
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}
