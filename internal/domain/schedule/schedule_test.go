package schedule_test

import (
	"testing"
	"time"

	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	"github.com/KevymLuccas/hbmxml/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDwell(t *testing.T) {
	Convey("Given a schedule with defaults", t, func() {
		s := schedule.New()

		Convey("Speed defaults to the base level", func() {
			So(s.Speed(), ShouldEqual, schedule.DefaultSpeed)
			So(s.Dwell(model.StepKeyField), ShouldEqual, 1*time.Second)
			So(s.Dwell(model.StepContinue), ShouldEqual, 5*time.Second)
		})

		Convey("Step 7 is the between-invoice interval", func() {
			So(s.Dwell(model.StepReload), ShouldEqual, 2*time.Second)
		})

		Convey("Unknown steps dwell zero", func() {
			So(s.Dwell(0), ShouldEqual, time.Duration(0))
			So(s.Dwell(99), ShouldEqual, time.Duration(0))
		})
	})

	Convey("Given speed levels", t, func() {
		Convey("Lower speed stretches dwells", func() {
			s := schedule.New(schedule.WithSpeed(1))
			So(s.Dwell(model.StepKeyField), ShouldEqual, 2*time.Second)
		})

		Convey("Higher speed compresses dwells", func() {
			s := schedule.New(schedule.WithSpeed(5))
			So(s.Dwell(model.StepContinue), ShouldEqual, 2500*time.Millisecond)
		})

		Convey("Speed is clamped to the valid range", func() {
			So(schedule.New(schedule.WithSpeed(-3)).Speed(), ShouldEqual, schedule.MinSpeed)
			So(schedule.New(schedule.WithSpeed(42)).Speed(), ShouldEqual, schedule.MaxSpeed)
		})

		Convey("Speed does not scale the between-invoice interval", func() {
			s := schedule.New(schedule.WithSpeed(5))
			So(s.Dwell(model.StepReload), ShouldEqual, 2*time.Second)
		})
	})

	Convey("Given overrides", t, func() {
		Convey("A step dwell override wins over speed scaling", func() {
			s := schedule.New(
				schedule.WithSpeed(1),
				schedule.WithStepDwell(model.StepCaptcha, 10*time.Second),
			)
			So(s.Dwell(model.StepCaptcha), ShouldEqual, 10*time.Second)
		})

		Convey("The between-invoice interval is configurable", func() {
			s := schedule.New(schedule.WithBetweenInvoices(7 * time.Second))
			So(s.Dwell(model.StepReload), ShouldEqual, 7*time.Second)
		})
	})
}
