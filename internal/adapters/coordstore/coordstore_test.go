package coordstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KevymLuccas/hbmxml/internal/adapters/coordstore"
	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store on a fresh path", t, func() {
		path := filepath.Join(t.TempDir(), "positions.json")
		s := coordstore.New(coordstore.WithPath(path))

		Convey("Load on a missing file returns an empty mapping", func() {
			steps, err := s.Load(ctx)
			So(err, ShouldBeNil)
			So(steps, ShouldBeEmpty)

			done, err := s.Complete(ctx)
			So(err, ShouldBeNil)
			So(done, ShouldBeFalse)
		})

		Convey("Save then Load round-trips one step", func() {
			So(s.Save(ctx, 3, 120, 450), ShouldBeNil)

			steps, err := s.Load(ctx)
			So(err, ShouldBeNil)
			So(steps[3], ShouldResemble, model.RecordedStep{Step: 3, X: 120, Y: 450})
		})

		Convey("Save overwrites a prior value for the same step", func() {
			So(s.Save(ctx, 1, 10, 20), ShouldBeNil)
			So(s.Save(ctx, 1, 30, 40), ShouldBeNil)

			steps, err := s.Load(ctx)
			So(err, ShouldBeNil)
			So(len(steps), ShouldEqual, 1)
			So(steps[1], ShouldResemble, model.RecordedStep{Step: 1, X: 30, Y: 40})
		})

		Convey("Complete is true only when all steps are present", func() {
			for step := 1; step < model.StepCount; step++ {
				So(s.Save(ctx, step, step*10, step*20), ShouldBeNil)
			}
			done, err := s.Complete(ctx)
			So(err, ShouldBeNil)
			So(done, ShouldBeFalse)

			So(s.Save(ctx, model.StepCount, 70, 140), ShouldBeNil)
			done, err = s.Complete(ctx)
			So(err, ShouldBeNil)
			So(done, ShouldBeTrue)
		})

		Convey("Save rejects out-of-range steps", func() {
			So(errors.Is(s.Save(ctx, 0, 1, 1), coordstore.ErrInvalidStep), ShouldBeTrue)
			So(errors.Is(s.Save(ctx, model.StepCount+1, 1, 1), coordstore.ErrInvalidStep), ShouldBeTrue)
		})
	})

	Convey("Given a corrupt coordinates file", t, func() {
		path := filepath.Join(t.TempDir(), "positions.json")
		So(os.WriteFile(path, []byte("{nope"), 0o644), ShouldBeNil)
		s := coordstore.New(coordstore.WithPath(path))

		Convey("Load surfaces the corruption", func() {
			_, err := s.Load(ctx)
			So(errors.Is(err, coordstore.ErrCorruptFile), ShouldBeTrue)
		})
	})
}
