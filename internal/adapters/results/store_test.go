package results_test

import (
	"context"
	"testing"
	"time"

	"github.com/KevymLuccas/hbmxml/internal/adapters/results"
	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a run over three keys", t, func() {
		s := results.NewRun(3)
		So(s.RunID(), ShouldNotBeEmpty)

		now := time.Now()
		record := func(key string, attempt int, outcome model.Outcome) {
			s.RecordAttempt(ctx, model.AttemptResult{
				Key: key, Attempt: attempt, Outcome: outcome, At: now,
			})
		}

		Convey("When one key fails every attempt", func() {
			record("k1", 1, model.OutcomeSuccess)
			s.MarkKeyDone(ctx, "k1", model.OutcomeSuccess)

			record("k2", 1, model.OutcomeFailure)
			record("k2", 2, model.OutcomeFailure)
			record("k2", 3, model.OutcomeFailure)
			s.MarkKeyDone(ctx, "k2", model.OutcomeFailure)

			record("k3", 1, model.OutcomeSuccess)
			s.MarkKeyDone(ctx, "k3", model.OutcomeSuccess)

			Convey("The summary counts outcomes and lists failed keys", func() {
				sum := s.Summary(ctx)
				So(sum.RunID, ShouldEqual, s.RunID())
				So(sum.Total, ShouldEqual, 3)
				So(sum.Succeeded, ShouldEqual, 2)
				So(sum.Failed, ShouldEqual, 1)
				So(sum.Aborted, ShouldEqual, 0)
				So(sum.FailedKeys, ShouldResemble, []string{"k2"})
			})

			Convey("All intermediate attempts stay on record", func() {
				So(len(s.Attempts(ctx, "k2")), ShouldEqual, 3)
				So(s.Attempts(ctx, "k2")[1].Attempt, ShouldEqual, 2)
			})
		})

		Convey("When a key is aborted", func() {
			record("k1", 1, model.OutcomeAborted)
			s.MarkKeyDone(ctx, "k1", model.OutcomeAborted)

			sum := s.Summary(ctx)
			So(sum.Aborted, ShouldEqual, 1)
			So(sum.Succeeded, ShouldEqual, 0)
		})

		Convey("The first final outcome for a key stands", func() {
			s.MarkKeyDone(ctx, "k1", model.OutcomeFailure)
			s.MarkKeyDone(ctx, "k1", model.OutcomeSuccess)

			sum := s.Summary(ctx)
			So(sum.Failed, ShouldEqual, 1)
			So(sum.Succeeded, ShouldEqual, 0)
		})
	})
}
