package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/KevymLuccas/hbmxml/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSessionModel(t *testing.T) {
	k := strings.Repeat("5", 44)

	Convey("Given a session over two keys", t, func() {
		events := make(chan model.Event, 8)
		aborted := false
		m := NewSession(2, events, func() { aborted = true })

		feed := func(m SessionModel, e model.Event) SessionModel {
			next, _ := m.Update(eventMsg(e))
			return next.(SessionModel)
		}

		Convey("Click events surface the current key, step, and attempt", func() {
			m = feed(m, model.Event{Kind: model.EventClick, Key: k, Step: 3, Attempt: 2})

			view := m.View()
			So(view, ShouldContainSubstring, "5555555555...")
			So(view, ShouldContainSubstring, "step 3/7")
			So(view, ShouldContainSubstring, "attempt 2")
			So(view, ShouldNotContainSubstring, k) // full key never rendered
		})

		Convey("Key completion moves the progress counters", func() {
			m = feed(m, model.Event{Kind: model.EventKeyDone, Key: k, Outcome: model.OutcomeSuccess})
			m = feed(m, model.Event{Kind: model.EventKeyDone, Key: k, Outcome: model.OutcomeFailure})

			view := m.View()
			So(view, ShouldContainSubstring, "2/2 keys")
			So(view, ShouldContainSubstring, "1 ok")
			So(view, ShouldContainSubstring, "1 failed")
		})

		Convey("The abort key triggers the abort callback once", func() {
			next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
			m = next.(SessionModel)
			So(aborted, ShouldBeTrue)
			So(m.View(), ShouldContainSubstring, "ABORTING")

			aborted = false
			next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
			_ = next
			So(aborted, ShouldBeFalse)
		})

		Convey("A closed stream quits the program", func() {
			close(events)
			_, cmd := m.Update(m.waitForEvent()())
			So(cmd, ShouldNotBeNil)
			So(cmd(), ShouldResemble, tea.Quit())
		})

		Convey("The lock banner is shown while running", func() {
			So(m.View(), ShouldContainSubstring, "SCREEN LOCKED")
		})
	})
}
