package ceremony

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/domain/model"
)

func TestShowdown(t *testing.T) {
	convey.Convey("Given a team showdown", t, func() {
		s := NewShowdown(model.KindTeam,
			[]model.EntrySummary{entry("c2", 80)},
			[]model.EntrySummary{entry("c1", 95), entry("c3", 95)},
		)

		convey.Convey("Hidden slots carry ranks but no identities", func() {
			hidden := s.Hidden()
			convey.So(hidden, convey.ShouldHaveLength, 3)
			convey.So(hidden[0].Rank, convey.ShouldEqual, 2)
			convey.So(hidden[2].Rank, convey.ShouldEqual, 1)
			convey.So(hidden[1].Entry, convey.ShouldBeNil)
		})

		convey.Convey("The winner is revealed once", func() {
			r, ok := s.RevealWinner()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(s.Revealed(), convey.ShouldBeTrue)
			convey.So(r.Winners[0].Entry.ID, convey.ShouldEqual, "c1")
			convey.So(r.Winners[1].Entry.ID, convey.ShouldEqual, "c3")
			convey.So(r.RunnersUp[0].Entry.ID, convey.ShouldEqual, "c2")
			convey.So(r.ShowGlobalStandings, convey.ShouldBeFalse)

			_, again := s.RevealWinner()
			convey.So(again, convey.ShouldBeFalse)
		})
	})
}
