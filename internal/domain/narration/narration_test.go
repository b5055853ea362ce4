package narration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/narration"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type stubNarrator struct {
	text  string
	err   error
	delay time.Duration
}

func (s stubNarrator) Narrate(ctx context.Context, entry *model.EntrySummary, rank int, kind model.CompetitionKind) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func TestTemplate(t *testing.T) {
	Convey("Given the template table", t, func() {
		hero := &model.EntrySummary{DisplayName: "Ada", PrimaryScore: 12}
		team := &model.EntrySummary{DisplayName: "Owls", ProgressPercent: 87.6}

		So(narration.Template(nil, narration.ShowdownRank, model.KindHero), ShouldContainSubstring, "Only two spots remain")
		So(narration.Template(hero, 1, model.KindHero), ShouldEqual, "Champion of the month: Ada with 12 stars!")
		So(narration.Template(team, 2, model.KindTeam), ShouldContainSubstring, "88% of the class goal")
		So(narration.Template(hero, 3, model.KindHero), ShouldContainSubstring, "third place")
		So(narration.Template(hero, 11, model.KindHero), ShouldStartWith, "In 11th place")
		So(narration.Template(hero, 22, model.KindHero), ShouldStartWith, "In 22nd place")
		So(narration.Template(&model.EntrySummary{DisplayName: "Bo", PrimaryScore: 1}, 4, model.KindHero), ShouldContainSubstring, "1 star.")
	})
}

func TestFallback(t *testing.T) {
	Convey("Given a fallback narrator", t, func() {
		ctx := context.Background()
		entry := &model.EntrySummary{DisplayName: "Ada", PrimaryScore: 9}

		Convey("When the primary succeeds", func() {
			f := narration.NewFallback(stubNarrator{text: "  Ada shines!  "})
			text, err := f.Narrate(ctx, entry, 1, model.KindHero)
			So(err, ShouldBeNil)
			So(text, ShouldEqual, "Ada shines!")
		})

		Convey("When the primary fails", func() {
			f := narration.NewFallback(stubNarrator{err: errors.New("quota")})
			text, err := f.Narrate(ctx, entry, 1, model.KindHero)
			So(err, ShouldBeNil)
			So(text, ShouldEqual, narration.Template(entry, 1, model.KindHero))
		})

		Convey("When the primary returns blank text", func() {
			f := narration.NewFallback(stubNarrator{text: "   "})
			text, _ := f.Narrate(ctx, nil, narration.ShowdownRank, model.KindTeam)
			So(text, ShouldEqual, narration.Template(nil, narration.ShowdownRank, model.KindTeam))
		})

		Convey("When the primary is too slow", func() {
			f := narration.NewFallback(stubNarrator{text: "late", delay: time.Second}, narration.WithTimeout(20*time.Millisecond))
			start := time.Now()
			text, err := f.Narrate(ctx, entry, 2, model.KindHero)
			So(err, ShouldBeNil)
			So(text, ShouldEqual, narration.Template(entry, 2, model.KindHero))
			So(time.Since(start), ShouldBeLessThan, 500*time.Millisecond)
		})

		Convey("When there is no primary", func() {
			f := narration.NewFallback(nil)
			text, _ := f.Narrate(ctx, entry, 5, model.KindHero)
			So(text, ShouldStartWith, "In 5th place")
		})
	})
}
