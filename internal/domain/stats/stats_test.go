package stats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/stats"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func day(d int) time.Time { return time.Date(2026, time.September, d, 10, 0, 0, 0, time.UTC) }

func ptr(f float64) *float64 { return &f }

type fakeRoster struct {
	classes  []model.Class
	students []model.Student
	err      error
}

func (f *fakeRoster) Classes(ctx context.Context, league string) ([]model.Class, error) {
	return f.classes, f.err
}

func (f *fakeRoster) Students(ctx context.Context, league, classID string) ([]model.Student, error) {
	if classID == "" {
		return f.students, f.err
	}
	var out []model.Student
	for _, s := range f.students {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	return out, f.err
}

type fakeLogs struct{ logs []model.LogRecord }

func (f *fakeLogs) MonthlyLogs(ctx context.Context, year int, month time.Month) ([]model.LogRecord, error) {
	return f.logs, nil
}

type fakeTrials struct {
	trials []model.TrialRecord
	calls  int
}

func (f *fakeTrials) TrialsForScope(ctx context.Context, scopeID string, month model.MonthKey) ([]model.TrialRecord, error) {
	f.calls++
	return f.trials, nil
}

func TestBuildHero(t *testing.T) {
	Convey("Given a month of hero logs and trials", t, func() {
		month, _ := model.ParseMonthKey("2026-09")
		students := []model.Student{{ID: "s1", Name: "Ada"}, {ID: "s2", Name: "Bo"}, {ID: "s3", Name: "Cy"}}
		logs := []model.LogRecord{
			{EntityID: "s1", Amount: 3, ReasonTag: "focus", Date: day(1)},
			{EntityID: "s1", Amount: 2, ReasonTag: "focus", Date: day(2)},
			{EntityID: "s1", Amount: 1, ReasonTag: " ", Date: day(3)},
			{EntityID: "s1", Amount: 5, ReasonTag: "teamwork", Date: day(4)},
			{EntityID: "s2", Amount: 2.5, ReasonTag: "kindness", Date: day(5)},
			{EntityID: "s2", Amount: 4, Date: time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)},
			{EntityID: "ghost", Amount: 9, Date: day(6)},
		}
		trials := []model.TrialRecord{
			{EntityID: "s1", Date: day(10), NumericScore: ptr(8), MaxScore: ptr(10)},
			{EntityID: "s1", Date: day(11), QualitativeTier: "Excellent"},
			{EntityID: "s1", Date: day(12), QualitativeTier: "good"},
			{EntityID: "s2", Date: day(12), NumericScore: ptr(5), MaxScore: ptr(0)},
		}

		out := stats.BuildHero(students, logs, trials, month)

		Convey("Then it should keep roster order", func() {
			So(len(out), ShouldEqual, 3)
			So(out[0].ID, ShouldEqual, "s1")
			So(out[2].ID, ShouldEqual, "s3")
		})

		Convey("Then it should sum stars and threshold counts", func() {
			So(out[0].PrimaryScore, ShouldEqual, 11)
			So(out[0].Count3Star, ShouldEqual, 2)
			So(out[0].Count2Star, ShouldEqual, 1)
			So(out[0].UniqueReasonCount, ShouldEqual, 2)
			So(out[1].PrimaryScore, ShouldEqual, 2.5)
			So(out[1].Count2Star, ShouldEqual, 1)
		})

		Convey("Then it should average normalized trials", func() {
			So(out[0].AcademicAverage, ShouldEqual, 90)
			So(out[1].AcademicAverage, ShouldEqual, 0)
		})

		Convey("Then idle students default to zero", func() {
			So(out[2], ShouldResemble, model.EntrySummary{ID: "s3", DisplayName: "Cy"})
		})
	})
}

func TestBuildHero_MonthBoundaryInLocalZone(t *testing.T) {
	Convey("Given records near the month boundary read back in a western zone", t, func() {
		month, _ := model.ParseMonthKey("2026-09")
		ny := time.FixedZone("EDT", -4*60*60)
		students := []model.Student{{ID: "s1", Name: "Ada"}}
		logs := []model.LogRecord{
			{EntityID: "s1", Amount: 3, ReasonTag: "focus", Date: time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC).In(ny)},
			{EntityID: "s1", Amount: 4, ReasonTag: "late", Date: time.Date(2026, 10, 1, 1, 0, 0, 0, time.UTC).In(ny)},
		}
		trials := []model.TrialRecord{
			{EntityID: "s1", Date: time.Date(2026, 9, 1, 0, 30, 0, 0, time.UTC).In(ny), QualitativeTier: "Excellent"},
		}

		out := stats.BuildHero(students, logs, trials, month)

		Convey("Then records count toward their UTC month", func() {
			So(len(out), ShouldEqual, 1)
			So(out[0].PrimaryScore, ShouldEqual, 3)
			So(out[0].Count3Star, ShouldEqual, 1)
			So(out[0].AcademicAverage, ShouldEqual, 100)
		})
	})
}

func TestBuildTeam(t *testing.T) {
	Convey("Given classes with members and logs", t, func() {
		month, _ := model.ParseMonthKey("2026-09")
		classes := []model.Class{{ID: "c1", Name: "Owls"}, {ID: "c2", Name: "Foxes"}, {ID: "c3", Name: "Empty"}}
		students := []model.Student{
			{ID: "a", ClassID: "c1"}, {ID: "b", ClassID: "c1"}, {ID: "c", ClassID: "c1"},
			{ID: "d", ClassID: "c1"}, {ID: "e", ClassID: "c2"},
		}
		logs := []model.LogRecord{
			{EntityID: "a", Amount: 30, Date: day(1)},
			{EntityID: "d", Amount: 6, Date: day(2)},
			{EntityID: "e", Amount: 15, Date: day(3)},
		}
		goal := stats.Goal{Floor: 50, PerMember: 18}

		out := stats.BuildTeam(classes, students, logs, month, goal)

		Convey("Then the goal should be the larger of floor and members*baseline", func() {
			So(out[0].RawScore, ShouldEqual, 36)
			So(out[0].ProgressPercent, ShouldEqual, 50) // 36 / 72
			So(out[1].ProgressPercent, ShouldEqual, 30) // 15 / 50
			So(out[0].PrimaryScore, ShouldEqual, out[0].ProgressPercent)
		})

		Convey("Then memberless classes still appear with zero", func() {
			So(out[2].RawScore, ShouldEqual, 0)
			So(out[2].ProgressPercent, ShouldEqual, 0)
		})
	})
}

func TestNormalizeTrial(t *testing.T) {
	Convey("Given trial records", t, func() {
		s, ok := stats.NormalizeTrial(model.TrialRecord{NumericScore: ptr(17), MaxScore: ptr(20)})
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, 85)

		s, ok = stats.NormalizeTrial(model.TrialRecord{QualitativeTier: model.QualitativeExcellent})
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, 100)

		_, ok = stats.NormalizeTrial(model.TrialRecord{NumericScore: ptr(3)})
		So(ok, ShouldBeFalse)
	})
}

func TestAggregator_Summaries(t *testing.T) {
	Convey("Given an aggregator over fake sources", t, func() {
		ctx := context.Background()
		month, _ := model.ParseMonthKey("2026-09")
		roster := &fakeRoster{
			classes:  []model.Class{{ID: "c1", Name: "Owls"}},
			students: []model.Student{{ID: "s1", Name: "Ada", ClassID: "c1"}, {ID: "s2", Name: "Bo", ClassID: "c2"}},
		}
		logs := &fakeLogs{logs: []model.LogRecord{{EntityID: "s1", Amount: 3, Date: day(3)}}}
		trials := &fakeTrials{trials: []model.TrialRecord{{EntityID: "s1", Date: day(4), QualitativeTier: "excellent"}}}
		agg := stats.NewAggregator(roster, logs, trials, stats.WithTeamGoal(10, 5))

		Convey("When summarizing a single class hero ceremony", func() {
			out, err := agg.Summaries(ctx, month, model.KindHero, stats.Scope{League: "gold", ClassID: "c1"})

			Convey("Then academics should be computed for the class", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 1)
				So(out[0].AcademicAverage, ShouldEqual, 100)
				So(trials.calls, ShouldEqual, 1)
			})
		})

		Convey("When summarizing a league-wide hero ceremony", func() {
			out, err := agg.Summaries(ctx, month, model.KindHero, stats.Scope{League: "gold"})

			Convey("Then trials should not be fetched", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				So(out[0].AcademicAverage, ShouldEqual, 0)
				So(trials.calls, ShouldEqual, 0)
			})
		})

		Convey("When summarizing teams", func() {
			out, err := agg.Summaries(ctx, month, model.KindTeam, stats.Scope{League: "gold"})
			So(err, ShouldBeNil)
			So(out[0].ProgressPercent, ShouldEqual, 30) // 3 / max(10, 1*5)
		})

		Convey("When the league is missing", func() {
			_, err := agg.Summaries(ctx, month, model.KindTeam, stats.Scope{})
			So(errors.Is(err, stats.ErrNoLeague), ShouldBeTrue)
		})

		Convey("When the roster fails", func() {
			roster.err = errors.New("boom")
			_, err := agg.Summaries(ctx, month, model.KindHero, stats.Scope{League: "gold"})
			So(errors.Is(err, stats.ErrFetchData), ShouldBeTrue)
		})

		Convey("When the roster is empty", func() {
			roster.classes, roster.students = nil, nil
			out, err := agg.Summaries(ctx, month, model.KindTeam, stats.Scope{League: "gold"})
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})
	})
}
