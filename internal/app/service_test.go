package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/ceremony"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var september = model.MustMonthKey(2026, time.September)

func day(d int) time.Time {
	return time.Date(2026, time.September, d, 10, 0, 0, 0, time.UTC)
}

// newStore seeds one junior class of four students with distinct totals.
func newStore() *repository.MemoryStore {
	st := repository.NewMemoryStore()
	st.AddClass(model.Class{ID: "c1", Name: "Falcons", League: "junior"})
	st.AddClass(model.Class{ID: "c2", Name: "Otters", League: "junior"})
	for _, s := range []model.Student{
		{ID: "s1", Name: "Ada", ClassID: "c1", League: "junior"},
		{ID: "s2", Name: "Bo", ClassID: "c1", League: "junior"},
		{ID: "s3", Name: "Cy", ClassID: "c1", League: "junior"},
		{ID: "s4", Name: "Di", ClassID: "c1", League: "junior"},
		{ID: "s5", Name: "Ed", ClassID: "c2", League: "junior"},
	} {
		st.AddStudent(s)
	}
	st.AddLog(model.LogRecord{EntityID: "s1", Amount: 3, ReasonTag: "teamwork", Date: day(2)})
	st.AddLog(model.LogRecord{EntityID: "s1", Amount: 3, ReasonTag: "focus", Date: day(9)})
	st.AddLog(model.LogRecord{EntityID: "s2", Amount: 3, Date: day(4)})
	st.AddLog(model.LogRecord{EntityID: "s3", Amount: 2, Date: day(5)})
	st.AddLog(model.LogRecord{EntityID: "s4", Amount: 1, Date: day(6)})
	st.AddLog(model.LogRecord{EntityID: "s5", Amount: 1, Date: day(6)})
	return st
}

func heroQuery() service.StandingsQuery {
	return service.StandingsQuery{Kind: model.KindHero, League: "junior", Month: september, ScopeID: "c1"}
}

func startedService(st repository.Store) *service.Service {
	svc := service.New(st, service.WithRetryDelay(time.Millisecond))
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(newStore())

		Convey("Then operations fail before Start", func() {
			_, err := svc.Standings(context.Background(), heroQuery())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When started and stopped twice", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it can start again", func() {
				So(svc.Start(ctx), ShouldBeNil)
				defer func() { _ = svc.Stop(ctx) }()
				So(svc.GetStats()["started"], ShouldEqual, true)
			})
		})
	})
}

func TestService_Standings(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService(newStore())
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When hero standings are requested for a class", func() {
			res, err := svc.Standings(ctx, heroQuery())
			So(err, ShouldBeNil)

			Convey("Then groups are ordered best first", func() {
				So(res.Groups, ShouldHaveLength, 4)
				So(res.Groups[0].Rank, ShouldEqual, 1)
				So(res.Groups[0].Entries[0].ID, ShouldEqual, "s1")
				So(res.Groups[3].Entries[0].ID, ShouldEqual, "s4")
			})

			Convey("Then the unwatched ceremony pulses", func() {
				So(svc.GetStats()["pulses"], ShouldResemble, []string{"c1:2026-09:hero"})
			})
		})

		Convey("When team standings are requested league-wide", func() {
			q := service.StandingsQuery{Kind: model.KindTeam, League: "junior", Month: september}
			res, err := svc.Standings(ctx, q)
			So(err, ShouldBeNil)

			Convey("Then every class is ranked", func() {
				So(res.Groups, ShouldHaveLength, 2)
				So(res.Groups[0].Entries[0].ID, ShouldEqual, "c1")
			})
		})

		Convey("When the query is invalid", func() {
			_, kindErr := svc.Standings(ctx, service.StandingsQuery{Kind: "relay", League: "junior", Month: september})
			_, monthErr := svc.Standings(ctx, service.StandingsQuery{Kind: model.KindHero, League: "junior"})

			Convey("Then domain errors are returned", func() {
				So(errors.Is(kindErr, model.ErrUnknownKind), ShouldBeTrue)
				So(errors.Is(monthErr, model.ErrInvalidMonthKey), ShouldBeTrue)
			})
		})
	})
}

func TestService_Ceremony(t *testing.T) {
	Convey("Given a started service with a ranked class", t, func() {
		ctx := context.Background()
		st := newStore()
		svc := startedService(st)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When no ceremony was started", func() {
			_, err := svc.Ceremony(0)
			_, _, advErr := svc.Advance(ctx)

			Convey("Then there is nothing to show", func() {
				So(errors.Is(err, ceremony.ErrNoCeremony), ShouldBeTrue)
				So(errors.Is(advErr, ceremony.ErrNoCeremony), ShouldBeTrue)
			})
		})

		Convey("When a ceremony runs to the end", func() {
			_, _ = svc.Standings(ctx, heroQuery())
			state, step, err := svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: heroQuery()})
			So(err, ShouldBeNil)
			So(state.IsActive, ShouldBeTrue)
			So(step.Kind, ShouldEqual, ceremony.StepStarted)

			var kinds []ceremony.StepKind
			for range 6 {
				s, _, err := svc.Advance(ctx)
				So(err, ShouldBeNil)
				kinds = append(kinds, s.Kind)
			}

			Convey("Then lower ranks come first and the top two share a showdown", func() {
				So(kinds, ShouldResemble, []ceremony.StepKind{
					ceremony.StepPresented,
					ceremony.StepPresented,
					ceremony.StepShowdown,
					ceremony.StepWinnerRevealed,
					ceremony.StepEnded,
					ceremony.StepIgnored,
				})
			})

			Convey("Then the timeline carries every event in order", func() {
				view, err := svc.Ceremony(0)
				So(err, ShouldBeNil)
				So(view.State.IsActive, ShouldBeFalse)
				So(view.Events, ShouldHaveLength, 5)
				So(view.Events[0].Rank, ShouldEqual, 4)
				So(view.Events[0].Cue, ShouldEqual, ceremony.CueDrumroll)
				So(view.Events[2].Type, ShouldEqual, service.EventShowdown)
				So(view.Events[3].Reveal.Winners[0].Entry.ID, ShouldEqual, "s1")
				So(view.Events[4].Type, ShouldEqual, service.EventEnded)

				tail, err := svc.Ceremony(3)
				So(err, ShouldBeNil)
				So(tail.Events, ShouldHaveLength, 2)
				So(tail.Events[0].Seq, ShouldEqual, 4)
			})

			Convey("Then the pulse is cleared", func() {
				So(svc.GetStats()["pulses"], ShouldBeEmpty)
			})

			Convey("Then the same ceremony is refused unless forced", func() {
				_, _, err := svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: heroQuery()})
				So(errors.Is(err, ceremony.ErrAlreadyViewed), ShouldBeTrue)

				state, _, err := svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: heroQuery(), Force: true})
				So(err, ShouldBeNil)
				So(state.IsActive, ShouldBeTrue)
			})

			Convey("Then the viewed flag reaches the store after Stop drains", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				viewed, err := st.IsViewed(ctx, heroQuery().Key())
				So(err, ShouldBeNil)
				So(viewed, ShouldBeTrue)
			})
		})

		Convey("When a second ceremony is started while one is active", func() {
			_, _, err := svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: heroQuery()})
			So(err, ShouldBeNil)
			team := service.StandingsQuery{Kind: model.KindTeam, League: "junior", Month: september}
			_, _, err = svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: team})

			Convey("Then it is refused", func() {
				So(errors.Is(err, ceremony.ErrCeremonyActive), ShouldBeTrue)
			})
		})

		Convey("When the ceremony is skipped", func() {
			_, _, err := svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: heroQuery()})
			So(err, ShouldBeNil)
			first, _, _ := svc.Skip(ctx)
			second, state, _ := svc.Skip(ctx)

			Convey("Then the first skip jumps to the showdown and the second ends", func() {
				So(first.Kind, ShouldEqual, ceremony.StepShowdown)
				So(second.Kind, ShouldEqual, ceremony.StepEnded)
				So(state.IsActive, ShouldBeFalse)
			})
		})

		Convey("When the month has no stars", func() {
			q := heroQuery()
			q.Month = model.MustMonthKey(2026, time.August)
			state, step, err := svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: q})
			So(err, ShouldBeNil)

			Convey("Then the ceremony shows the empty message and ends", func() {
				So(step.Kind, ShouldEqual, ceremony.StepNothingRecorded)
				So(state.IsActive, ShouldBeFalse)
				view, _ := svc.Ceremony(0)
				So(view.Events, ShouldHaveLength, 2)
				So(view.Events[0].Message, ShouldEqual, ceremony.NothingRecordedMessage)
			})
		})

		Convey("When the ceremony is ended explicitly", func() {
			_, _, err := svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: heroQuery()})
			So(err, ShouldBeNil)
			step, state, err := svc.End(ctx)

			Convey("Then it ends once", func() {
				So(err, ShouldBeNil)
				So(step.Kind, ShouldEqual, ceremony.StepEnded)
				So(state.IsActive, ShouldBeFalse)
				again, _, _ := svc.End(ctx)
				So(again.Kind, ShouldEqual, ceremony.StepIgnored)
			})
		})
	})
}

// closingStore records viewed writes that arrive after Close.
type closingStore struct {
	*repository.MemoryStore
	mu        sync.Mutex
	closed    bool
	lateMarks int
}

func (c *closingStore) MarkViewed(ctx context.Context, key model.ViewedKey) error {
	c.mu.Lock()
	if c.closed {
		c.lateMarks++
	}
	c.mu.Unlock()
	return c.MemoryStore.MarkViewed(ctx, key)
}

func (c *closingStore) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *closingStore) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// gateNarrator blocks its first call until release is closed.
type gateNarrator struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gateNarrator) Narrate(ctx context.Context, _ *model.EntrySummary, _ int, _ model.CompetitionKind) (string, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return "Here they come!", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestService_StopWaitsForInflightSteps(t *testing.T) {
	Convey("Given a ceremony step blocked in narration", t, func() {
		ctx := context.Background()
		st := &closingStore{MemoryStore: newStore()}
		gate := &gateNarrator{entered: make(chan struct{}), release: make(chan struct{})}
		svc := service.New(st,
			service.WithRetryDelay(time.Millisecond),
			service.WithNarrator(gate),
			service.WithNarrationTimeout(5*time.Second),
		)
		So(svc.Start(ctx), ShouldBeNil)

		_, _, err := svc.StartCeremony(ctx, service.StartRequest{StandingsQuery: heroQuery()})
		So(err, ShouldBeNil)

		advanced := make(chan ceremony.Step, 1)
		go func() {
			step, _, _ := svc.Advance(ctx)
			advanced <- step
		}()
		<-gate.entered

		step, _, err := svc.End(ctx)
		So(err, ShouldBeNil)
		So(step.Kind, ShouldEqual, ceremony.StepEnded)

		stopped := make(chan error, 1)
		go func() { stopped <- svc.Stop(ctx) }()

		Convey("Then Stop refuses new calls and keeps the store open until the step returns", func() {
			deadline := time.Now().Add(2 * time.Second)
			for {
				if _, err := svc.Ceremony(0); errors.Is(err, service.ErrNotStarted) || time.Now().After(deadline) {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			_, _, err := svc.Skip(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			time.Sleep(50 * time.Millisecond)
			So(st.isClosed(), ShouldBeFalse)

			close(gate.release)
			So((<-advanced).Kind, ShouldEqual, ceremony.StepIgnored)
			So(<-stopped, ShouldBeNil)

			So(st.isClosed(), ShouldBeTrue)
			viewed, _ := st.MemoryStore.IsViewed(ctx, heroQuery().Key())
			So(viewed, ShouldBeTrue)
			So(st.lateMarks, ShouldEqual, 0)
		})
	})
}
