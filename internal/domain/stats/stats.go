// Package stats turns a month of raw activity into one summary per competitor.
package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Default team goal configuration.
const (
	defaultGoalFloor     = 60.0
	defaultGoalPerMember = 18.0

	threeStarThreshold = 3
	twoStarThreshold   = 2
	percent            = 100.0
)

// Roster lists the competing entities of a league.
type Roster interface {
	Classes(ctx context.Context, league string) ([]model.Class, error)
	// Students returns the students of a league, narrowed to one class when
	// classID is not empty.
	Students(ctx context.Context, league, classID string) ([]model.Student, error)
}

// LogSource fetches raw star logs for a calendar month.
type LogSource interface {
	MonthlyLogs(ctx context.Context, year int, month time.Month) ([]model.LogRecord, error)
}

// TrialSource fetches assessed trials. An empty scopeID means every class.
type TrialSource interface {
	TrialsForScope(ctx context.Context, scopeID string, month model.MonthKey) ([]model.TrialRecord, error)
}

// Scope is a league optionally narrowed to a single class.
type Scope struct {
	League  string
	ClassID string
}

// Global reports whether the scope covers the whole league.
func (s Scope) Global() bool { return s.ClassID == "" }

// Goal configures the monthly star target of a class.
type Goal struct {
	Floor     float64
	PerMember float64
}

// For returns max(Floor, members*PerMember).
func (g Goal) For(members int) float64 {
	return max(g.Floor, float64(members)*g.PerMember)
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithTeamGoal sets the class goal parameters.
func WithTeamGoal(floor, perMember float64) Option {
	return func(a *Aggregator) {
		if floor > 0 {
			a.goal.Floor = floor
		}
		if perMember > 0 {
			a.goal.PerMember = perMember
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// Aggregator produces EntrySummary rows from collaborator data.
type Aggregator struct {
	roster Roster
	logs   LogSource
	trials TrialSource
	goal   Goal
	logger logger.Logger
}

// NewAggregator creates an aggregator over the given sources.
func NewAggregator(roster Roster, logs LogSource, trials TrialSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		roster: roster,
		logs:   logs,
		trials: trials,
		goal:   Goal{Floor: defaultGoalFloor, PerMember: defaultGoalPerMember},
		logger: logger.Get().Named("stats"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summaries fetches the month's data for scope and folds it into summaries
// in roster order. An empty result means there is nothing to celebrate.
func (a *Aggregator) Summaries(ctx context.Context, month model.MonthKey, kind model.CompetitionKind, scope Scope) ([]model.EntrySummary, error) {
	if strings.TrimSpace(scope.League) == "" {
		return nil, ErrNoLeague
	}
	start := time.Now()
	defer func() {
		metrics.RecordStandingsLatency(string(kind), float64(time.Since(start).Milliseconds()))
	}()

	switch kind {
	case model.KindTeam:
		return a.teamSummaries(ctx, month, scope)
	case model.KindHero:
		return a.heroSummaries(ctx, month, scope)
	default:
		return nil, fmt.Errorf("summaries: %w: %q", model.ErrUnknownKind, kind)
	}
}

func (a *Aggregator) teamSummaries(ctx context.Context, month model.MonthKey, scope Scope) ([]model.EntrySummary, error) {
	var (
		classes  []model.Class
		students []model.Student
		logs     []model.LogRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		classes, err = a.roster.Classes(gctx, scope.League)
		return wrapFetch("classes", err)
	})
	g.Go(func() (err error) {
		students, err = a.roster.Students(gctx, scope.League, "")
		return wrapFetch("students", err)
	})
	g.Go(func() (err error) {
		logs, err = a.logs.MonthlyLogs(gctx, month.Year(), month.Month())
		return wrapFetch("logs", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := BuildTeam(classes, students, logs, month, a.goal)
	a.logger.Debug(ctx, "team summaries built",
		logger.String("league", scope.League),
		logger.String("month", month.String()),
		logger.Int("classes", len(out)),
	)
	return out, nil
}

func (a *Aggregator) heroSummaries(ctx context.Context, month model.MonthKey, scope Scope) ([]model.EntrySummary, error) {
	var (
		students []model.Student
		logs     []model.LogRecord
		trials   []model.TrialRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = a.roster.Students(gctx, scope.League, scope.ClassID)
		return wrapFetch("students", err)
	})
	g.Go(func() (err error) {
		logs, err = a.logs.MonthlyLogs(gctx, month.Year(), month.Month())
		return wrapFetch("logs", err)
	})
	// Academic averages are only computed for a single class; league-wide
	// ceremonies skip the trial fetch.
	if !scope.Global() && a.trials != nil {
		g.Go(func() (err error) {
			trials, err = a.trials.TrialsForScope(gctx, scope.ClassID, month)
			return wrapFetch("trials", err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := BuildHero(students, logs, trials, month)
	a.logger.Debug(ctx, "hero summaries built",
		logger.String("league", scope.League),
		logger.String("class", scope.ClassID),
		logger.String("month", month.String()),
		logger.Int("students", len(out)),
		logger.Int("trials", len(trials)),
	)
	return out, nil
}

func wrapFetch(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrFetchData, what, err)
}

// BuildTeam sums member stars per class. Logs outside month or from students
// not in the roster are ignored.
func BuildTeam(classes []model.Class, students []model.Student, logs []model.LogRecord, month model.MonthKey, goal Goal) []model.EntrySummary {
	if len(classes) == 0 {
		return nil
	}
	classOf := make(map[string]string, len(students))
	members := make(map[string]int, len(classes))
	for _, s := range students {
		classOf[s.ID] = s.ClassID
		members[s.ClassID]++
	}
	stars := make(map[string]float64, len(classes))
	for _, l := range logs {
		if !month.Contains(l.Date) {
			continue
		}
		if classID, ok := classOf[l.EntityID]; ok {
			stars[classID] += l.Amount
		}
	}

	out := make([]model.EntrySummary, 0, len(classes))
	for _, c := range classes {
		raw := max(0, stars[c.ID])
		progress := raw * percent / goal.For(members[c.ID])
		out = append(out, model.EntrySummary{
			ID:              c.ID,
			DisplayName:     c.Name,
			AvatarRef:       c.AvatarRef,
			PrimaryScore:    progress,
			ProgressPercent: progress,
			RawScore:        raw,
		})
	}
	return out
}

// heroTally accumulates one student's month.
type heroTally struct {
	stars    float64
	three    int
	two      int
	reasons  map[string]struct{}
	trialSum float64
	trialN   int
}

// BuildHero folds logs and trials into per-student summaries. A nil trials
// slice leaves AcademicAverage at zero.
func BuildHero(students []model.Student, logs []model.LogRecord, trials []model.TrialRecord, month model.MonthKey) []model.EntrySummary {
	if len(students) == 0 {
		return nil
	}
	tallies := make(map[string]*heroTally, len(students))
	for _, s := range students {
		tallies[s.ID] = &heroTally{reasons: make(map[string]struct{})}
	}

	for _, l := range logs {
		t, ok := tallies[l.EntityID]
		if !ok || !month.Contains(l.Date) {
			continue
		}
		t.stars += l.Amount
		switch {
		case l.Amount >= threeStarThreshold:
			t.three++
		case l.Amount >= twoStarThreshold:
			t.two++
		}
		if reason := strings.TrimSpace(l.ReasonTag); reason != "" {
			t.reasons[reason] = struct{}{}
		}
	}

	for _, tr := range trials {
		t, ok := tallies[tr.EntityID]
		if !ok || !month.Contains(tr.Date) {
			continue
		}
		if score, ok := NormalizeTrial(tr); ok {
			t.trialSum += score
			t.trialN++
		}
	}

	out := make([]model.EntrySummary, 0, len(students))
	for _, s := range students {
		t := tallies[s.ID]
		var avg float64
		if t.trialN > 0 {
			avg = t.trialSum / float64(t.trialN)
		}
		out = append(out, model.EntrySummary{
			ID:                s.ID,
			DisplayName:       s.Name,
			AvatarRef:         s.AvatarRef,
			PrimaryScore:      max(0, t.stars),
			Count3Star:        t.three,
			Count2Star:        t.two,
			UniqueReasonCount: len(t.reasons),
			AcademicAverage:   avg,
		})
	}
	return out
}

// NormalizeTrial maps a trial to 0-100. Numeric scores win over a
// qualitative tier; only the "excellent" tier is recognised.
func NormalizeTrial(tr model.TrialRecord) (float64, bool) {
	if tr.NumericScore != nil && tr.MaxScore != nil && *tr.MaxScore > 0 {
		return *tr.NumericScore * percent / *tr.MaxScore, true
	}
	if strings.EqualFold(strings.TrimSpace(tr.QualitativeTier), model.QualitativeExcellent) {
		return percent, true
	}
	return 0, false
}
