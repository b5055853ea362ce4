// Package ranking orders month summaries and clusters them into dense rank groups.
//
// Hero ordering is stars, then 3-star awards, then 2-star awards, then distinct
// reasons. Inside the podium those game criteria are final: entries that match
// on all of them share a rank and keep fetch order. Below the podium, academic
// average breaks remaining ties and display name fixes placement.
//
// Team ordering is progress percentage, then raw stars.
package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/podium/internal/domain/model"
)

// Default ranking configuration constants.
const (
	defaultEpsilon    = 0.1 // percentage points
	defaultPodiumSize = 3
)

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithEpsilon sets the tolerance used when comparing percentages and averages.
func WithEpsilon(eps float64) Option {
	return func(r *Ranker) {
		if eps > 0 {
			r.epsilon = eps
		}
	}
}

// WithPodiumSize sets how many leading positions ignore academic tie-breaks.
func WithPodiumSize(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.podium = n
		}
	}
}

// Ranker sorts and groups summaries for a competition kind.
type Ranker struct {
	epsilon float64
	podium  int
}

// New creates a Ranker.
func New(opts ...Option) *Ranker {
	r := &Ranker{epsilon: defaultEpsilon, podium: defaultPodiumSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank sorts entries and groups them, best rank first.
func (r *Ranker) Rank(kind model.CompetitionKind, entries []model.EntrySummary) []model.RankGroup {
	return r.Group(kind, r.Sort(kind, entries))
}

// Sort returns a new slice ordered best-first. The input is not modified.
func (r *Ranker) Sort(kind model.CompetitionKind, entries []model.EntrySummary) []model.EntrySummary {
	out := slices.Clone(entries)
	switch kind {
	case model.KindTeam:
		slices.SortStableFunc(out, compareTeam)
	case model.KindHero:
		slices.SortStableFunc(out, compareGame)
		r.orderBelowPodium(out)
	}
	return out
}

// orderBelowPodium re-sorts every run of game-tied entries whose dense rank
// falls outside the podium by academic average, then display name. Runs inside
// the podium each collapse into a single rank, so the n-th run ranks n+1 until
// the podium is left.
func (r *Ranker) orderBelowPodium(sorted []model.EntrySummary) {
	run := 0
	for start := 0; start < len(sorted); run++ {
		end := start + 1
		for end < len(sorted) && compareGame(sorted[start], sorted[end]) == 0 {
			end++
		}
		if run >= r.podium && end-start > 1 {
			slices.SortStableFunc(sorted[start:end], compareAcademic)
		}
		start = end
	}
}

// Group partitions an ordered sequence into dense rank groups.
//
// Each entry is compared only with its immediate predecessor, so ties chain:
// when A~B and B~C, all three share a group even if A and C differ by more
// than the tolerance.
func (r *Ranker) Group(kind model.CompetitionKind, ordered []model.EntrySummary) []model.RankGroup {
	if len(ordered) == 0 {
		return nil
	}
	groups := []model.RankGroup{{Rank: 1, Entries: []model.EntrySummary{ordered[0]}}}
	runRank := 1
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if kind == model.KindHero && compareGame(prev, cur) != 0 {
			runRank = len(groups) + 1
		}
		if r.tied(kind, prev, cur, runRank) {
			last := &groups[len(groups)-1]
			last.Entries = append(last.Entries, cur)
			continue
		}
		groups = append(groups, model.RankGroup{Rank: len(groups) + 1, Entries: []model.EntrySummary{cur}})
	}
	return groups
}

// tied reports whether cur joins prev's group. runRank is the dense rank the
// current game-tied run received.
func (r *Ranker) tied(kind model.CompetitionKind, prev, cur model.EntrySummary, runRank int) bool {
	switch kind {
	case model.KindTeam:
		return r.close(prev.ProgressPercent, cur.ProgressPercent) && prev.RawScore == cur.RawScore
	case model.KindHero:
		if compareGame(prev, cur) != 0 {
			return false
		}
		return runRank <= r.podium || r.close(prev.AcademicAverage, cur.AcademicAverage)
	default:
		return false
	}
}

func (r *Ranker) close(a, b float64) bool {
	return math.Abs(a-b) < r.epsilon
}

// compareTeam orders by progress desc, then raw stars desc.
func compareTeam(a, b model.EntrySummary) int {
	if c := cmp.Compare(b.ProgressPercent, a.ProgressPercent); c != 0 {
		return c
	}
	return cmp.Compare(b.RawScore, a.RawScore)
}

// compareGame orders by the game criteria only, all descending.
func compareGame(a, b model.EntrySummary) int {
	if c := cmp.Compare(b.PrimaryScore, a.PrimaryScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Count3Star, a.Count3Star); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Count2Star, a.Count2Star); c != 0 {
		return c
	}
	return cmp.Compare(b.UniqueReasonCount, a.UniqueReasonCount)
}

func compareAcademic(a, b model.EntrySummary) int {
	if c := cmp.Compare(b.AcademicAverage, a.AcademicAverage); c != 0 {
		return c
	}
	return cmp.Compare(a.DisplayName, b.DisplayName)
}
