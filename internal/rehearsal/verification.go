package rehearsal

import (
	"fmt"
	"slices"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
)

// VerifyReveal checks a fully advanced ceremony against the standings it was
// built from. Groups must appear worst rank first, ranks 2 and 1 must share a
// single showdown when both exist, and the ceremony must end exactly once.
func VerifyReveal(groups []model.RankGroup, events []service.Event) error {
	if len(events) == 0 {
		return fmt.Errorf("%w: no events", ErrRevealOrder)
	}
	if last := events[len(events)-1]; last.Type != service.EventEnded {
		return fmt.Errorf("%w: last event is %s", ErrRevealOrder, last.Type)
	}
	if events[0].Type == service.EventNothingRecorded {
		if len(events) != 2 {
			return fmt.Errorf("%w: empty ceremony produced %d events", ErrRevealOrder, len(events))
		}
		return nil
	}

	hasShowdown := hasRank(groups, 1) && hasRank(groups, 2)
	prevRank := 0
	showdowns, winners, ends := 0, 0, 0
	for i, e := range events {
		switch e.Type {
		case service.EventGroup:
			if showdowns > 0 {
				return fmt.Errorf("%w: group after showdown at seq %d", ErrRevealOrder, e.Seq)
			}
			if prevRank != 0 && e.Rank >= prevRank {
				return fmt.Errorf("%w: rank %d after rank %d", ErrRevealOrder, e.Rank, prevRank)
			}
			if hasShowdown && e.Rank <= 2 {
				return fmt.Errorf("%w: rank %d presented outside the showdown", ErrRevealOrder, e.Rank)
			}
			prevRank = e.Rank
		case service.EventShowdown:
			showdowns++
		case service.EventWinner:
			if i == 0 || events[i-1].Type != service.EventShowdown {
				return fmt.Errorf("%w: winner revealed without a showdown", ErrRevealOrder)
			}
			if err := verifyWinners(groups, e); err != nil {
				return err
			}
			winners++
		case service.EventEnded:
			ends++
		default:
			return fmt.Errorf("%w: unexpected %s event", ErrRevealOrder, e.Type)
		}
	}

	switch {
	case ends != 1:
		return fmt.Errorf("%w: %d end events", ErrRevealOrder, ends)
	case hasShowdown && (showdowns != 1 || winners != 1):
		return fmt.Errorf("%w: %d showdowns and %d winner reveals", ErrRevealOrder, showdowns, winners)
	case !hasShowdown && showdowns != 0:
		return fmt.Errorf("%w: showdown without ranks 1 and 2", ErrRevealOrder)
	}
	return nil
}

func verifyWinners(groups []model.RankGroup, e service.Event) error {
	if e.Reveal == nil {
		return fmt.Errorf("%w: winner event without reveal", ErrRevealOrder)
	}
	var want []string
	for _, g := range groups {
		if g.Rank == 1 {
			for _, entry := range g.Entries {
				want = append(want, entry.ID)
			}
		}
	}
	var got []string
	for _, c := range e.Reveal.Winners {
		if c.Entry != nil {
			got = append(got, c.Entry.ID)
		}
	}
	slices.Sort(want)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		return fmt.Errorf("%w: winners %v, standings say %v", ErrRevealOrder, got, want)
	}
	return nil
}

func hasRank(groups []model.RankGroup, rank int) bool {
	return slices.ContainsFunc(groups, func(g model.RankGroup) bool { return g.Rank == rank })
}
