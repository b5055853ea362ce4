package ceremony

import (
	"slices"

	"github.com/okian/podium/internal/domain/model"
)

// Phase is the sequencer state.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhasePresenting       Phase = "presenting"
	PhaseShowdownPending  Phase = "showdown_pending"
	PhaseShowdownRevealed Phase = "showdown_revealed"
	PhaseEnded            Phase = "ended"
)

// Params identify a ceremony.
type Params struct {
	Kind    model.CompetitionKind
	League  string
	Month   model.MonthKey
	ScopeID string
}

// Key returns the viewed-flag key for the ceremony.
func (p Params) Key() model.ViewedKey {
	return model.ViewedKey{ScopeID: p.ScopeID, Month: p.Month, Kind: p.Kind}
}

func (p Params) validate() error {
	if !p.Kind.Valid() || p.Month.IsZero() {
		return ErrInvalidParams
	}
	return nil
}

// State is a snapshot of a ceremony session. Groups are stored worst rank first.
type State struct {
	ID         string                `json:"id"`
	IsActive   bool                  `json:"is_active"`
	Kind       model.CompetitionKind `json:"kind"`
	League     string                `json:"league"`
	Month      model.MonthKey        `json:"month"`
	ScopeID    string                `json:"scope_id,omitempty"`
	Groups     []model.RankGroup     `json:"-"`
	Cursor     int                   `json:"cursor"`
	InShowdown bool                  `json:"in_showdown"`
	Phase      Phase                 `json:"phase"`
}

// Revealed returns the groups whose identities are already shown, in
// presentation order. The showdown pair is withheld until the winner reveal.
func (s State) Revealed() []model.RankGroup {
	end := min(s.Cursor+1, len(s.Groups))
	if s.InShowdown {
		end -= 2
	}
	if end <= 0 {
		return nil
	}
	return slices.Clone(s.Groups[:end])
}

// Remaining is the number of groups not yet presented.
func (s State) Remaining() int {
	return max(0, len(s.Groups)-1-s.Cursor)
}

func reversed(groups []model.RankGroup) []model.RankGroup {
	out := slices.Clone(groups)
	slices.Reverse(out)
	return out
}

// nothingToCelebrate reports an empty ranking or one where every entry scored zero.
func nothingToCelebrate(groups []model.RankGroup) bool {
	for _, g := range groups {
		for _, e := range g.Entries {
			if e.PrimaryScore > 0 {
				return false
			}
		}
	}
	return true
}
