package ceremony

import "github.com/okian/podium/internal/domain/model"

// Styling marks how a showdown contestant is rendered.
type Styling string

const (
	StyleMystery  Styling = "mystery"
	StyleWinner   Styling = "winner"
	StyleRunnerUp Styling = "runner_up"
)

// Contestant is one showdown slot. Entry is nil while identities are hidden.
type Contestant struct {
	Rank  int                 `json:"rank"`
	Style Styling             `json:"style"`
	Entry *model.EntrySummary `json:"entry,omitempty"`
}

// Reveal is the outcome of the winner reveal. Every rank-1 entry is a winner.
type Reveal struct {
	Winners   []Contestant `json:"winners"`
	RunnersUp []Contestant `json:"runners_up"`
	// ShowGlobalStandings tells the host to offer navigation to the league-wide
	// standings. Only Hero ceremonies expose it.
	ShowGlobalStandings bool `json:"show_global_standings"`
}

// Showdown holds the rank-2 and rank-1 groups hidden until RevealWinner.
type Showdown struct {
	kind      model.CompetitionKind
	runnersUp []model.EntrySummary
	winners   []model.EntrySummary
	revealed  bool
}

// NewShowdown creates a resolver for the final two groups.
func NewShowdown(kind model.CompetitionKind, rank2, rank1 []model.EntrySummary) *Showdown {
	return &Showdown{kind: kind, runnersUp: rank2, winners: rank1}
}

// Hidden returns one mystery slot per entry: runners-up first, then winners.
func (s *Showdown) Hidden() []Contestant {
	out := make([]Contestant, 0, len(s.runnersUp)+len(s.winners))
	for range s.runnersUp {
		out = append(out, Contestant{Rank: 2, Style: StyleMystery})
	}
	for range s.winners {
		out = append(out, Contestant{Rank: 1, Style: StyleMystery})
	}
	return out
}

// Revealed reports whether RevealWinner already ran.
func (s *Showdown) Revealed() bool { return s.revealed }

// RevealWinner styles the contestants. It runs once; later calls return false.
func (s *Showdown) RevealWinner() (Reveal, bool) {
	if s.revealed {
		return Reveal{}, false
	}
	s.revealed = true
	return Reveal{
		Winners:             style(s.winners, 1, StyleWinner),
		RunnersUp:           style(s.runnersUp, 2, StyleRunnerUp),
		ShowGlobalStandings: s.kind == model.KindHero,
	}, true
}

func style(entries []model.EntrySummary, rank int, st Styling) []Contestant {
	out := make([]Contestant, len(entries))
	for i := range entries {
		e := entries[i]
		out[i] = Contestant{Rank: rank, Style: st, Entry: &e}
	}
	return out
}
