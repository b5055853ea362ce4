// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// CompetitionKind selects the stat set and tie-break chain used for a ranking.
type CompetitionKind string

const (
	// KindTeam ranks classes against each other inside a league.
	KindTeam CompetitionKind = "team"
	// KindHero ranks individual students.
	KindHero CompetitionKind = "hero"
)

// ParseKind parses a competition kind (case-insensitive).
func ParseKind(s string) (CompetitionKind, error) {
	switch CompetitionKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindTeam:
		return KindTeam, nil
	case KindHero:
		return KindHero, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Valid reports whether k is a known kind.
func (k CompetitionKind) Valid() bool {
	return k == KindTeam || k == KindHero
}

func (k CompetitionKind) String() string { return string(k) }
