package model

// EntrySummary is one row per competing entity for one month.
// PrimaryScore is stars for Hero and progress percentage for Team.
type EntrySummary struct {
	ID           string  `json:"id"`
	DisplayName  string  `json:"display_name"`
	AvatarRef    string  `json:"avatar_ref,omitempty"`
	PrimaryScore float64 `json:"primary_score"`

	// Hero tie-breaks.
	Count3Star        int     `json:"count_3_star"`
	Count2Star        int     `json:"count_2_star"`
	UniqueReasonCount int     `json:"unique_reason_count"`
	AcademicAverage   float64 `json:"academic_average"`

	// Team tie-breaks.
	ProgressPercent float64 `json:"progress_percent"`
	RawScore        float64 `json:"raw_score"`
}

// RankGroup is a set of entries sharing one dense rank.
type RankGroup struct {
	Rank    int            `json:"rank"`
	Entries []EntrySummary `json:"entries"`
}

// Top returns the first entry of the group, or nil for an empty group.
func (g RankGroup) Top() *EntrySummary {
	if len(g.Entries) == 0 {
		return nil
	}
	return &g.Entries[0]
}

// ViewedKey identifies a ceremony for the "viewed" flag. ScopeID is empty
// for the league-wide ceremony.
type ViewedKey struct {
	ScopeID string          `json:"scope_id"`
	Month   MonthKey        `json:"month"`
	Kind    CompetitionKind `json:"kind"`
}

// String renders a stable key, e.g. "class-7:2026-09:hero" or "global:2026-09:team".
func (k ViewedKey) String() string {
	scope := k.ScopeID
	if scope == "" {
		scope = "global"
	}
	return scope + ":" + k.Month.String() + ":" + string(k.Kind)
}
