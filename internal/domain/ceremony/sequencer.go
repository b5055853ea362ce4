// Package ceremony drives the step-by-step reveal of a ranking, from the lowest
// rank group up to the champion, with a two-way showdown for the final step.
package ceremony

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/narration"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// StepKind describes what a single sequencer call did.
type StepKind string

const (
	StepIgnored         StepKind = "ignored"
	StepStarted         StepKind = "started"
	StepPresented       StepKind = "presented"
	StepShowdown        StepKind = "showdown"
	StepWinnerRevealed  StepKind = "winner_revealed"
	StepNothingRecorded StepKind = "nothing_recorded"
	StepEnded           StepKind = "ended"
)

// Step is the result of Begin, Advance, Skip or End.
type Step struct {
	Kind      StepKind `json:"kind"`
	Cursor    int      `json:"cursor"`
	Rank      int      `json:"rank,omitempty"`
	Narration string   `json:"narration,omitempty"`
}

// Sequencer owns one ceremony session. Advance and Skip are single-flight:
// a call made while another is narrating is ignored.
type Sequencer struct {
	mu    sync.Mutex
	busy  atomic.Bool
	state State
	begun bool

	showdown  *Showdown
	narrator  narration.Narrator
	presenter Presenter
	viewed    ViewedRecorder
	monitor   Monitor
	logger    logger.Logger
	onEnd     func(*Sequencer)
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithNarrator sets the narration source.
func WithNarrator(n narration.Narrator) SequencerOption {
	return func(s *Sequencer) {
		if n != nil {
			s.narrator = n
		}
	}
}

// WithPresenter sets the event sink.
func WithPresenter(p Presenter) SequencerOption {
	return func(s *Sequencer) {
		if p != nil {
			s.presenter = p
		}
	}
}

// WithViewedRecorder sets the viewed-flag writer.
func WithViewedRecorder(v ViewedRecorder) SequencerOption {
	return func(s *Sequencer) { s.viewed = v }
}

// WithMonitor sets the completion listener.
func WithMonitor(m Monitor) SequencerOption {
	return func(s *Sequencer) { s.monitor = m }
}

// WithSequencerLogger sets the logger.
func WithSequencerLogger(l logger.Logger) SequencerOption {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

func withOnEnd(fn func(*Sequencer)) SequencerOption {
	return func(s *Sequencer) { s.onEnd = fn }
}

// NewSequencer creates a session for groups ordered best rank first.
func NewSequencer(id string, p Params, groups []model.RankGroup, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		state: State{
			ID:       id,
			IsActive: true,
			Kind:     p.Kind,
			League:   p.League,
			Month:    p.Month,
			ScopeID:  p.ScopeID,
			Groups:   reversed(groups),
			Cursor:   -1,
			Phase:    PhaseIdle,
		},
		narrator:  narration.Templates{},
		presenter: NopPresenter{},
		logger:    logger.Get().Named("ceremony"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session id.
func (s *Sequencer) ID() string { return s.state.ID }

// Key returns the viewed-flag key for this ceremony.
func (s *Sequencer) Key() model.ViewedKey {
	return model.ViewedKey{ScopeID: s.state.ScopeID, Month: s.state.Month, Kind: s.state.Kind}
}

// Snapshot returns a copy of the current state.
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Groups = append([]model.RankGroup(nil), s.state.Groups...)
	return st
}

// Active reports whether the session has not ended.
func (s *Sequencer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsActive
}

// Begin opens the session and reports StepStarted. When there is nothing to
// celebrate it shows the empty-state message and ends immediately, persisting
// the viewed flag once. Calls after the first are ignored.
func (s *Sequencer) Begin(ctx context.Context) Step {
	s.mu.Lock()
	if s.begun || s.state.Phase != PhaseIdle {
		s.mu.Unlock()
		return Step{Kind: StepIgnored, Cursor: -1}
	}
	s.begun = true
	empty := nothingToCelebrate(s.state.Groups)
	s.mu.Unlock()

	if !empty {
		return Step{Kind: StepStarted, Cursor: -1}
	}
	s.presenter.NothingRecorded(ctx, NothingRecordedMessage)
	metrics.RecordRevealStep(string(StepNothingRecorded))
	s.End(ctx)
	return Step{Kind: StepNothingRecorded, Cursor: -1, Narration: NothingRecordedMessage}
}

// Advance reveals the next group, enters the showdown, or reveals the winner.
// Calls while another step is in flight, or after the end, are ignored.
func (s *Sequencer) Advance(ctx context.Context) Step {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.RecordAdvanceRejected("busy")
		return Step{Kind: StepIgnored, Cursor: s.cursor()}
	}
	defer s.busy.Store(false)
	return s.advance(ctx)
}

// Skip jumps to the final step and presents it. Skipping during or after the
// final step ends the ceremony.
func (s *Sequencer) Skip(ctx context.Context) Step {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.RecordAdvanceRejected("busy")
		return Step{Kind: StepIgnored, Cursor: s.cursor()}
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	if s.state.Phase == PhaseEnded {
		cursor := s.state.Cursor
		s.mu.Unlock()
		metrics.RecordAdvanceRejected("ended")
		return Step{Kind: StepIgnored, Cursor: cursor}
	}
	n := len(s.state.Groups)
	finalStart := n - 1
	if n >= 2 {
		finalStart = n - 2
	}
	if s.state.Cursor < finalStart && !s.state.InShowdown {
		s.state.Cursor = finalStart - 1
		s.mu.Unlock()
		s.logger.Debug(ctx, "skipping to final step", logger.String("session", s.state.ID), logger.Int("cursor", finalStart))
		return s.advance(ctx)
	}
	s.mu.Unlock()
	return s.End(ctx)
}

// End finishes the ceremony. It is idempotent: only the first call persists the
// viewed flag and notifies listeners.
func (s *Sequencer) End(ctx context.Context) Step {
	s.mu.Lock()
	if s.state.Phase == PhaseEnded {
		cursor := s.state.Cursor
		s.mu.Unlock()
		return Step{Kind: StepIgnored, Cursor: cursor}
	}
	s.state.Phase = PhaseEnded
	s.state.IsActive = false
	s.state.InShowdown = false
	cursor := s.state.Cursor
	kind := s.state.Kind
	s.mu.Unlock()

	key := s.Key()
	if s.viewed != nil {
		if err := s.viewed.MarkViewed(ctx, key); err != nil {
			metrics.RecordViewedWrite("error")
			metrics.RecordError("ceremony", "viewed")
			s.logger.Error(ctx, "failed to persist viewed flag", logger.String("key", key.String()), logger.Error(err))
		} else {
			metrics.RecordViewedWrite("ok")
		}
	}
	if s.monitor != nil {
		s.monitor.CeremonyCompleted(ctx, key)
	}
	s.presenter.Ended(ctx, key)
	metrics.RecordCeremonyCompleted(string(kind))
	s.logger.Info(ctx, "ceremony ended", logger.String("session", s.state.ID), logger.String("key", key.String()))
	if s.onEnd != nil {
		s.onEnd(s)
	}
	return Step{Kind: StepEnded, Cursor: cursor}
}

func (s *Sequencer) cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Cursor
}

// advance runs one step. The caller holds the busy flag.
func (s *Sequencer) advance(ctx context.Context) Step {
	s.mu.Lock()
	switch {
	case s.state.Phase == PhaseEnded:
		cursor := s.state.Cursor
		s.mu.Unlock()
		metrics.RecordAdvanceRejected("ended")
		return Step{Kind: StepIgnored, Cursor: cursor}
	case s.state.InShowdown:
		return s.revealWinnerLocked(ctx)
	}

	s.state.Cursor++
	cursor := s.state.Cursor
	if cursor >= len(s.state.Groups) {
		s.state.Cursor = len(s.state.Groups) - 1
		s.mu.Unlock()
		return s.End(ctx)
	}

	groups := s.state.Groups
	group := groups[cursor]
	if group.Rank == 2 && cursor+1 < len(groups) && groups[cursor+1].Rank == 1 {
		s.state.Cursor++
		s.state.InShowdown = true
		s.state.Phase = PhaseShowdownPending
		s.showdown = NewShowdown(s.state.Kind, group.Entries, groups[cursor+1].Entries)
		hidden := s.showdown.Hidden()
		kind := s.state.Kind
		s.mu.Unlock()

		text := s.narrate(ctx, nil, narration.ShowdownRank, kind)
		if s.ended() {
			return Step{Kind: StepIgnored, Cursor: cursor + 1}
		}
		s.presenter.ShowdownPresented(ctx, ShowdownPresentation{Contestants: hidden, Narration: text, Cue: CueShowdown})
		metrics.RecordRevealStep(string(StepShowdown))
		return Step{Kind: StepShowdown, Cursor: cursor + 1, Narration: text}
	}

	s.state.Phase = PhasePresenting
	kind := s.state.Kind
	s.mu.Unlock()

	text := s.narrate(ctx, group.Top(), group.Rank, kind)
	if s.ended() {
		return Step{Kind: StepIgnored, Cursor: cursor}
	}
	cue := CueDrumroll
	if group.Rank == 1 {
		cue = CueFanfare
	}
	s.presenter.GroupPresented(ctx, GroupPresentation{Group: group, Rank: group.Rank, Narration: text, Cue: cue})
	metrics.RecordRevealStep(string(StepPresented))
	return Step{Kind: StepPresented, Cursor: cursor, Rank: group.Rank, Narration: text}
}

// revealWinnerLocked is entered with s.mu held and releases it.
func (s *Sequencer) revealWinnerLocked(ctx context.Context) Step {
	s.state.InShowdown = false
	s.state.Phase = PhaseShowdownRevealed
	cursor := s.state.Cursor
	reveal, ok := s.showdown.RevealWinner()
	s.mu.Unlock()
	if !ok {
		return Step{Kind: StepIgnored, Cursor: cursor}
	}
	s.presenter.WinnerRevealed(ctx, reveal)
	metrics.RecordRevealStep(string(StepWinnerRevealed))
	return Step{Kind: StepWinnerRevealed, Cursor: cursor, Rank: 1}
}

func (s *Sequencer) ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase == PhaseEnded
}

func (s *Sequencer) narrate(ctx context.Context, entry *model.EntrySummary, rank int, kind model.CompetitionKind) string {
	text, err := s.narrator.Narrate(ctx, entry, rank, kind)
	if err != nil || strings.TrimSpace(text) == "" {
		return narration.Template(entry, rank, kind)
	}
	return text
}
