package ceremony

import (
	"context"

	"github.com/okian/podium/internal/domain/model"
)

// Audio cues queued alongside presentations. Playback belongs to the host.
const (
	CueDrumroll = "drumroll"
	CueShowdown = "showdown"
	CueFanfare  = "fanfare"
)

// NothingRecordedMessage is shown when the month has no activity.
const NothingRecordedMessage = "No activity was recorded this month. There is nothing to celebrate yet."

// GroupPresentation is emitted when a single rank group is revealed.
type GroupPresentation struct {
	Group     model.RankGroup `json:"group"`
	Rank      int             `json:"rank"`
	Narration string          `json:"narration"`
	Cue       string          `json:"cue"`
}

// ShowdownPresentation is emitted when the last two groups enter the showdown,
// with identities hidden.
type ShowdownPresentation struct {
	Contestants []Contestant `json:"contestants"`
	Narration   string       `json:"narration"`
	Cue         string       `json:"cue"`
}

// Presenter receives engine events. The host owns rendering, animation and audio.
// Calls are made outside the sequencer lock, one at a time per ceremony.
type Presenter interface {
	GroupPresented(ctx context.Context, p GroupPresentation)
	ShowdownPresented(ctx context.Context, p ShowdownPresentation)
	WinnerRevealed(ctx context.Context, r Reveal)
	NothingRecorded(ctx context.Context, message string)
	Ended(ctx context.Context, key model.ViewedKey)
}

// ViewedRecorder persists the "ceremony viewed" flag. Implementations should be
// idempotent; failures are logged by the caller and never block the flow.
type ViewedRecorder interface {
	MarkViewed(ctx context.Context, key model.ViewedKey) error
}

// Monitor is notified when a ceremony completes so indicator pulses can be cleared.
type Monitor interface {
	CeremonyCompleted(ctx context.Context, key model.ViewedKey)
}

// NopPresenter discards every event.
type NopPresenter struct{}

func (NopPresenter) GroupPresented(context.Context, GroupPresentation)       {}
func (NopPresenter) ShowdownPresented(context.Context, ShowdownPresentation) {}
func (NopPresenter) WinnerRevealed(context.Context, Reveal)                  {}
func (NopPresenter) NothingRecorded(context.Context, string)                 {}
func (NopPresenter) Ended(context.Context, model.ViewedKey)                  {}
