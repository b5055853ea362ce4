package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/ceremony"
	"github.com/okian/podium/internal/domain/model"
)

// EventType names a timeline entry.
type EventType string

const (
	EventGroup           EventType = "group"
	EventShowdown        EventType = "showdown"
	EventWinner          EventType = "winner"
	EventNothingRecorded EventType = "nothing_recorded"
	EventEnded           EventType = "ended"
)

// Event is one presentation a polling client should render.
type Event struct {
	Seq         int                   `json:"seq"`
	Type        EventType             `json:"type"`
	At          time.Time             `json:"at"`
	Rank        int                   `json:"rank,omitempty"`
	Cue         string                `json:"cue,omitempty"`
	Narration   string                `json:"narration,omitempty"`
	Group       *model.RankGroup      `json:"group,omitempty"`
	Contestants []ceremony.Contestant `json:"contestants,omitempty"`
	Reveal      *ceremony.Reveal      `json:"reveal,omitempty"`
	Message     string                `json:"message,omitempty"`
	Key         string                `json:"key,omitempty"`
}

// Timeline is a Presenter that numbers every engine event so HTTP clients can
// poll for what they have not seen yet. Sequence numbers start at 1.
type Timeline struct {
	mu     sync.RWMutex
	events []Event
	now    func() time.Time
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{now: time.Now}
}

func (t *Timeline) append(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.Seq = len(t.events) + 1
	e.At = t.now()
	t.events = append(t.events, e)
}

// Since returns events with a sequence number greater than seq.
func (t *Timeline) Since(seq int) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seq = max(seq, 0)
	if seq >= len(t.events) {
		return []Event{}
	}
	return append([]Event(nil), t.events[seq:]...)
}

// Len returns the number of recorded events.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}

func (t *Timeline) GroupPresented(_ context.Context, p ceremony.GroupPresentation) {
	g := p.Group
	t.append(Event{Type: EventGroup, Rank: p.Rank, Cue: p.Cue, Narration: p.Narration, Group: &g})
}

func (t *Timeline) ShowdownPresented(_ context.Context, p ceremony.ShowdownPresentation) {
	t.append(Event{Type: EventShowdown, Cue: p.Cue, Narration: p.Narration, Contestants: p.Contestants})
}

func (t *Timeline) WinnerRevealed(_ context.Context, r ceremony.Reveal) {
	t.append(Event{Type: EventWinner, Rank: 1, Cue: ceremony.CueFanfare, Reveal: &r})
}

func (t *Timeline) NothingRecorded(_ context.Context, message string) {
	t.append(Event{Type: EventNothingRecorded, Message: message})
}

func (t *Timeline) Ended(_ context.Context, key model.ViewedKey) {
	t.append(Event{Type: EventEnded, Key: key.String()})
}
