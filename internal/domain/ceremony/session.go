package ceremony

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/narration"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Manager keeps at most one active ceremony.
type Manager struct {
	mu      sync.Mutex
	current *Sequencer

	narrator narration.Narrator
	viewed   ViewedRecorder
	monitor  Monitor
	logger   logger.Logger
	newID    func() string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerNarrator sets the narrator handed to every session.
func WithManagerNarrator(n narration.Narrator) ManagerOption {
	return func(m *Manager) { m.narrator = n }
}

// WithManagerViewed sets the viewed-flag writer handed to every session.
func WithManagerViewed(v ViewedRecorder) ManagerOption {
	return func(m *Manager) { m.viewed = v }
}

// WithManagerMonitor sets the completion listener handed to every session.
func WithManagerMonitor(mon Monitor) ManagerOption {
	return func(m *Manager) { m.monitor = mon }
}

// WithManagerLogger sets the logger.
func WithManagerLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager creates a session manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		narrator: narration.Templates{},
		logger:   logger.Get().Named("ceremony"),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a ceremony for groups ordered best rank first and runs Begin.
// It fails with ErrCeremonyActive while another session is still active.
func (m *Manager) Start(ctx context.Context, p Params, groups []model.RankGroup, presenter Presenter) (*Sequencer, Step, error) {
	if err := p.validate(); err != nil {
		return nil, Step{}, fmt.Errorf("%w: kind=%q month=%q", err, p.Kind, p.Month)
	}

	m.mu.Lock()
	if m.current != nil && m.current.Active() {
		m.mu.Unlock()
		return nil, Step{}, ErrCeremonyActive
	}
	seq := NewSequencer(m.newID(), p, groups,
		WithNarrator(m.narrator),
		WithPresenter(presenter),
		WithViewedRecorder(m.viewed),
		WithMonitor(m.monitor),
		WithSequencerLogger(m.logger),
		withOnEnd(func(*Sequencer) { metrics.UpdateActiveCeremonies(0) }),
	)
	m.current = seq
	m.mu.Unlock()

	metrics.RecordCeremonyStarted(string(p.Kind))
	metrics.UpdateActiveCeremonies(1)
	m.logger.Info(ctx, "ceremony started",
		logger.String("session", seq.ID()),
		logger.String("key", p.Key().String()),
		logger.Int("groups", len(groups)),
	)
	return seq, seq.Begin(ctx), nil
}

// Current returns the latest session, active or ended.
func (m *Manager) Current() (*Sequencer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoCeremony
	}
	return m.current, nil
}

// Active returns the active session, if any.
func (m *Manager) Active() (*Sequencer, error) {
	seq, err := m.Current()
	if err != nil {
		return nil, err
	}
	if !seq.Active() {
		return nil, ErrNoCeremony
	}
	return seq, nil
}
