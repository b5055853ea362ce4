// Package service wires the ranking engine, the ceremony sessions and the
// viewed-flag write-behind into the operations served by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/ceremony"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/narration"
	"github.com/okian/podium/internal/domain/ranking"
	"github.com/okian/podium/internal/domain/stats"
	"github.com/okian/podium/pkg/logger"
)

// StandingsQuery selects one ranking. An empty ScopeID means league-wide.
type StandingsQuery struct {
	Kind    model.CompetitionKind
	League  string
	Month   model.MonthKey
	ScopeID string
}

// Key returns the viewed-flag key of the ceremony for this ranking.
func (q StandingsQuery) Key() model.ViewedKey {
	return model.ViewedKey{ScopeID: q.ScopeID, Month: q.Month, Kind: q.Kind}
}

func (q StandingsQuery) validate() error {
	if !q.Kind.Valid() {
		return fmt.Errorf("%w: %q", model.ErrUnknownKind, q.Kind)
	}
	if q.Month.IsZero() {
		return model.ErrInvalidMonthKey
	}
	return nil
}

// Standings is a grouped ranking, best rank first.
type Standings struct {
	Kind    model.CompetitionKind `json:"kind"`
	League  string                `json:"league"`
	Month   model.MonthKey        `json:"month"`
	ScopeID string                `json:"scope_id,omitempty"`
	Groups  []model.RankGroup     `json:"groups"`
}

// StartRequest opens a ceremony. Force replays an already viewed ceremony.
type StartRequest struct {
	StandingsQuery
	Force bool
}

// CeremonyView is the state of the current ceremony plus the events a
// client has not seen yet.
type CeremonyView struct {
	State  ceremony.State `json:"state"`
	Events []Event        `json:"events"`
}

// Service implements the API dependencies for the ceremony system.
type Service struct {
	mu sync.RWMutex
	// Serialises Start and Stop.
	lifecycle sync.Mutex
	// Counts calls that may still reach the store or the viewed queue.
	inflight sync.WaitGroup

	// Collaborators
	store    repository.Store
	narrator narration.Narrator

	// Built on Start
	aggregator *stats.Aggregator
	ranker     *ranking.Ranker
	sessions   *ceremony.Manager
	deduper    dedupe.Deduper
	viewQueue  *queue.InMemoryQueue
	pool       *worker.Pool
	recorder   *viewedRecorder
	pulses     *Pulses

	// Guards timeline and serialises ceremony starts.
	cmu      sync.Mutex
	timeline *Timeline

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	maxAttempts      int
	retryDelay       time.Duration
	narrationTimeout time.Duration
	goalFloor        float64
	goalPerMember    float64
	epsilon          float64
	podiumSize       int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of viewed-flag writers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the viewed-flag queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many pending keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxAttempts caps viewed-flag write attempts.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the first backoff delay of viewed-flag writes.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// WithNarrator sets the primary narration source. Templates are used when
// it fails or is not set.
func WithNarrator(n narration.Narrator) Option {
	return func(s *Service) { s.narrator = n }
}

// WithNarrationTimeout bounds each narration call.
func WithNarrationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.narrationTimeout = d
		}
	}
}

// WithTeamGoal sets the class goal parameters.
func WithTeamGoal(floor, perMember float64) Option {
	return func(s *Service) {
		s.goalFloor = floor
		s.goalPerMember = perMember
	}
}

// WithEpsilon sets the ranking tie tolerance.
func WithEpsilon(eps float64) Option {
	return func(s *Service) { s.epsilon = eps }
}

// WithPodiumSize sets how many leading positions ignore academic tie-breaks.
func WithPodiumSize(n int) Option {
	return func(s *Service) { s.podiumSize = n }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:            store,
		workerCount:      2,
		queueSize:        256,
		dedupeSize:       10000,
		maxAttempts:      5,
		retryDelay:       100 * time.Millisecond,
		narrationTimeout: 4 * time.Second,
		pulses:           NewPulses(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engine and starts the viewed-flag writers.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting ceremony service...")

	s.aggregator = stats.NewAggregator(s.store, s.store, s.store,
		stats.WithTeamGoal(s.goalFloor, s.goalPerMember),
	)
	s.ranker = ranking.New(
		ranking.WithEpsilon(s.epsilon),
		ranking.WithPodiumSize(s.podiumSize),
	)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.viewQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.recorder = &viewedRecorder{
		deduper: s.deduper,
		queue:   s.viewQueue,
		store:   s.store,
		logger:  s.logger.Named("viewed"),
	}
	s.pool = worker.NewPool(s.workerCount, s.viewQueue, s.store,
		worker.WithMaxAttempts(s.maxAttempts),
		worker.WithBackoff(s.retryDelay, 50*s.retryDelay),
		worker.WithOnFailure(s.recorder.forget),
	)
	// Writers outlive request cancellation so Stop can drain them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.sessions = ceremony.NewManager(
		ceremony.WithManagerNarrator(narration.NewFallback(s.narrator, narration.WithTimeout(s.narrationTimeout))),
		ceremony.WithManagerViewed(s.recorder),
		ceremony.WithManagerMonitor(s.pulses),
		ceremony.WithManagerLogger(s.logger.Named("ceremony")),
	)

	s.started = true
	s.logger.Info(ctx, "ceremony service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop refuses new calls, waits for in-flight ones, drains pending viewed
// flags and closes the store, in that order.
func (s *Service) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()
	s.logger.Info(ctx, "stopping ceremony service...")

	var errs []error
	if err := s.waitInflight(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for in-flight calls: %w", err))
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown workers: %w", err))
	}
	if s.store != nil {
		s.store.Close()
	}

	s.logger.Info(ctx, "ceremony service stopped")
	return errors.Join(errs...)
}

func (s *Service) waitInflight(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enter registers a call that may touch the store. The returned func must be
// called when the call is done.
func (s *Service) enter() (func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	s.inflight.Add(1)
	return s.inflight.Done, nil
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Standings returns the grouped ranking for q. A ranking with something to
// celebrate and an unwatched ceremony lights the eligibility pulse.
func (s *Service) Standings(ctx context.Context, q StandingsQuery) (Standings, error) {
	leave, err := s.enter()
	if err != nil {
		return Standings{}, err
	}
	defer leave()

	groups, err := s.rank(ctx, q)
	if err != nil {
		return Standings{}, err
	}
	if celebrates(groups) {
		viewed, err := s.recorder.IsViewed(ctx, q.Key())
		switch {
		case err != nil:
			s.logger.Warn(ctx, "viewed lookup failed", logger.String("key", q.Key().String()), logger.Error(err))
		case !viewed:
			s.pulses.Light(q.Key())
		}
	}
	return Standings{Kind: q.Kind, League: q.League, Month: q.Month, ScopeID: q.ScopeID, Groups: groups}, nil
}

func (s *Service) rank(ctx context.Context, q StandingsQuery) ([]model.RankGroup, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	summaries, err := s.aggregator.Summaries(ctx, q.Month, q.Kind, stats.Scope{League: q.League, ClassID: q.ScopeID})
	if err != nil {
		return nil, fmt.Errorf("standings %s: %w", q.Key(), err)
	}
	return s.ranker.Rank(q.Kind, summaries), nil
}

// StartCeremony opens a ceremony for req. It refuses while another ceremony is
// active and, unless forced, when this one was already viewed.
func (s *Service) StartCeremony(ctx context.Context, req StartRequest) (ceremony.State, ceremony.Step, error) {
	leave, err := s.enter()
	if err != nil {
		return ceremony.State{}, ceremony.Step{}, err
	}
	defer leave()

	s.cmu.Lock()
	defer s.cmu.Unlock()

	if _, err := s.sessions.Active(); err == nil {
		return ceremony.State{}, ceremony.Step{}, ceremony.ErrCeremonyActive
	}
	if !req.Force {
		viewed, err := s.recorder.IsViewed(ctx, req.Key())
		if err != nil {
			s.logger.Warn(ctx, "viewed lookup failed; starting anyway",
				logger.String("key", req.Key().String()),
				logger.Error(err),
			)
		}
		if viewed {
			return ceremony.State{}, ceremony.Step{}, ceremony.ErrAlreadyViewed
		}
	}

	groups, err := s.rank(ctx, req.StandingsQuery)
	if err != nil {
		return ceremony.State{}, ceremony.Step{}, err
	}

	timeline := NewTimeline()
	params := ceremony.Params{Kind: req.Kind, League: req.League, Month: req.Month, ScopeID: req.ScopeID}
	seq, step, err := s.sessions.Start(ctx, params, groups, timeline)
	if err != nil {
		return ceremony.State{}, ceremony.Step{}, err
	}
	s.timeline = timeline
	return seq.Snapshot(), step, nil
}

// Advance moves the current ceremony one step forward.
func (s *Service) Advance(ctx context.Context) (ceremony.Step, ceremony.State, error) {
	return s.step(func(seq *ceremony.Sequencer) ceremony.Step { return seq.Advance(ctx) })
}

// Skip jumps the current ceremony to its final step, or ends it.
func (s *Service) Skip(ctx context.Context) (ceremony.Step, ceremony.State, error) {
	return s.step(func(seq *ceremony.Sequencer) ceremony.Step { return seq.Skip(ctx) })
}

// End finishes the current ceremony.
func (s *Service) End(ctx context.Context) (ceremony.Step, ceremony.State, error) {
	return s.step(func(seq *ceremony.Sequencer) ceremony.Step { return seq.End(ctx) })
}

func (s *Service) step(fn func(*ceremony.Sequencer) ceremony.Step) (ceremony.Step, ceremony.State, error) {
	leave, err := s.enter()
	if err != nil {
		return ceremony.Step{}, ceremony.State{}, err
	}
	defer leave()

	seq, err := s.sessions.Current()
	if err != nil {
		return ceremony.Step{}, ceremony.State{}, err
	}
	step := fn(seq)
	return step, seq.Snapshot(), nil
}

// Ceremony returns the latest ceremony and its events after since.
func (s *Service) Ceremony(since int) (CeremonyView, error) {
	if err := s.running(); err != nil {
		return CeremonyView{}, err
	}
	s.cmu.Lock()
	timeline := s.timeline
	s.cmu.Unlock()

	seq, err := s.sessions.Current()
	if err != nil {
		return CeremonyView{}, err
	}
	events := []Event{}
	if timeline != nil {
		events = timeline.Since(since)
	}
	return CeremonyView{State: seq.Snapshot(), Events: events}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"pulses":      s.pulses.Active(),
	}
	if s.started {
		out["queueLength"] = s.viewQueue.Len()
		out["trackedViewed"] = s.deduper.Size()
		_, err := s.sessions.Active()
		out["ceremonyActive"] = err == nil
	}
	return out
}

func celebrates(groups []model.RankGroup) bool {
	for _, g := range groups {
		for _, e := range g.Entries {
			if e.PrimaryScore > 0 {
				return true
			}
		}
	}
	return false
}
