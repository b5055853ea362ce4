package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

const backendMemory = "memory"

// MemoryStore keeps every record in process. Roster order is insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	classes  []model.Class
	students []model.Student
	logs     []model.LogRecord
	trials   []model.TrialRecord
	viewed   map[string]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{viewed: make(map[string]struct{})}
}

// NewMemoryStoreFromFixture creates a store seeded from f.
func NewMemoryStoreFromFixture(f *Fixture) *MemoryStore {
	s := NewMemoryStore()
	leagueOf := make(map[string]string, len(f.Classes))
	for _, c := range f.Classes {
		leagueOf[c.ID] = c.League
		s.AddClass(model.Class{ID: c.ID, Name: c.Name, AvatarRef: c.Avatar, League: c.League})
	}
	for _, st := range f.Students {
		league := st.League
		if league == "" {
			league = leagueOf[st.ClassID]
		}
		s.AddStudent(model.Student{ID: st.ID, Name: st.Name, AvatarRef: st.Avatar, ClassID: st.ClassID, League: league})
	}
	for _, l := range f.Logs {
		s.AddLog(model.LogRecord{EntityID: l.StudentID, Amount: l.Amount, ReasonTag: l.Reason, Date: l.Date})
	}
	for _, t := range f.Trials {
		s.AddTrial(model.TrialRecord{EntityID: t.StudentID, Date: t.Date, NumericScore: t.Score, MaxScore: t.Max, QualitativeTier: t.Tier})
	}
	for _, v := range f.Views {
		month, _ := model.ParseMonthKey(v.Month)
		kind, _ := model.ParseKind(v.Kind)
		s.viewed[model.ViewedKey{ScopeID: v.Scope, Month: month, Kind: kind}.String()] = struct{}{}
	}
	return s
}

// AddClass appends a class.
func (s *MemoryStore) AddClass(c model.Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = append(s.classes, c)
}

// AddStudent appends a student.
func (s *MemoryStore) AddStudent(st model.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = append(s.students, st)
}

// AddLog appends a star log entry.
func (s *MemoryStore) AddLog(l model.LogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
}

// AddTrial appends a trial.
func (s *MemoryStore) AddTrial(t model.TrialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trials = append(s.trials, t)
}

// Classes returns the classes of a league.
func (s *MemoryStore) Classes(_ context.Context, league string) ([]model.Class, error) {
	defer observe(backendMemory, "classes", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Class
	for _, c := range s.classes {
		if c.League == league {
			out = append(out, c)
		}
	}
	return out, nil
}

// Students returns the students of a league, optionally narrowed to a class.
func (s *MemoryStore) Students(_ context.Context, league, classID string) ([]model.Student, error) {
	defer observe(backendMemory, "students", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Student
	for _, st := range s.students {
		if st.League == league && (classID == "" || st.ClassID == classID) {
			out = append(out, st)
		}
	}
	return out, nil
}

// MonthlyLogs returns every log entry dated inside the month.
func (s *MemoryStore) MonthlyLogs(_ context.Context, year int, month time.Month) ([]model.LogRecord, error) {
	defer observe(backendMemory, "logs", time.Now())
	key, err := model.NewMonthKey(year, month)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.LogRecord
	for _, l := range s.logs {
		if key.Contains(l.Date) {
			out = append(out, l)
		}
	}
	return out, nil
}

// TrialsForScope returns the month's trials of a class, or of everyone when
// scopeID is empty.
func (s *MemoryStore) TrialsForScope(_ context.Context, scopeID string, month model.MonthKey) ([]model.TrialRecord, error) {
	defer observe(backendMemory, "trials", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	inScope := make(map[string]bool)
	for _, st := range s.students {
		if scopeID == "" || st.ClassID == scopeID {
			inScope[st.ID] = true
		}
	}
	var out []model.TrialRecord
	for _, t := range s.trials {
		if inScope[t.EntityID] && month.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

// MarkViewed records that a ceremony was watched.
func (s *MemoryStore) MarkViewed(_ context.Context, key model.ViewedKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewed[key.String()] = struct{}{}
	return nil
}

// IsViewed reports whether a ceremony was watched.
func (s *MemoryStore) IsViewed(_ context.Context, key model.ViewedKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.viewed[key.String()]
	return ok, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

func observe(backend, op string, start time.Time) {
	metrics.RecordRepositoryLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
}
