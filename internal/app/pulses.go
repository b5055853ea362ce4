package service

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

// Pulses tracks ceremonies whose indicator should pulse: standings exist but
// nobody has watched the reveal yet. Completing a ceremony clears its pulse.
type Pulses struct {
	mu     sync.Mutex
	active map[model.ViewedKey]struct{}
}

// NewPulses creates an empty pulse set.
func NewPulses() *Pulses {
	return &Pulses{active: make(map[model.ViewedKey]struct{})}
}

// Light starts the pulse for key.
func (p *Pulses) Light(key model.ViewedKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[key] = struct{}{}
	p.publish(key.Kind)
}

// CeremonyCompleted implements ceremony.Monitor.
func (p *Pulses) CeremonyCompleted(_ context.Context, key model.ViewedKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, key)
	p.publish(key.Kind)
}

// Active returns the pulsing keys in a stable order.
func (p *Pulses) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.active))
	for k := range p.active {
		out = append(out, k.String())
	}
	slices.Sort(out)
	return out
}

// publish must be called with p.mu held.
func (p *Pulses) publish(kind model.CompetitionKind) {
	n := 0
	for k := range p.active {
		if k.Kind == kind {
			n++
		}
	}
	metrics.UpdateEligibilityPulses(string(kind), n)
}
