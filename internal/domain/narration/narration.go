// Package narration produces the announcer lines read out during a ceremony.
package narration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// ShowdownRank is passed with a nil entry to request the showdown lead-in.
const ShowdownRank = 0

const defaultTimeout = 4 * time.Second

// ErrEmptyNarration is returned by generators that produced no text.
var ErrEmptyNarration = errors.New("empty narration")

// Narrator returns one line of narration for an entry at a rank. A nil entry
// with rank ShowdownRank asks for generic suspense copy.
type Narrator interface {
	Narrate(ctx context.Context, entry *model.EntrySummary, rank int, kind model.CompetitionKind) (string, error)
}

// Templates is the static narration table. It never fails.
type Templates struct{}

// Narrate implements Narrator.
func (Templates) Narrate(_ context.Context, entry *model.EntrySummary, rank int, kind model.CompetitionKind) (string, error) {
	return Template(entry, rank, kind), nil
}

// Template renders the fallback sentence for a rank.
func Template(entry *model.EntrySummary, rank int, kind model.CompetitionKind) string {
	if entry == nil || rank == ShowdownRank {
		return "Only two spots remain. Who will take the crown this month?"
	}
	score := scoreText(entry, kind)
	switch rank {
	case 1:
		return fmt.Sprintf("Champion of the month: %s with %s!", entry.DisplayName, score)
	case 2:
		return fmt.Sprintf("A brilliant runner-up finish for %s with %s.", entry.DisplayName, score)
	case 3:
		return fmt.Sprintf("Onto the podium in third place: %s with %s!", entry.DisplayName, score)
	default:
		return fmt.Sprintf("In %s place, %s with %s. Great effort!", ordinal(rank), entry.DisplayName, score)
	}
}

func scoreText(e *model.EntrySummary, kind model.CompetitionKind) string {
	if kind == model.KindTeam {
		return fmt.Sprintf("%.0f%% of the class goal", math.Round(e.ProgressPercent))
	}
	stars := math.Round(e.PrimaryScore)
	if stars == 1 {
		return "1 star"
	}
	return fmt.Sprintf("%.0f stars", stars)
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// Option applies a configuration option to the Fallback narrator.
type Option func(*Fallback)

// WithTimeout bounds each call to the primary narrator.
func WithTimeout(d time.Duration) Option {
	return func(f *Fallback) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fallback) {
		if l != nil {
			f.logger = l
		}
	}
}

// Fallback wraps a primary narrator and substitutes the template line when the
// primary fails, times out or returns blank text. It never returns an error.
type Fallback struct {
	primary Narrator
	timeout time.Duration
	logger  logger.Logger
}

// NewFallback creates a Fallback narrator. A nil primary always uses templates.
func NewFallback(primary Narrator, opts ...Option) *Fallback {
	f := &Fallback{
		primary: primary,
		timeout: defaultTimeout,
		logger:  logger.Get().Named("narration"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Narrate implements Narrator.
func (f *Fallback) Narrate(ctx context.Context, entry *model.EntrySummary, rank int, kind model.CompetitionKind) (string, error) {
	if f.primary == nil {
		return Template(entry, rank, kind), nil
	}
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	text, err := f.primary.Narrate(cctx, entry, rank, kind)
	metrics.RecordNarrationLatency(float64(time.Since(start).Milliseconds()))
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyNarration
	}
	if err != nil {
		metrics.RecordNarrationFallback()
		f.logger.Warn(ctx, "narration unavailable; using template",
			logger.Int("rank", rank),
			logger.String("kind", string(kind)),
			logger.Error(err),
		)
		return Template(entry, rank, kind), nil
	}
	return strings.TrimSpace(text), nil
}
