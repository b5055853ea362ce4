// Package rehearsal runs a ceremony end to end against a live service.
package rehearsal

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/podium/internal/domain/ceremony"
	"github.com/okian/podium/pkg/logger"
)

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
}

// Run executes one rehearsal and writes the presentation to out.
func Run(ctx context.Context, config *Config, out io.Writer) (*Stats, error) {
	config.applyDefaults()
	log := logger.Get().Named("rehearsal")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting ceremony rehearsal",
		logger.String("baseURL", config.BaseURL),
		logger.String("kind", config.Kind),
		logger.String("league", config.League),
		logger.String("month", config.Month),
		logger.String("scope", config.Scope),
		logger.Bool("force", config.Force),
	)
	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	// Step 2: Fetch the standings the ceremony will reveal
	standings, err := client.Standings(ctx, config)
	if err != nil {
		return stats, fmt.Errorf("standings: %w", err)
	}
	stats.Groups = len(standings.Groups)

	// Step 3: Start the ceremony
	_, state, err := client.Start(ctx, config)
	if err != nil {
		return stats, fmt.Errorf("start: %w", err)
	}
	log.Info(ctx, "ceremony started", logger.String("session", state.ID), logger.Int("groups", stats.Groups))

	// Step 4: Advance until the ceremony ends, printing new events as they land
	seen := 0
	seen, err = drain(ctx, client, out, seen, stats)
	if err != nil {
		return stats, err
	}
	for state.IsActive {
		if stats.Steps >= config.MaxSteps {
			return stats, fmt.Errorf("%w after %d steps", ErrTooManySteps, stats.Steps)
		}
		if err := pause(ctx, config.Interval); err != nil {
			return stats, err
		}
		var step ceremony.Step
		step, state, err = client.Advance(ctx)
		if err != nil {
			return stats, fmt.Errorf("advance: %w", err)
		}
		stats.Steps++
		if step.Kind == ceremony.StepIgnored {
			stats.Ignored++
		}
		if step.Kind == ceremony.StepShowdown {
			stats.Showdown = true
		}
		if config.Verbose {
			log.Info(ctx, "step",
				logger.String("kind", string(step.Kind)),
				logger.Int("cursor", step.Cursor),
				logger.String("phase", string(state.Phase)),
			)
		}
		if seen, err = drain(ctx, client, out, seen, stats); err != nil {
			return stats, err
		}
	}

	// Step 5: Verify the reveal order
	view, err := client.Events(ctx, 0)
	if err != nil {
		return stats, fmt.Errorf("events: %w", err)
	}
	if err := VerifyReveal(standings.Groups, view.Events); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// drain prints events after seen and returns the new high-water mark.
func drain(ctx context.Context, client *Client, out io.Writer, seen int, stats *Stats) (int, error) {
	view, err := client.Events(ctx, seen)
	if err != nil {
		return seen, fmt.Errorf("events: %w", err)
	}
	for _, e := range view.Events {
		fmt.Fprintln(out, Render(e))
		seen = e.Seq
		stats.Events++
	}
	return seen, nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// displayFinalStats logs the final rehearsal statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("groups", stats.Groups),
		logger.Int("steps", stats.Steps),
		logger.Int("ignored", stats.Ignored),
		logger.Int("events", stats.Events),
		logger.Bool("showdown", stats.Showdown),
		logger.String("duration", stats.Duration.String()),
	)
}
