package main

import (
	"context"
	"fmt"

	"github.com/okian/podium/internal/adapters/llm"
	"github.com/okian/podium/internal/adapters/repository"
	app "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/narration"
	"github.com/okian/podium/pkg/logger"
)

// openStore builds the data store selected by cfg, then swaps in the
// configured viewed-flag backend.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	var base repository.Store
	switch cfg.StoreBackend {
	case config.StoreMemory:
		if cfg.FixturePath == "" {
			base = repository.NewMemoryStore()
			log.Warn(ctx, "memory store has no fixture; every ranking will be empty")
			break
		}
		f, err := repository.LoadFixtureFile(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		base = repository.NewMemoryStoreFromFixture(f)
		log.Info(ctx, "memory store seeded",
			logger.String("fixture", cfg.FixturePath),
			logger.Int("classes", len(f.Classes)),
			logger.Int("students", len(f.Students)),
			logger.Int("logs", len(f.Logs)),
		)
	case config.StorePostgres:
		pg, err := repository.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		base = pg
		log.Info(ctx, "using postgres store")
	default:
		return nil, fmt.Errorf("%w: %q", repository.ErrUnsupportedBackend, cfg.StoreBackend)
	}

	if cfg.ViewedBackend != config.ViewedRedis {
		return base, nil
	}
	viewed, err := repository.NewRedisViewedStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		base.Close()
		return nil, err
	}
	log.Info(ctx, "viewed flags stored in redis", logger.String("addr", cfg.RedisAddr))
	return repository.WithViewedStore(base, viewed), nil
}

// newNarrator returns the primary narration source, or nil for templates only.
func newNarrator(cfg *config.Config) narration.Narrator {
	if cfg.NarrationBackend != config.NarrationOpenAI {
		return nil
	}
	return llm.New(
		llm.WithAPIKey(cfg.OpenAIAPIKey),
		llm.WithBaseURL(cfg.OpenAIBaseURL),
		llm.WithModel(cfg.OpenAIModel),
	)
}

// serviceOptions maps cfg onto service options.
func serviceOptions(cfg *config.Config, log logger.Logger) []app.Option {
	return []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.ViewedWorkerCount),
		app.WithQueueSize(cfg.ViewedQueueSize),
		app.WithMaxAttempts(cfg.ViewedMaxAttempts),
		app.WithNarrator(newNarrator(cfg)),
		app.WithNarrationTimeout(cfg.NarrationTimeout()),
		app.WithTeamGoal(cfg.TeamGoalFloor, cfg.TeamGoalPerMember),
		app.WithEpsilon(cfg.TieEpsilon),
		app.WithPodiumSize(cfg.PodiumSize),
	}
}
