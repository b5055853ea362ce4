// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	ViewedStore = "store"
	ViewedRedis = "redis"

	NarrationTemplate = "template"
	NarrationOpenAI   = "openai"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend selects where classes, students, logs and trials come from.
	StoreBackend string `koanf:"store_backend"`
	// ViewedBackend selects where ceremony viewed flags live.
	ViewedBackend string `koanf:"viewed_backend"`
	// FixturePath seeds the memory store from a YAML file.
	FixturePath string `koanf:"fixture_path"`

	PostgresDSN   string `koanf:"postgres_dsn"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// TeamGoalFloor and TeamGoalPerMember define goal = max(floor, members*perMember).
	TeamGoalFloor     float64 `koanf:"team_goal_floor"`
	TeamGoalPerMember float64 `koanf:"team_goal_per_member"`
	// TieEpsilon is the tolerance used for progress and academic ties.
	TieEpsilon float64 `koanf:"tie_epsilon"`
	// PodiumSize is the number of top positions where academic averages are ignored.
	PodiumSize int `koanf:"podium_size"`

	NarrationBackend   string `koanf:"narration_backend"`
	OpenAIAPIKey       string `koanf:"openai_api_key"`
	OpenAIBaseURL      string `koanf:"openai_base_url"`
	OpenAIModel        string `koanf:"openai_model"`
	NarrationTimeoutMS int    `koanf:"narration_timeout_ms"`

	// ViewedQueueSize bounds the write-behind queue for viewed flags.
	ViewedQueueSize int `koanf:"viewed_queue_size"`
	// ViewedWorkerCount sets the number of viewed-flag writers.
	ViewedWorkerCount int `koanf:"viewed_worker_count"`
	// ViewedMaxAttempts caps retries per viewed-flag write.
	ViewedMaxAttempts int `koanf:"viewed_max_attempts"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		StoreBackend:       StoreMemory,
		ViewedBackend:      ViewedStore,
		RedisAddr:          "localhost:6379",
		TeamGoalFloor:      60,
		TeamGoalPerMember:  18,
		TieEpsilon:         0.1,
		PodiumSize:         3,
		NarrationBackend:   NarrationTemplate,
		OpenAIModel:        "gpt-4o-mini",
		NarrationTimeoutMS: 4000,
		ViewedQueueSize:    256,
		ViewedWorkerCount:  2,
		ViewedMaxAttempts:  5,
	}
}

// NarrationTimeout returns the narration deadline.
func (c *Config) NarrationTimeout() time.Duration {
	return time.Duration(c.NarrationTimeoutMS) * time.Millisecond
}

// Validate checks the configuration and returns ErrInvalidConfig on failure.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Addr != "", "addr must not be empty")
	check(slices.Contains([]string{"text", "json"}, c.LogFormat), "log_format must be text or json")
	check(slices.Contains([]string{StoreMemory, StorePostgres}, c.StoreBackend), "store_backend must be memory or postgres")
	check(slices.Contains([]string{ViewedStore, ViewedRedis}, c.ViewedBackend), "viewed_backend must be store or redis")
	check(c.StoreBackend != StorePostgres || c.PostgresDSN != "", "postgres_dsn is required for the postgres store")
	check(c.ViewedBackend != ViewedRedis || c.RedisAddr != "", "redis_addr is required for redis viewed flags")
	check(c.TeamGoalFloor > 0, "team_goal_floor must be positive")
	check(c.TeamGoalPerMember >= 0, "team_goal_per_member must not be negative")
	check(c.TieEpsilon >= 0, "tie_epsilon must not be negative")
	check(c.PodiumSize >= 0, "podium_size must not be negative")
	check(slices.Contains([]string{NarrationTemplate, NarrationOpenAI}, c.NarrationBackend), "narration_backend must be template or openai")
	check(c.NarrationBackend != NarrationOpenAI || c.OpenAIAPIKey != "", "openai_api_key is required for openai narration")
	check(c.NarrationTimeoutMS > 0, "narration_timeout_ms must be positive")
	check(c.ViewedQueueSize > 0, "viewed_queue_size must be positive")
	check(c.ViewedWorkerCount > 0, "viewed_worker_count must be positive")
	check(c.ViewedMaxAttempts > 0, "viewed_max_attempts must be positive")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
