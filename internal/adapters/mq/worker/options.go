package worker

import (
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to a Worker.
type Option func(*settings)

type settings struct {
	name         string
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	onFailure    func(Mark, error)
	logger       logger.Logger
}

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxAttempts caps the writes per mark, first attempt included.
func WithMaxAttempts(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and the delay ceiling.
func WithBackoff(initial, ceiling time.Duration) Option {
	return func(s *settings) {
		if initial > 0 {
			s.initialDelay = initial
		}
		if ceiling >= initial && ceiling > 0 {
			s.maxDelay = ceiling
		}
	}
}

// WithOnFailure is called once a mark exhausts its attempts.
func WithOnFailure(fn func(Mark, error)) Option {
	return func(s *settings) { s.onFailure = fn }
}
