// Package worker persists queued viewed-flag marks with retries.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	defaultMaxAttempts  = 5
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Mark is the unit of work.
type Mark = queue.Mark

// Writer stores a viewed flag.
type Writer interface {
	MarkViewed(ctx context.Context, key model.ViewedKey) error
}

// Source defines how workers receive marks.
type Source interface {
	Dequeue() <-chan Mark
}

// Worker drains a Source into a Writer.
type Worker struct {
	source Source
	writer Writer
	cfg    settings
	done   chan struct{}
}

func defaults() settings {
	return settings{
		name:         "viewed-worker",
		maxAttempts:  defaultMaxAttempts,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
		logger:       logger.Get().Named("worker"),
	}
}

// New creates a worker.
func New(source Source, writer Writer, opts ...Option) *Worker {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{source: source, writer: writer, cfg: cfg, done: make(chan struct{})}
}

// Run processes marks until the source closes or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	marks := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-marks:
			if !ok {
				return
			}
			if err := w.persist(ctx, m); err != nil {
				metrics.RecordViewedWrite("failed")
				metrics.RecordError("worker", "viewed_write")
				w.cfg.logger.Error(ctx, "viewed flag dropped after retries",
					logger.String("worker", w.cfg.name),
					logger.String("key", m.Key.String()),
					logger.Error(err),
				)
				if w.cfg.onFailure != nil {
					w.cfg.onFailure(m, err)
				}
			}
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// persist writes one mark with exponential backoff.
func (w *Worker) persist(ctx context.Context, m Mark) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	delay := w.cfg.initialDelay
	var err error
	for attempt := 1; attempt <= w.cfg.maxAttempts; attempt++ {
		if err = w.writer.MarkViewed(ctx, m.Key); err == nil {
			metrics.RecordViewedWrite("persisted")
			return nil
		}
		if attempt == w.cfg.maxAttempts {
			break
		}
		metrics.RecordWorkerRetry()
		w.cfg.logger.Warn(ctx, "viewed flag write failed, retrying",
			logger.String("key", m.Key.String()),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("persist %s: %w", m.Key, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, w.cfg.maxDelay)
	}
	return fmt.Errorf("persist %s after %d attempts: %w", m.Key, w.cfg.maxAttempts, err)
}

// Pool runs several workers over one source.
type Pool struct {
	workers []*Worker
	source  Source
	logger  logger.Logger
	once    sync.Once
}

// NewPool creates a pool of count workers sharing opts.
func NewPool(count int, source Source, writer Writer, opts ...Option) *Pool {
	count = max(count, 1)
	p := &Pool{
		workers: make([]*Worker, count),
		source:  source,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append(append([]Option(nil), opts...), WithName("viewed-worker-"+strconv.Itoa(i)))
		p.workers[i] = New(source, writer, wopts...)
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Shutdown closes the source, if it can be closed, and waits for workers to
// drain what is left.
func (p *Pool) Shutdown(ctx context.Context) error {
	var closeErr error
	p.once.Do(func() {
		if closer, ok := p.source.(interface{ Close() error }); ok {
			closeErr = closer.Close()
		}
	})
	if closeErr != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(closeErr))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
