package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// viewedRecorder hands viewed flags to the write-behind queue. A key is
// enqueued at most once while it is pending; when the queue refuses a mark
// the flag is written synchronously instead.
type viewedRecorder struct {
	deduper dedupe.Deduper
	queue   queue.Queue
	store   repository.ViewedStore
	logger  logger.Logger
}

func (r *viewedRecorder) MarkViewed(ctx context.Context, key model.ViewedKey) error {
	id := key.String()
	if r.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordViewedWrite("duplicate")
		return nil
	}

	err := r.queue.Enqueue(ctx, queue.Mark{Key: key, EnqueuedAt: time.Now()})
	if err == nil {
		metrics.RecordViewedWrite("queued")
		return nil
	}

	r.logger.Warn(ctx, "viewed queue refused mark, writing directly",
		logger.String("key", id),
		logger.Error(err),
	)
	if werr := r.store.MarkViewed(ctx, key); werr != nil {
		r.deduper.Unrecord(ctx, id)
		return fmt.Errorf("mark viewed %s: %w", id, werr)
	}
	metrics.RecordViewedWrite("direct")
	return nil
}

// IsViewed treats a pending mark as viewed.
func (r *viewedRecorder) IsViewed(ctx context.Context, key model.ViewedKey) (bool, error) {
	if r.deduper.Seen(ctx, key.String()) {
		return true, nil
	}
	viewed, err := r.store.IsViewed(ctx, key)
	if err != nil {
		return false, fmt.Errorf("is viewed %s: %w", key, err)
	}
	return viewed, nil
}

// forget is called by the worker pool when a mark could not be persisted.
func (r *viewedRecorder) forget(m queue.Mark, _ error) {
	r.deduper.Unrecord(context.Background(), m.Key.String())
}
