// Package queue holds viewed-flag marks waiting to be persisted.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

const defaultCapacity = 256

// Mark is one pending viewed-flag write.
type Mark struct {
	Key        model.ViewedKey
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a mark. It never blocks; a full or closed queue returns an error.
	Enqueue(ctx context.Context, m Mark) error
	// Dequeue returns the channel marks are delivered on. It is closed after
	// Close once every pending mark has been drained.
	Dequeue() <-chan Mark
	Len() int
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	marks    chan Mark
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.marks = make(chan Mark, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a mark to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Mark) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordError("queue", "closed")
		return ErrClosed
	}
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now()
	}

	select {
	case q.marks <- m:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.marks))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordError("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordError("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan Mark {
	return q.marks
}

// Len returns the current number of pending marks.
func (q *InMemoryQueue) Len() int {
	n := len(q.marks)
	metrics.UpdateQueueSize(n)
	return n
}

// Close stops accepting marks. Pending marks stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.marks)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
