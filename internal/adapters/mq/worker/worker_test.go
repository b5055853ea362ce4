package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/podium/internal/adapters/mq/queue"
	worker "github.com/okian/podium/internal/adapters/mq/worker"
	model "github.com/okian/podium/internal/domain/model"
	logging "github.com/okian/podium/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

type flakyWriter struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
	written  []model.ViewedKey
}

func newFlakyWriter() *flakyWriter {
	return &flakyWriter{failures: map[string]int{}, calls: map[string]int{}}
}

func (w *flakyWriter) failTimes(key model.ViewedKey, n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures[key.String()] = n
}

func (w *flakyWriter) MarkViewed(_ context.Context, key model.ViewedKey) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[key.String()]++
	if w.failures[key.String()] > 0 {
		w.failures[key.String()]--
		return errors.New("store unavailable")
	}
	w.written = append(w.written, key)
	return nil
}

func (w *flakyWriter) snapshot() ([]model.ViewedKey, map[string]int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	calls := make(map[string]int, len(w.calls))
	for k, v := range w.calls {
		calls[k] = v
	}
	return append([]model.ViewedKey(nil), w.written...), calls
}

func key(scope string) model.ViewedKey {
	return model.ViewedKey{ScopeID: scope, Month: model.MustMonthKey(2026, time.September), Kind: model.KindHero}
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker over an in-memory queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		w := newFlakyWriter()

		convey.Convey("When marks are enqueued and the queue is closed", func() {
			convey.So(q.Enqueue(ctx, queue.Mark{Key: key("c1"), EnqueuedAt: time.Now()}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, queue.Mark{Key: key("c2"), EnqueuedAt: time.Now()}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			wk := worker.New(q, w)
			wk.Run(ctx)

			convey.Convey("Then every mark is persisted in order", func() {
				written, _ := w.snapshot()
				convey.So(written, convey.ShouldResemble, []model.ViewedKey{key("c1"), key("c2")})
			})

			convey.Convey("Then Done is closed", func() {
				select {
				case <-wk.Done():
				default:
					t.Fatal("worker Done not closed")
				}
			})
		})

		convey.Convey("When the writer fails transiently", func() {
			w.failTimes(key("c1"), 2)
			convey.So(q.Enqueue(ctx, queue.Mark{Key: key("c1")}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			worker.New(q, w, worker.WithBackoff(time.Millisecond, 2*time.Millisecond)).Run(ctx)

			convey.Convey("Then the mark is retried until it succeeds", func() {
				written, calls := w.snapshot()
				convey.So(written, convey.ShouldHaveLength, 1)
				convey.So(calls[key("c1").String()], convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the writer keeps failing", func() {
			w.failTimes(key("c1"), 100)
			convey.So(q.Enqueue(ctx, queue.Mark{Key: key("c1")}), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			var failed []model.ViewedKey
			worker.New(q, w,
				worker.WithMaxAttempts(3),
				worker.WithBackoff(time.Millisecond, time.Millisecond),
				worker.WithOnFailure(func(m worker.Mark, err error) {
					failed = append(failed, m.Key)
				}),
			).Run(ctx)

			convey.Convey("Then it gives up after the configured attempts", func() {
				_, calls := w.snapshot()
				convey.So(calls[key("c1").String()], convey.ShouldEqual, 3)
				convey.So(failed, convey.ShouldResemble, []model.ViewedKey{key("c1")})
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			wk := worker.New(q, w)
			go wk.Run(cctx)
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-wk.Done():
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		w := newFlakyWriter()
		p := worker.NewPool(3, q, w)
		p.Start(ctx)

		for i := range 20 {
			scope := "c" + string(rune('a'+i))
			convey.So(q.Enqueue(ctx, queue.Mark{Key: key(scope), EnqueuedAt: time.Now()}), convey.ShouldBeNil)
		}

		convey.Convey("When the pool shuts down", func() {
			err := p.Shutdown(ctx)

			convey.Convey("Then pending marks are drained", func() {
				convey.So(err, convey.ShouldBeNil)
				written, _ := w.snapshot()
				convey.So(written, convey.ShouldHaveLength, 20)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})

			convey.Convey("Then a second shutdown is harmless", func() {
				convey.So(p.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}
