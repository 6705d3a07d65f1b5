package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRefreshQueueSize = 64
	refreshTaskTimeout      = 30 * time.Second
)

// RefreshTask asks for a best-effort recomputation of derived state after a
// user's data changed, such as a fresh inquiry response.
type RefreshTask struct {
	UserID uuid.UUID
	Reason string
}

// RefreshFunc handles one task. Failures are logged, never retried.
type RefreshFunc func(ctx context.Context, task RefreshTask) error

// RefreshDispatcher runs refresh tasks on a single background worker behind a
// bounded queue. Enqueue never blocks: when the queue is full the task is
// dropped, since a later data change will trigger the same refresh anyway.
type RefreshDispatcher struct {
	fn     RefreshFunc
	logger *zap.Logger

	queue  chan RefreshTask
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRefreshDispatcher(fn RefreshFunc, logger *zap.Logger) *RefreshDispatcher {
	return &RefreshDispatcher{
		fn:     fn,
		logger: logger,
		queue:  make(chan RefreshTask, defaultRefreshQueueSize),
		stopCh: make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (d *RefreshDispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		d.logger.Info("refresh dispatcher started")

		for {
			select {
			case task := <-d.queue:
				d.run(task)
			case <-d.stopCh:
				d.logger.Info("refresh dispatcher stopped")
				return
			}
		}
	}()
}

// Stop drains nothing; queued tasks that have not started are discarded.
func (d *RefreshDispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// Enqueue submits a task without blocking. It reports whether the task was
// accepted.
func (d *RefreshDispatcher) Enqueue(task RefreshTask) bool {
	select {
	case d.queue <- task:
		return true
	default:
		d.logger.Warn("refresh queue full, dropping task",
			zap.String("user_id", task.UserID.String()),
			zap.String("reason", task.Reason))
		return false
	}
}

func (d *RefreshDispatcher) run(task RefreshTask) {
	if d.fn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshTaskTimeout)
	defer cancel()

	if err := d.fn(ctx, task); err != nil {
		d.logger.Warn("refresh task failed",
			zap.String("user_id", task.UserID.String()),
			zap.String("reason", task.Reason),
			zap.Error(err))
	}
}
