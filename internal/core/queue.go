package core

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

// QueueJob is the smallest useful unit of pipeline work.
type QueueJob struct {
	ID          uuid.UUID
	Request     SubmitRequest
	SubmittedAt time.Time
}

// Queue decouples submission from execution.
type Queue interface {
	Enqueue(ctx context.Context, j QueueJob) error
	Shutdown(ctx context.Context)
}

// PipelineQueue runs registered jobs through the controller on a fixed pool
// of workers.
type PipelineQueue struct {
	ctrl    *Controller
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan QueueJob
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*PipelineQueue)

func WithWorkers(n int) QueueOption {
	return func(q *PipelineQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) QueueOption {
	return func(q *PipelineQueue) {
		if n > 0 {
			q.ch = make(chan QueueJob, n)
		}
	}
}
func WithJobTimeout(d time.Duration) QueueOption {
	return func(q *PipelineQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewPipelineQueue(ctrl *Controller, logger *slog.Logger, opts ...QueueOption) *PipelineQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &PipelineQueue{
		ctrl:    ctrl,
		logger:  logger,
		workers: 2,
		timeout: 15 * time.Minute,
		ch:      make(chan QueueJob, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *PipelineQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for j := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.ctrl.Run(ctx, j.ID, j.Request)
					cancel()

					if err != nil {
						q.logger.Error("pipeline finished with error", "worker_id", workerID, "job_id", j.ID, "error", err)
					} else {
						q.logger.Info("pipeline finished", "worker_id", workerID, "job_id", j.ID,
							"queued_ms", time.Since(j.SubmittedAt).Milliseconds())
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *PipelineQueue) Enqueue(_ context.Context, j QueueJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", j.ID)
		return nil
	}
	select {
	case q.ch <- j:
		q.logger.Info("queued job", "job_id", j.ID)
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", j.ID)
		q.ch <- j
	}
	return nil
}

func (q *PipelineQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
