package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type BatchQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// senders counts Enqueue calls past the closed check; ch is closed only after they return.
	mu      sync.Mutex
	closed  bool
	quit    chan struct{}
	senders sync.WaitGroup
}

type Option func(*BatchQueue)

func WithWorkers(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *BatchQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewBatchQueue(proc Processor, logger *slog.Logger, opts ...Option) *BatchQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &BatchQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 64),
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *BatchQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *BatchQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Info("worker started", "worker_id", workerID)

	for job := range q.ch {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.run(ctx, job)
		cancel()

		if err != nil {
			q.logger.Error("batch processing failed", "worker_id", workerID, "batch_id", job.BatchID, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
		} else {
			q.logger.Info("batch processed", "worker_id", workerID, "batch_id", job.BatchID,
				"waited_ms", start.Sub(job.SubmittedAt).Milliseconds(),
				"elapsed_ms", time.Since(start).Milliseconds())
		}
	}

	q.logger.Info("worker stopped", "worker_id", workerID)
}

func (q *BatchQueue) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("batch processing panicked", "batch_id", job.BatchID, "panic", r)
			err = ErrWorkerPanic
		}
	}()
	return q.proc.Process(ctx, job)
}

// Enqueue blocks while the queue is full, until ctx is done or Shutdown starts.
func (q *BatchQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "batch_id", job.BatchID)
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.ch <- job:
		q.logger.Info("queued batch for processing", "batch_id", job.BatchID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "batch_id", job.BatchID)
	select {
	case q.ch <- job:
		return nil
	case <-q.quit:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
// Enqueue calls blocked on a full queue return ErrQueueClosed.
func (q *BatchQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	q.senders.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
