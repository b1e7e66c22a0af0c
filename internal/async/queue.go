package async

import (
	"context"
	"errors"
	"time"
)

// Job asks a worker to run one prepared ingestion batch.
type Job struct {
	BatchID     string
	SubmittedAt time.Time
	TraceID     string
}

// Processor runs a single job.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// ErrWorkerPanic reports a job whose processor panicked.
var ErrWorkerPanic = errors.New("batch processor panicked")
