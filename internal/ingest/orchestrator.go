// Package ingest runs batches of uploaded artifacts through extraction and tracks their status.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/extract"
)

// Extractor is the per-artifact extraction step.
type Extractor interface {
	ExtractArtifact(ctx context.Context, art extract.Artifact) (extract.ExtractionResult, error)
}

// Rejection is an artifact dropped before processing.
type Rejection struct {
	DisplayName string `json:"fileName"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

// Batch is a validated set of artifacts plus their live status.
type Batch struct {
	ID        string
	CreatedAt time.Time
	Artifacts []extract.Artifact
	Rejected  []Rejection

	tracker  *Tracker
	done     chan struct{}
	doneOnce sync.Once
}

// Tracker exposes the live per-artifact status.
func (b *Batch) Tracker() *Tracker { return b.tracker }

// Done is closed once Run or Abort has finished.
func (b *Batch) Done() <-chan struct{} { return b.done }

func (b *Batch) finish() { b.doneOnce.Do(func() { close(b.done) }) }

// Abort fails every artifact that has not finished and marks the batch done.
func (b *Batch) Abort(code, message string) BatchResult {
	for _, art := range b.Artifacts {
		if o, ok := b.tracker.Get(art.ID); ok && !o.Status.Terminal() {
			_, _ = b.tracker.Fail(art.ID, code, message)
		}
	}
	b.finish()
	return b.Snapshot()
}

// Snapshot returns the batch state as seen right now.
func (b *Batch) Snapshot() BatchResult {
	arts, agg, cur := b.tracker.Snapshot()
	return BatchResult{
		ID:        b.ID,
		CreatedAt: b.CreatedAt,
		Artifacts: arts,
		Rejected:  b.Rejected,
		Aggregate: agg,
		Current:   cur,
	}
}

// BatchResult reports every processed artifact, the rejected ones and the aggregate outcome.
type BatchResult struct {
	ID        string                 `json:"batchId"`
	CreatedAt time.Time              `json:"createdAt"`
	Artifacts []ArtifactOutcome      `json:"results"`
	Rejected  []Rejection            `json:"rejected"`
	Aggregate constants.BatchOutcome `json:"aggregate"`
	Current   *CurrentText           `json:"current,omitempty"`
}

// Succeeded counts artifacts in success.
func (r BatchResult) Succeeded() int { return r.count(constants.ArtifactSuccess) }

// Failed counts artifacts in error.
func (r BatchResult) Failed() int { return r.count(constants.ArtifactError) }

func (r BatchResult) count(s constants.ArtifactStatus) int {
	n := 0
	for _, a := range r.Artifacts {
		if a.Status == s {
			n++
		}
	}
	return n
}

// Texts returns every successful extraction's text keyed by display name.
func (r BatchResult) Texts() map[string]string {
	out := make(map[string]string)
	for _, a := range r.Artifacts {
		if a.Status == constants.ArtifactSuccess && a.Result != nil {
			out[a.DisplayName] = a.Result.Text
		}
	}
	return out
}

type Orchestrator struct {
	extractor     Extractor
	recorder      Recorder
	maxConcurrent int
	maxFiles      int
	logger        *slog.Logger
}

type Option func(*Orchestrator)

// WithRecorder persists every status transition.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithMaxConcurrent bounds simultaneous extractions, capped at constants.MaxConcurrentExtractions.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrent = min(n, constants.MaxConcurrentExtractions)
		}
	}
}

func WithMaxFiles(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxFiles = n
		}
	}
}

func NewOrchestrator(ex Extractor, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		extractor:     ex,
		maxConcurrent: constants.MaxConcurrentExtractions,
		maxFiles:      constants.MaxBatchFiles,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Prepare validates the batch shape and drops duplicate names, first occurrence wins.
func (o *Orchestrator) Prepare(artifacts []extract.Artifact) (*Batch, []Rejection, error) {
	if len(artifacts) == 0 {
		return nil, nil, common.NewValidationError(common.CodeEmptyBatch, "No files uploaded")
	}
	if len(artifacts) > o.maxFiles {
		return nil, nil, common.NewValidationError(common.CodeTooManyFiles,
			fmt.Sprintf("Too many files. Maximum is %d files per request.", o.maxFiles))
	}

	seen := make(map[string]struct{}, len(artifacts))
	var kept []extract.Artifact
	var rejected []Rejection
	for _, a := range artifacts {
		name := strings.TrimSpace(a.DisplayName)
		if _, dup := seen[name]; dup {
			rejected = append(rejected, Rejection{
				DisplayName: a.DisplayName,
				Code:        common.CodeDuplicateArtifact,
				Message:     fmt.Sprintf("File %q is already in this batch", a.DisplayName),
			})
			continue
		}
		seen[name] = struct{}{}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		kept = append(kept, a)
	}

	b := &Batch{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Artifacts: kept,
		Rejected:  rejected,
		tracker:   newTracker(kept),
		done:      make(chan struct{}),
	}
	return b, rejected, nil
}

// Run processes every artifact of b. One artifact's failure never cancels its siblings.
func (o *Orchestrator) Run(ctx context.Context, b *Batch) *BatchResult {
	ctx = common.WithBatchID(ctx, b.ID)
	logger := o.logger.With("batch_id", b.ID)
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		logger = logger.With("req_id", rid)
	}
	start := time.Now()
	defer b.finish()

	logger.Info("ingest.batch.start", "artifacts", len(b.Artifacts), "rejected", len(b.Rejected))
	o.recordBatch(ctx, logger, b.Snapshot(), false)

	var g errgroup.Group
	g.SetLimit(o.maxConcurrent)
	for _, art := range b.Artifacts {
		g.Go(func() error {
			o.process(ctx, logger, b, art)
			return nil
		})
	}
	_ = g.Wait()

	res := b.Snapshot()
	logger.Info("ingest.batch.done",
		"aggregate", string(res.Aggregate),
		"succeeded", res.Succeeded(),
		"failed", res.Failed(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	o.recordBatch(ctx, logger, res, true)
	return &res
}

// Ingest is Prepare followed by Run.
func (o *Orchestrator) Ingest(ctx context.Context, artifacts []extract.Artifact) (*BatchResult, error) {
	b, _, err := o.Prepare(artifacts)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, b), nil
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, b *Batch, art extract.Artifact) {
	logger = logger.With("artifact_id", art.ID, "file", art.DisplayName)

	out, err := b.tracker.Start(art.ID)
	if err != nil {
		logger.Error("ingest.artifact.transition", "error", err)
		return
	}
	o.recordArtifact(ctx, logger, b.ID, out)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("ingest.artifact.panic", "panic", r)
			o.finish(ctx, logger, b, art.ID, nil, common.NewEngineError("Failed to extract text", fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := art.Classify(); err != nil {
		o.finish(ctx, logger, b, art.ID, nil, err)
		return
	}
	res, err := o.extractor.ExtractArtifact(ctx, art)
	if err != nil {
		o.finish(ctx, logger, b, art.ID, nil, err)
		return
	}
	o.finish(ctx, logger, b, art.ID, &res, nil)
}

func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, b *Batch, id string, res *extract.ExtractionResult, cause error) {
	var (
		out ArtifactOutcome
		err error
	)
	if cause != nil {
		code := common.CodeOf(cause)
		if code == "" {
			code = common.CodeEngineFailure
		}
		logger.Warn("ingest.artifact.failed", "code", code, "error", cause)
		out, err = b.tracker.Fail(id, code, common.PublicMessage(cause))
	} else {
		logger.Info("ingest.artifact.ok", "words", res.Quality.Units.Words)
		out, err = b.tracker.Succeed(id, *res)
	}
	if err != nil {
		logger.Error("ingest.artifact.transition", "error", err)
		return
	}
	o.recordArtifact(ctx, logger, b.ID, out)
}

func (o *Orchestrator) recordBatch(ctx context.Context, logger *slog.Logger, snap BatchResult, finished bool) {
	if o.recorder == nil {
		return
	}
	var err error
	if finished {
		err = o.recorder.BatchFinished(ctx, snap)
	} else {
		err = o.recorder.BatchStarted(ctx, snap)
	}
	if err != nil {
		logger.Warn("ingest.record.batch_failed", "finished", finished, "error", err)
	}
}

func (o *Orchestrator) recordArtifact(ctx context.Context, logger *slog.Logger, batchID string, out ArtifactOutcome) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.ArtifactChanged(ctx, batchID, out); err != nil {
		logger.Warn("ingest.record.artifact_failed", "status", string(out.Status), "error", err)
	}
}
