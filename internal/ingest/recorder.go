package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/internal/entity"
	"github.com/joseph-ayodele/engagement-analyzer/internal/repository"
)

// Recorder is notified of every batch and artifact transition.
// Errors are logged by the orchestrator and never change outcomes.
type Recorder interface {
	BatchStarted(ctx context.Context, snap BatchResult) error
	ArtifactChanged(ctx context.Context, batchID string, out ArtifactOutcome) error
	BatchFinished(ctx context.Context, snap BatchResult) error
}

// RepositoryRecorder stores transitions through a BatchRepository.
type RepositoryRecorder struct {
	Batches repository.BatchRepository
}

func NewRepositoryRecorder(batches repository.BatchRepository) *RepositoryRecorder {
	return &RepositoryRecorder{Batches: batches}
}

func (r *RepositoryRecorder) BatchStarted(ctx context.Context, snap BatchResult) error {
	return r.Batches.CreateBatch(ctx, toBatchEntity(snap))
}

func (r *RepositoryRecorder) ArtifactChanged(ctx context.Context, batchID string, out ArtifactOutcome) error {
	return r.Batches.RecordArtifact(ctx, toJobEntity(batchID, out))
}

func (r *RepositoryRecorder) BatchFinished(ctx context.Context, snap BatchResult) error {
	b := toBatchEntity(snap)
	now := time.Now().UTC()
	b.FinishedAt = &now
	return r.Batches.FinishBatch(ctx, b)
}

func toBatchEntity(snap BatchResult) entity.IngestBatch {
	b := entity.IngestBatch{
		ID:        snap.ID,
		Aggregate: string(snap.Aggregate),
		Total:     len(snap.Artifacts),
		Succeeded: snap.Succeeded(),
		Failed:    snap.Failed(),
		Rejected:  len(snap.Rejected),
		CreatedAt: snap.CreatedAt,
	}
	if snap.Current != nil {
		id := snap.Current.ArtifactID
		b.CurrentArtifactID = &id
	}
	return b
}

func toJobEntity(batchID string, out ArtifactOutcome) entity.ArtifactJob {
	j := entity.ArtifactJob{
		ID:        out.ArtifactID,
		BatchID:   batchID,
		FileName:  out.DisplayName,
		MediaType: out.MediaType,
		Size:      out.Size,
		Status:    string(out.Status),
		StartedAt: timePtr(out.StartedAt),
		UpdatedAt: time.Now().UTC(),
	}
	j.FinishedAt = timePtr(out.FinishedAt)
	if out.ErrorCode != "" {
		j.ErrorCode = &out.ErrorCode
		j.ErrorMessage = &out.Error
	}
	if res := out.Result; res != nil {
		engine := string(res.Engine)
		j.Engine = &engine
		j.Method = &res.Method
		j.Text = &res.Text
		j.Confidence = res.Quality.Confidence
		j.WordCount = res.Quality.Units.Words
		j.LineCount = res.Quality.Units.Lines
		j.CharCount = res.Quality.Units.Characters
		j.PageCount = res.Quality.PageCount
	}
	return j
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
