package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/entity"
)

type BatchRepository interface {
	CreateBatch(ctx context.Context, b entity.IngestBatch) error
	RecordArtifact(ctx context.Context, job entity.ArtifactJob) error
	FinishBatch(ctx context.Context, b entity.IngestBatch) error
	GetBatch(ctx context.Context, id string) (*entity.IngestBatch, []entity.ArtifactJob, error)
}

type batchRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewBatchRepository(db *DB, logger *slog.Logger) BatchRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &batchRepository{db: db, logger: logger}
}

func (r *batchRepository) CreateBatch(ctx context.Context, b entity.IngestBatch) error {
	_, err := r.db.Builder().
		Insert("ingest_batches").
		Columns("id", "aggregate", "total", "succeeded", "failed", "rejected", "created_at").
		Values(b.ID, b.Aggregate, b.Total, b.Succeeded, b.Failed, b.Rejected, toMillis(b.CreatedAt)).
		RunWith(r.db.SQL).
		ExecContext(ctx)
	if err != nil {
		r.logger.Error("batch create failed", "batch_id", b.ID, "error", err)
		return fmt.Errorf("insert batch: %w", err)
	}
	r.logger.Debug("batch created", "batch_id", b.ID, "total", b.Total)
	return nil
}

var artifactColumns = []string{
	"id", "batch_id", "file_name", "media_type", "size", "status", "engine", "method", "text",
	"confidence", "word_count", "line_count", "char_count", "page_count", "error_code",
	"error_message", "started_at", "finished_at", "updated_at",
}

// RecordArtifact upserts the artifact row by id.
func (r *batchRepository) RecordArtifact(ctx context.Context, job entity.ArtifactJob) error {
	updated := job.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.Builder().
		Insert("artifact_jobs").
		Columns(artifactColumns...).
		Values(
			job.ID, job.BatchID, job.FileName, job.MediaType, job.Size, job.Status, job.Engine, job.Method, job.Text,
			job.Confidence, job.WordCount, job.LineCount, job.CharCount, job.PageCount, job.ErrorCode,
			job.ErrorMessage, toMillisPtr(job.StartedAt), toMillisPtr(job.FinishedAt), toMillis(updated),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			engine = excluded.engine,
			method = excluded.method,
			text = excluded.text,
			confidence = excluded.confidence,
			word_count = excluded.word_count,
			line_count = excluded.line_count,
			char_count = excluded.char_count,
			page_count = excluded.page_count,
			error_code = excluded.error_code,
			error_message = excluded.error_message,
			started_at = COALESCE(excluded.started_at, artifact_jobs.started_at),
			finished_at = excluded.finished_at,
			updated_at = excluded.updated_at`).
		RunWith(r.db.SQL).
		ExecContext(ctx)
	if err != nil {
		r.logger.Error("artifact record failed", "artifact_id", job.ID, "status", job.Status, "error", err)
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

func (r *batchRepository) FinishBatch(ctx context.Context, b entity.IngestBatch) error {
	finished := time.Now()
	if b.FinishedAt != nil {
		finished = *b.FinishedAt
	}
	res, err := r.db.Builder().
		Update("ingest_batches").
		Set("aggregate", b.Aggregate).
		Set("total", b.Total).
		Set("succeeded", b.Succeeded).
		Set("failed", b.Failed).
		Set("rejected", b.Rejected).
		Set("current_artifact_id", b.CurrentArtifactID).
		Set("finished_at", toMillis(finished)).
		Where(sq.Eq{"id": b.ID}).
		RunWith(r.db.SQL).
		ExecContext(ctx)
	if err != nil {
		r.logger.Error("batch finish failed", "batch_id", b.ID, "error", err)
		return fmt.Errorf("update batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewNotFoundError(fmt.Sprintf("batch %s not found", b.ID))
	}
	r.logger.Info("batch finished", "batch_id", b.ID, "aggregate", b.Aggregate)
	return nil
}

func (r *batchRepository) GetBatch(ctx context.Context, id string) (*entity.IngestBatch, []entity.ArtifactJob, error) {
	var (
		b        entity.IngestBatch
		current  sql.NullString
		created  int64
		finished sql.NullInt64
	)
	err := r.db.Builder().
		Select("id", "aggregate", "total", "succeeded", "failed", "rejected", "current_artifact_id", "created_at", "finished_at").
		From("ingest_batches").
		Where(sq.Eq{"id": id}).
		RunWith(r.db.SQL).
		QueryRowContext(ctx).
		Scan(&b.ID, &b.Aggregate, &b.Total, &b.Succeeded, &b.Failed, &b.Rejected, &current, &created, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, common.NewNotFoundError(fmt.Sprintf("batch %s not found", id))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("select batch: %w", err)
	}
	if current.Valid {
		b.CurrentArtifactID = &current.String
	}
	b.CreatedAt = fromMillis(created)
	b.FinishedAt = fromNullMillis(finished)

	rows, err := r.db.Builder().
		Select(artifactColumns...).
		From("artifact_jobs").
		Where(sq.Eq{"batch_id": id}).
		OrderBy("file_name").
		RunWith(r.db.SQL).
		QueryContext(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("select artifacts: %w", err)
	}
	defer rows.Close()

	var jobs []entity.ArtifactJob
	for rows.Next() {
		var (
			j                 entity.ArtifactJob
			started, finished sql.NullInt64
			updated           int64
		)
		if err := rows.Scan(
			&j.ID, &j.BatchID, &j.FileName, &j.MediaType, &j.Size, &j.Status, &j.Engine, &j.Method, &j.Text,
			&j.Confidence, &j.WordCount, &j.LineCount, &j.CharCount, &j.PageCount, &j.ErrorCode,
			&j.ErrorMessage, &started, &finished, &updated,
		); err != nil {
			return nil, nil, fmt.Errorf("scan artifact: %w", err)
		}
		j.StartedAt = fromNullMillis(started)
		j.FinishedAt = fromNullMillis(finished)
		j.UpdatedAt = fromMillis(updated)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration: %w", err)
	}
	return &b, jobs, nil
}
