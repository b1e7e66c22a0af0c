package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/entity"
)

type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, a entity.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*entity.Analysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]entity.Analysis, error)
}

type analysisRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewAnalysisRepository(db *DB, logger *slog.Logger) AnalysisRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &analysisRepository{db: db, logger: logger}
}

var analysisColumns = []string{
	"id", "mode", "content_type", "platform", "original_text", "text_length",
	"was_truncated", "record", "fallback", "provider", "model", "created_at",
}

func (r *analysisRepository) SaveAnalysis(ctx context.Context, a entity.Analysis) error {
	_, err := r.db.Builder().
		Insert("analyses").
		Columns(analysisColumns...).
		Values(a.ID, a.Mode, a.ContentType, a.Platform, a.OriginalText, a.TextLength,
			a.WasTruncated, string(a.Record), a.Fallback, a.Provider, a.Model, toMillis(a.CreatedAt)).
		RunWith(r.db.SQL).
		ExecContext(ctx)
	if err != nil {
		r.logger.Error("analysis save failed", "analysis_id", a.ID, "error", err)
		return fmt.Errorf("insert analysis: %w", err)
	}
	r.logger.Debug("analysis saved", "analysis_id", a.ID, "mode", a.Mode)
	return nil
}

func (r *analysisRepository) GetAnalysis(ctx context.Context, id string) (*entity.Analysis, error) {
	row := r.db.Builder().
		Select(analysisColumns...).
		From("analyses").
		Where(sq.Eq{"id": id}).
		RunWith(r.db.SQL).
		QueryRowContext(ctx)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("analysis %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("select analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns the newest analyses first.
func (r *analysisRepository) ListAnalyses(ctx context.Context, limit int) ([]entity.Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Builder().
		Select(analysisColumns...).
		From("analyses").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		RunWith(r.db.SQL).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []entity.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func scanAnalysis(s sq.RowScanner) (*entity.Analysis, error) {
	var (
		a       entity.Analysis
		record  string
		created int64
	)
	if err := s.Scan(&a.ID, &a.Mode, &a.ContentType, &a.Platform, &a.OriginalText, &a.TextLength,
		&a.WasTruncated, &record, &a.Fallback, &a.Provider, &a.Model, &created); err != nil {
		return nil, err
	}
	a.Record = []byte(record)
	a.CreatedAt = fromMillis(created)
	return &a, nil
}
