// Package analysis runs content through the generative backend and normalizes the answer.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/entity"
	"github.com/joseph-ayodele/engagement-analyzer/internal/llm"
	"github.com/joseph-ayodele/engagement-analyzer/internal/repository"
)

// DefaultTimeout bounds one generative backend call.
const DefaultTimeout = 30 * time.Second

type Input struct {
	Text        string                 `json:"text"`
	ContentType string                 `json:"contentType,omitempty"`
	Platform    string                 `json:"platform,omitempty"`
	Mode        constants.AnalysisMode `json:"mode,omitempty"`
}

type Result struct {
	ID           string                 `json:"id"`
	Analysis     llm.AnalysisRecord     `json:"analysis"`
	OriginalText string                 `json:"originalText"`
	TextLength   int                    `json:"textLength"`
	ContentType  string                 `json:"contentType"`
	Platform     string                 `json:"platform"`
	Mode         constants.AnalysisMode `json:"mode"`
	WasTruncated bool                   `json:"wasTruncated"`
	Timestamp    time.Time              `json:"timestamp"`
	Provider     string                 `json:"provider,omitempty"`
	Model        string                 `json:"model,omitempty"`
}

type Service struct {
	gen      llm.Generator
	repo     repository.AnalysisRepository
	timeout  time.Duration
	validate bool
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithRepository persists every analysis.
func WithRepository(r repository.AnalysisRepository) Option {
	return func(s *Service) { s.repo = r }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithValidation turns schema diagnostics on or off.
func WithValidation(on bool) Option {
	return func(s *Service) { s.validate = on }
}

func NewService(gen llm.Generator, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		gen:      gen,
		timeout:  DefaultTimeout,
		validate: true,
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analyze builds the prompt, calls the backend under the timeout and normalizes the reply.
// Only validation, timeout and backend failures are errors; a malformed reply is a fallback record.
func (s *Service) Analyze(ctx context.Context, in Input) (*Result, error) {
	req, err := llm.BuildRequest(in.Text, in.ContentType, in.Platform, in.Mode)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("mode", string(req.Mode), "platform", req.Platform)
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		logger = logger.With("req_id", rid)
	}
	logger.Info("analysis.start", "text_len", req.OriginalLength, "truncated", req.WasTruncated)

	raw, err := s.generate(ctx, logger, req.Prompt, "Failed to analyze content")
	if err != nil {
		return nil, err
	}

	rec := llm.Normalize(raw, req.Mode)
	if rec.IsFallback() {
		logger.Warn("analysis.normalize.fallback", "parse_failed", rec.RawFallback.ParseFailed, "raw_len", len(raw))
	} else if s.validate {
		if verr := llm.ValidateRecord(rec, req.Mode); verr != nil {
			logger.Warn("analysis.schema.mismatch", "error", verr)
		}
	}

	res := &Result{
		ID:           uuid.NewString(),
		Analysis:     rec,
		OriginalText: in.Text,
		TextLength:   req.OriginalLength,
		ContentType:  req.ContentType,
		Platform:     req.Platform,
		Mode:         req.Mode,
		WasTruncated: req.WasTruncated,
		Timestamp:    s.now().UTC(),
	}
	if d, ok := s.gen.(llm.Describer); ok {
		res.Provider, res.Model = d.Provider(), d.Model()
	}
	s.persist(ctx, logger, res)

	logger.Info("analysis.done", "analysis_id", res.ID, "fallback", rec.IsFallback(), "fields", len(rec.Fields()))
	return res, nil
}

// Tips asks the backend for general engagement tips; unparsable replies come back as {"rawTips": ...}.
func (s *Service) Tips(ctx context.Context) (json.RawMessage, error) {
	raw, err := s.generate(ctx, s.logger, llm.TipsPrompt(), "Failed to generate tips")
	if err != nil {
		return nil, err
	}
	return llm.NormalizeLoose(raw, "rawTips"), nil
}

// Models lists backend models, or just the configured one when the backend cannot list.
func (s *Service) Models(ctx context.Context) ([]llm.ModelInfo, error) {
	lister, ok := s.gen.(llm.ModelLister)
	if !ok {
		if d, ok := s.gen.(llm.Describer); ok {
			return []llm.ModelInfo{{Name: d.Model()}}, nil
		}
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		s.logger.Error("analysis.models.failed", "error", err)
		if isTimeout(ctx, err) {
			return nil, common.NewTimeoutError(common.CodeAnalysisTimeout, "Listing models timed out", err)
		}
		return nil, common.NewEngineError("Failed to list models", err)
	}
	return models, nil
}

// Get loads a stored analysis.
func (s *Service) Get(ctx context.Context, id string) (*Result, error) {
	if s.repo == nil {
		return nil, common.NewNotFoundError(fmt.Sprintf("analysis %s not found", id))
	}
	row, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromEntity(row)
}

// List returns the newest stored analyses.
func (s *Service) List(ctx context.Context, limit int) ([]Result, error) {
	if s.repo == nil {
		return nil, nil
	}
	rows, err := s.repo.ListAnalyses(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(rows))
	for i := range rows {
		r, err := fromEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *Service) generate(ctx context.Context, logger *slog.Logger, prompt, failure string) (string, error) {
	if s.gen == nil {
		return "", common.NewEngineError(failure, errors.New("no generative backend configured"))
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.gen.Generate(ctx, prompt)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		if isTimeout(ctx, err) {
			logger.Error("analysis.generate.timeout", "timeout", s.timeout.String(), "error", err, "elapsed_ms", elapsed)
			return "", common.NewTimeoutError(common.CodeAnalysisTimeout,
				fmt.Sprintf("Analysis timed out after %s", s.timeout), err)
		}
		logger.Error("analysis.generate.failed", "error", err, "elapsed_ms", elapsed)
		return "", common.NewEngineError(failure, err)
	}
	logger.Debug("analysis.generate.ok", "raw_len", len(raw), "elapsed_ms", elapsed)
	return raw, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (s *Service) persist(ctx context.Context, logger *slog.Logger, res *Result) {
	if s.repo == nil {
		return
	}
	rec, err := json.Marshal(res.Analysis)
	if err != nil {
		logger.Warn("analysis.persist.encode_failed", "error", err)
		return
	}
	row := entity.Analysis{
		ID:           res.ID,
		Mode:         string(res.Mode),
		ContentType:  res.ContentType,
		Platform:     res.Platform,
		OriginalText: res.OriginalText,
		TextLength:   res.TextLength,
		WasTruncated: res.WasTruncated,
		Record:       rec,
		Fallback:     res.Analysis.IsFallback(),
		Provider:     res.Provider,
		Model:        res.Model,
		CreatedAt:    res.Timestamp,
	}
	if err := s.repo.SaveAnalysis(ctx, row); err != nil {
		logger.Warn("analysis.persist.failed", "analysis_id", res.ID, "error", err)
	}
}

func fromEntity(row *entity.Analysis) (*Result, error) {
	var rec llm.AnalysisRecord
	if err := json.Unmarshal(row.Record, &rec); err != nil {
		return nil, fmt.Errorf("decode stored analysis %s: %w", row.ID, err)
	}
	return &Result{
		ID:           row.ID,
		Analysis:     rec,
		OriginalText: row.OriginalText,
		TextLength:   row.TextLength,
		ContentType:  row.ContentType,
		Platform:     row.Platform,
		Mode:         constants.AnalysisMode(row.Mode),
		WasTruncated: row.WasTruncated,
		Timestamp:    row.CreatedAt,
		Provider:     row.Provider,
		Model:        row.Model,
	}, nil
}
