package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ocr"
	"github.com/joseph-ayodele/engagement-analyzer/internal/textstats"
)

type Config struct {
	// TempDir is the parent for per-invocation scratch dirs; empty means os.TempDir().
	TempDir string
	// DetectLanguage fills Quality.Language from the extracted text.
	DetectLanguage bool
}

// Adapter is the single entry point from artifact bytes to ExtractionResult.
type Adapter struct {
	cfg    Config
	pdf    PDFEngine
	image  ImageEngine
	logger *slog.Logger
}

func NewAdapter(cfg Config, pdf PDFEngine, image ImageEngine, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{cfg: cfg, pdf: pdf, image: image, logger: logger}
}

// Extract classifies raw bytes by declared media type and extracts them.
func (a *Adapter) Extract(ctx context.Context, data []byte, mediaType string) (ExtractionResult, error) {
	art := Artifact{
		ID:          uuid.NewString(),
		DisplayName: "upload." + constants.ExtForMediaType(mediaType),
		MediaType:   mediaType,
		Size:        int64(len(data)),
		Data:        data,
	}
	return a.ExtractArtifact(ctx, art)
}

// ExtractArtifact runs validate -> extract -> cleanup for one artifact.
// Scratch storage is created per call and removed on every return path.
func (a *Adapter) ExtractArtifact(ctx context.Context, art Artifact) (ExtractionResult, error) {
	if art.Kind == KindUnknown {
		if err := art.Classify(); err != nil {
			a.logger.Warn("extract.rejected", "artifact_id", art.ID, "file", art.DisplayName, "media_type", art.MediaType, "error", err)
			return ExtractionResult{ArtifactID: art.ID}, err
		}
	}
	start := time.Now()

	tmpDir, err := os.MkdirTemp(a.cfg.TempDir, "ea-artifact-*")
	if err != nil {
		return ExtractionResult{ArtifactID: art.ID}, common.NewEngineError("Failed to stage uploaded file", err)
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			a.logger.Warn("extract.cleanup_failed", "dir", path, "error", err)
		}
	}(tmpDir)

	path := filepath.Join(tmpDir, "artifact."+constants.ExtForMediaType(art.MediaType))
	if err := os.WriteFile(path, art.Data, 0o600); err != nil {
		return ExtractionResult{ArtifactID: art.ID}, common.NewEngineError("Failed to stage uploaded file", err)
	}

	a.logger.Debug("extract.dispatch", "artifact_id", art.ID, "file", art.DisplayName, "kind", art.Kind.String(), "bytes", len(art.Data))

	var res ExtractionResult
	switch art.Kind {
	case KindPDF:
		res, err = a.extractPDF(ctx, path)
	case KindImage:
		res, err = a.extractImage(ctx, art, path, tmpDir)
	default:
		err = fmt.Errorf("unclassified artifact kind %d", art.Kind)
	}
	res.ArtifactID = art.ID
	res.Duration = time.Since(start)

	if err != nil {
		a.logger.Error("extract.failed",
			"artifact_id", art.ID,
			"file", art.DisplayName,
			"kind", art.Kind.String(),
			"error", err,
			"elapsed_ms", res.Duration.Milliseconds(),
		)
		var ae *common.AppError
		if errors.As(err, &ae) {
			return res, err
		}
		return res, common.NewEngineError(engineFailureMessage(art.Kind), err)
	}

	if a.cfg.DetectLanguage {
		res.Quality.Language = textstats.DetectLanguage(res.Text)
	}
	a.logger.Info("extract.ok",
		"artifact_id", art.ID,
		"file", art.DisplayName,
		"engine", string(res.Engine),
		"method", res.Method,
		"words", res.Quality.Units.Words,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (a *Adapter) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	if a.pdf == nil {
		return ExtractionResult{Engine: constants.EnginePDF}, errors.New("no pdf engine configured")
	}
	doc, err := a.pdf.ExtractPDF(ctx, path)
	if err != nil {
		return ExtractionResult{Engine: constants.EnginePDF, Quality: Quality{Warnings: doc.Warnings}}, err
	}
	return ExtractionResult{
		Text:   doc.Text,
		Engine: constants.EnginePDF,
		Method: doc.Method,
		Quality: Quality{
			Units:     textstats.Count(doc.Text),
			PageCount: doc.Pages,
			Info:      doc.Info,
			Warnings:  doc.Warnings,
		},
	}, nil
}

func (a *Adapter) extractImage(ctx context.Context, art Artifact, path, tmpDir string) (ExtractionResult, error) {
	if a.image == nil {
		return ExtractionResult{Engine: constants.EngineOCR}, errors.New("no ocr engine configured")
	}

	var warns []string
	var width, height int
	info, perr := ocr.ProbeImage(art.Data)
	if perr != nil {
		warns = append(warns, perr.Error())
	} else {
		width, height = info.Width, info.Height
		if ocr.NeedsTranscode(info.Format) {
			out, terr := ocr.TranscodeToPNG(path, tmpDir)
			if terr != nil {
				warns = append(warns, "transcode: "+terr.Error())
			} else {
				path = out
			}
		}
	}

	rec, err := a.image.Recognize(ctx, path)
	if err != nil {
		return ExtractionResult{Engine: constants.EngineOCR, Quality: Quality{Warnings: append(warns, rec.Warnings...)}}, err
	}

	units := textstats.Count(rec.Text)
	if len(rec.Words) > 0 {
		units.Words = len(rec.Words)
	}
	if len(rec.Lines) > 0 {
		units.Lines = len(rec.Lines)
	}
	conf := ocr.Round2(rec.Confidence)

	return ExtractionResult{
		Text:   rec.Text,
		Engine: constants.EngineOCR,
		Method: rec.Method,
		Quality: Quality{
			Confidence: &conf,
			Units:      units,
			Words:      rec.Words,
			Lines:      rec.Lines,
			Width:      width,
			Height:     height,
			Warnings:   append(warns, rec.Warnings...),
		},
	}, nil
}

func engineFailureMessage(k Kind) string {
	if k == KindPDF {
		return "Failed to extract text from PDF"
	}
	return "Failed to extract text from image"
}
