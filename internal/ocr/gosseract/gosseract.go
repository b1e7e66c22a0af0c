// Package gosseract provides the in-process OCR engine. Importing it links
// libtesseract through cgo and registers the engine with package ocr.
package gosseract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/engagement-analyzer/internal/ocr"
)

func init() {
	ocr.SetInProcessEngine(func(lang, tessdataDir string, logger *slog.Logger) ocr.Recognizer {
		return New(lang, tessdataDir, logger)
	})
}

// Engine runs OCR in-process through libtesseract.
type Engine struct {
	Lang        string
	TessdataDir string

	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

func New(lang, tessdataDir string, logger *slog.Logger) *Engine {
	if lang == "" {
		lang = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Lang: lang, TessdataDir: tessdataDir, clientFactory: gosseract.NewClient, logger: logger}
}

// Recognize OCRs the image at path. A tesseract call cannot be interrupted once started.
func (e *Engine) Recognize(ctx context.Context, path string) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}
	start := time.Now()

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if e.TessdataDir != "" {
		c.TessdataPrefix = e.TessdataDir
	}
	if err := c.SetLanguage(strings.Split(e.Lang, "+")...); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImage(path); err != nil {
		return ocr.Recognition{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("recognize text: %w", err)
	}

	var warns []string
	words, err := boxes(c, gosseract.RIL_WORD)
	if err != nil {
		warns = append(warns, "word boxes: "+err.Error())
	}
	lines, err := boxes(c, gosseract.RIL_TEXTLINE)
	if err != nil {
		warns = append(warns, "line boxes: "+err.Error())
	}

	e.logger.Debug("ocr.gosseract.ok",
		"words", len(words),
		"lines", len(lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ocr.Recognition{
		Text:       text,
		Confidence: ocr.Round2(ocr.MeanConfidence(words)),
		Words:      words,
		Lines:      lines,
		Method:     "gosseract",
		Language:   e.Lang,
		Warnings:   warns,
	}, nil
}

func boxes(c *gosseract.Client, level gosseract.PageIteratorLevel) ([]ocr.Unit, error) {
	bbs, err := c.GetBoundingBoxes(level)
	if err != nil {
		return nil, err
	}
	units := make([]ocr.Unit, 0, len(bbs))
	for _, b := range bbs {
		txt := strings.TrimSpace(b.Word)
		if txt == "" {
			continue
		}
		units = append(units, ocr.Unit{
			Text:       txt,
			Confidence: ocr.Round2(b.Confidence),
			BBox:       ocr.BBox{X0: b.Box.Min.X, Y0: b.Box.Min.Y, X1: b.Box.Max.X, Y1: b.Box.Max.Y},
		})
	}
	return units, nil
}
