// Package extract turns uploaded artifacts into text by dispatching to a PDF or OCR engine.
package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ocr"
	"github.com/joseph-ayodele/engagement-analyzer/internal/textstats"
)

// PDFEngine reads text out of a PDF on disk.
type PDFEngine interface {
	ExtractPDF(ctx context.Context, path string) (ocr.PDFDocument, error)
}

// ImageEngine OCRs an image on disk.
type ImageEngine interface {
	Recognize(ctx context.Context, path string) (ocr.Recognition, error)
}

// Kind is the variant an artifact was classified into.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// Artifact is one uploaded file. Identity within a batch is DisplayName.
type Artifact struct {
	ID          string
	DisplayName string
	MediaType   string
	Size        int64
	Data        []byte

	// Kind is set once by Classify; zero means not yet classified.
	Kind Kind
}

// Quality is the engine-reported metadata kept next to the extracted text.
type Quality struct {
	Confidence *float64          `json:"confidence,omitempty"`
	Units      textstats.Counts  `json:"unitCounts"`
	PageCount  int               `json:"pageCount,omitempty"`
	Info       map[string]string `json:"info,omitempty"`
	Words      []ocr.Unit        `json:"words,omitempty"`
	Lines      []ocr.Unit        `json:"lines,omitempty"`
	Language   string            `json:"language,omitempty"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// ExtractionResult is produced exactly once per artifact.
type ExtractionResult struct {
	ArtifactID string                     `json:"artifactId"`
	Text       string                     `json:"text"`
	Engine     constants.ExtractionEngine `json:"engine"`
	Method     string                     `json:"method"`
	Quality    Quality                    `json:"quality"`
	Duration   time.Duration              `json:"-"`
}
