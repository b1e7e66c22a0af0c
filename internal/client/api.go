package client

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ingest"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ocr"
)

// Extraction is the data of a single-file extract response, PDF or image.
type Extraction struct {
	FileName       string            `json:"fileName"`
	ExtractedText  string            `json:"extractedText"`
	CharacterCount int               `json:"characterCount"`
	WordCount      int               `json:"wordCount"`
	LineCount      int               `json:"lineCount"`
	PageCount      int               `json:"pageCount,omitempty"`
	Info           map[string]string `json:"info,omitempty"`
	Confidence     *float64          `json:"confidence,omitempty"`
	Words          []ocr.Unit        `json:"words,omitempty"`
	Lines          []ocr.Unit        `json:"lines,omitempty"`
	Language       string            `json:"language,omitempty"`
	Engine         string            `json:"engine,omitempty"`
	Method         string            `json:"method,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// MultiExtraction is the data of the synchronous multi-image response.
type MultiExtraction struct {
	BatchID               string                   `json:"batchId"`
	TotalFiles            int                      `json:"totalFiles"`
	SuccessfulExtractions int                      `json:"successfulExtractions"`
	FailedExtractions     int                      `json:"failedExtractions"`
	Aggregate             constants.BatchOutcome   `json:"aggregate"`
	CurrentText           *ingest.CurrentText      `json:"currentText,omitempty"`
	Results               []ingest.ArtifactOutcome `json:"results"`
	Rejected              []ingest.Rejection       `json:"rejected"`
}

// BatchTicket is returned when a batch is queued.
type BatchTicket struct {
	BatchID   string `json:"batchId"`
	StatusURL string `json:"statusUrl"`
}

type AnalyzeRequest struct {
	Text        string `json:"text"`
	ContentType string `json:"contentType,omitempty"`
	Platform    string `json:"platform,omitempty"`
}

type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// Formats is a supported-formats advertisement.
type Formats struct {
	SupportedFormats   []string `json:"supportedFormats"`
	MaxFileSize        string   `json:"maxFileSize"`
	MaxFilesPerRequest int      `json:"maxFilesPerRequest,omitempty"`
	Features           []string `json:"features,omitempty"`
}

// ExtractPDF uploads one PDF.
func (c *Client) ExtractPDF(ctx context.Context, f File) (*Extraction, error) {
	var out Extraction
	if err := c.postFiles(ctx, "/pdf/extract", "pdf", []File{f}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractImage uploads one image for OCR.
func (c *Client) ExtractImage(ctx context.Context, f File) (*Extraction, error) {
	var out Extraction
	if err := c.postFiles(ctx, "/ocr/extract", "image", []File{f}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Extract routes f to the PDF or OCR endpoint by media type.
func (c *Client) Extract(ctx context.Context, f File) (*Extraction, error) {
	if constants.IsPDF(f.mediaType()) {
		return c.ExtractPDF(ctx, f)
	}
	return c.ExtractImage(ctx, f)
}

// ExtractImages runs several images through OCR in one synchronous batch.
func (c *Client) ExtractImages(ctx context.Context, files []File) (*MultiExtraction, error) {
	var out MultiExtraction
	if err := c.postFiles(ctx, "/ocr/extract-multiple", "images", files, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze requests a full analysis.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*analysis.Result, error) {
	var out analysis.Result
	if err := c.postJSON(ctx, "/analysis/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuickAnalyze requests the short analysis of text.
func (c *Client) QuickAnalyze(ctx context.Context, text string) (*analysis.Result, error) {
	var out analysis.Result
	if err := c.postJSON(ctx, "/analysis/quick-analyze", AnalyzeRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalysisRecord fetches a stored analysis.
func (c *Client) AnalysisRecord(ctx context.Context, id string) (*analysis.Result, error) {
	var out analysis.Result
	if err := c.getJSON(ctx, "/analysis/records/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Tips(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.getJSON(ctx, "/analysis/tips", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Models(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.getJSON(ctx, "/analysis/models", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Formats returns the PDF and image capability advertisements.
func (c *Client) Formats(ctx context.Context) (pdf, image Formats, err error) {
	if err = c.getJSON(ctx, "/pdf/supported-formats", &pdf); err != nil {
		return
	}
	err = c.getJSON(ctx, "/ocr/supported-formats", &image)
	return
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitBatch queues PDFs and images for background extraction.
func (c *Client) SubmitBatch(ctx context.Context, files []File) (*BatchTicket, error) {
	var out BatchTicket
	if err := c.postFiles(ctx, "/ingest/batches", "files", files, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BatchStatus(ctx context.Context, id string) (*ingest.BatchResult, error) {
	var out ingest.BatchResult
	if err := c.getJSON(ctx, "/ingest/batches/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportBatch writes the batch workbook to w.
func (c *Client) ExportBatch(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.download(ctx, "/ingest/batches/"+url.PathEscape(id)+"/export.xlsx", w)
}

// ExportAnalysis writes the analysis workbook to w.
func (c *Client) ExportAnalysis(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.download(ctx, "/analysis/records/"+url.PathEscape(id)+"/export.xlsx", w)
}
