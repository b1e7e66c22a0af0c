package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/extract"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ingest"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ocr"
)

type pdfExtractData struct {
	FileName       string            `json:"fileName"`
	ExtractedText  string            `json:"extractedText"`
	PageCount      int               `json:"pageCount"`
	Info           map[string]string `json:"info,omitempty"`
	CharacterCount int               `json:"characterCount"`
	WordCount      int               `json:"wordCount"`
	LineCount      int               `json:"lineCount"`
	Language       string            `json:"language,omitempty"`
	Engine         string            `json:"engine"`
	Method         string            `json:"method"`
	Warnings       []string          `json:"warnings,omitempty"`
}

type imageExtractData struct {
	FileName       string     `json:"fileName"`
	ExtractedText  string     `json:"extractedText"`
	Confidence     float64    `json:"confidence"`
	WordCount      int        `json:"wordCount"`
	LineCount      int        `json:"lineCount"`
	CharacterCount int        `json:"characterCount"`
	Words          []ocr.Unit `json:"words"`
	Lines          []ocr.Unit `json:"lines"`
	Language       string     `json:"language,omitempty"`
	Engine         string     `json:"engine"`
	Method         string     `json:"method"`
	Width          int        `json:"width,omitempty"`
	Height         int        `json:"height,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
}

type multiExtractData struct {
	BatchID               string                   `json:"batchId"`
	TotalFiles            int                      `json:"totalFiles"`
	SuccessfulExtractions int                      `json:"successfulExtractions"`
	FailedExtractions     int                      `json:"failedExtractions"`
	Aggregate             constants.BatchOutcome   `json:"aggregate"`
	CurrentText           *ingest.CurrentText      `json:"currentText,omitempty"`
	Results               []ingest.ArtifactOutcome `json:"results"`
	Rejected              []ingest.Rejection       `json:"rejected"`
}

// readArtifacts parses the multipart body and returns the files under field.
// Oversized files keep their declared size and no data so classification rejects them.
func readArtifacts(w http.ResponseWriter, r *http.Request, field string) ([]extract.Artifact, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, common.NewValidationError(common.CodeArtifactTooLarge, "Upload is too large. The limit is 10MB per file.")
		}
		return nil, common.NewValidationError(common.CodeInvalidRequest, "Expected a multipart/form-data upload")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fhs := r.MultipartForm.File[field]
	arts := make([]extract.Artifact, 0, len(fhs))
	for _, fh := range fhs {
		art, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		arts = append(arts, art)
	}
	return arts, nil
}

func readPart(fh *multipart.FileHeader) (extract.Artifact, error) {
	art := extract.Artifact{
		DisplayName: filepath.Base(fh.Filename),
		Size:        fh.Size,
	}
	if fh.Size <= constants.MaxArtifactBytes {
		f, err := fh.Open()
		if err != nil {
			return art, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return art, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		art.Data = data
	}
	art.MediaType = mediaTypeOf(fh.Header.Get("Content-Type"), fh.Filename, art.Data)
	return art, nil
}

// mediaTypeOf trusts a specific declared type, then the extension, then the bytes.
func mediaTypeOf(declared, name string, data []byte) string {
	mt := constants.NormalizeMediaType(declared)
	if mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if byExt := constants.MediaTypeForExt(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	if len(data) > 0 {
		return constants.NormalizeMediaType(http.DetectContentType(data))
	}
	return mt
}

func single(arts []extract.Artifact, missing string) (extract.Artifact, error) {
	if len(arts) == 0 {
		return extract.Artifact{}, common.NewValidationError(common.CodeEmptyBatch, missing)
	}
	return arts[0], nil
}

func (a *API) extractPDF(w http.ResponseWriter, r *http.Request) {
	const title = "Failed to extract text from PDF"
	ctx := r.Context()
	arts, err := readArtifacts(w, r, "pdf")
	if err == nil {
		var art extract.Artifact
		art, err = single(arts, "No PDF file uploaded")
		if err == nil && !constants.IsPDF(art.MediaType) {
			err = common.NewValidationError(common.CodeUnsupportedMediaType, "Invalid file type. Only PDF files are allowed.")
		}
		if err == nil {
			var res extract.ExtractionResult
			res, err = a.extractor.ExtractArtifact(ctx, art)
			if err == nil {
				q := res.Quality
				writeData(w, http.StatusOK, pdfExtractData{
					FileName:       art.DisplayName,
					ExtractedText:  res.Text,
					PageCount:      q.PageCount,
					Info:           q.Info,
					CharacterCount: q.Units.Characters,
					WordCount:      q.Units.Words,
					LineCount:      q.Units.Lines,
					Language:       q.Language,
					Engine:         string(res.Engine),
					Method:         res.Method,
					Warnings:       q.Warnings,
				})
				return
			}
		}
	}
	a.fail(ctx, w, "http.pdf.extract", title, err)
}

func (a *API) extractImage(w http.ResponseWriter, r *http.Request) {
	const title = "Failed to extract text from image"
	ctx := r.Context()
	arts, err := readArtifacts(w, r, "image")
	if err == nil {
		var art extract.Artifact
		art, err = single(arts, "No image file uploaded")
		if err == nil && !constants.IsSupportedImage(art.MediaType) {
			err = common.NewValidationError(common.CodeUnsupportedMediaType, "Invalid file type. Only image files are allowed.")
		}
		if err == nil {
			var res extract.ExtractionResult
			res, err = a.extractor.ExtractArtifact(ctx, art)
			if err == nil {
				writeData(w, http.StatusOK, toImageData(art.DisplayName, res))
				return
			}
		}
	}
	a.fail(ctx, w, "http.ocr.extract", title, err)
}

func toImageData(name string, res extract.ExtractionResult) imageExtractData {
	q := res.Quality
	d := imageExtractData{
		FileName:       name,
		ExtractedText:  res.Text,
		WordCount:      q.Units.Words,
		LineCount:      q.Units.Lines,
		CharacterCount: q.Units.Characters,
		Words:          q.Words,
		Lines:          q.Lines,
		Language:       q.Language,
		Engine:         string(res.Engine),
		Method:         res.Method,
		Width:          q.Width,
		Height:         q.Height,
		Warnings:       q.Warnings,
	}
	if q.Confidence != nil {
		d.Confidence = *q.Confidence
	}
	if d.Words == nil {
		d.Words = []ocr.Unit{}
	}
	if d.Lines == nil {
		d.Lines = []ocr.Unit{}
	}
	return d
}

// splitImages moves non-image artifacts into rejections so they never reach the orchestrator.
func splitImages(arts []extract.Artifact) ([]extract.Artifact, []ingest.Rejection) {
	var kept []extract.Artifact
	var rejected []ingest.Rejection
	for _, art := range arts {
		if constants.IsSupportedImage(art.MediaType) {
			kept = append(kept, art)
			continue
		}
		rejected = append(rejected, ingest.Rejection{
			DisplayName: art.DisplayName,
			Code:        common.CodeUnsupportedMediaType,
			Message:     "Invalid file type. Only image files are allowed.",
		})
	}
	return kept, rejected
}

func checkCount(arts []extract.Artifact, missing string) error {
	if len(arts) == 0 {
		return common.NewValidationError(common.CodeEmptyBatch, missing)
	}
	if len(arts) > constants.MaxBatchFiles {
		return common.NewValidationError(common.CodeTooManyFiles,
			fmt.Sprintf("Too many files. Maximum is %d files per request.", constants.MaxBatchFiles))
	}
	return nil
}

func (a *API) extractImages(w http.ResponseWriter, r *http.Request) {
	const title = "Failed to process multiple images"
	ctx := r.Context()
	arts, err := readArtifacts(w, r, "images")
	if err == nil {
		err = checkCount(arts, "No image files uploaded")
	}
	if err != nil {
		a.fail(ctx, w, "http.ocr.extract_multiple", title, err)
		return
	}

	images, wrongType := splitImages(arts)
	if len(images) == 0 {
		a.fail(ctx, w, "http.ocr.extract_multiple", title,
			common.NewValidationError(common.CodeUnsupportedMediaType, "Invalid file type. Only image files are allowed."))
		return
	}
	b, _, err := a.orchestrator.Prepare(images)
	if err != nil {
		a.fail(ctx, w, "http.ocr.extract_multiple", title, err)
		return
	}
	b.Rejected = append(b.Rejected, wrongType...)
	a.registry.Put(b)

	res := a.orchestrator.Run(ctx, b)
	rejected := res.Rejected
	if rejected == nil {
		rejected = []ingest.Rejection{}
	}
	writeData(w, http.StatusOK, multiExtractData{
		BatchID:               res.ID,
		TotalFiles:            len(arts),
		SuccessfulExtractions: res.Succeeded(),
		FailedExtractions:     res.Failed() + len(res.Rejected),
		Aggregate:             res.Aggregate,
		CurrentText:           res.Current,
		Results:               res.Artifacts,
		Rejected:              rejected,
	})
}
