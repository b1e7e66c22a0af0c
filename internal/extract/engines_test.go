package extract

import (
	"context"
	"log/slog"
	"testing"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ocr"
)

type stubRecognizer struct{}

func (stubRecognizer) Recognize(context.Context, string) (ocr.Recognition, error) {
	return ocr.Recognition{Method: "stub"}, nil
}

func TestNewEnginesFallsBackWithoutInProcessEngine(t *testing.T) {
	ocr.SetInProcessEngine(nil)
	pdf, img := NewEngines(common.OCRConfig{Engine: "gosseract", PDFEngine: "native"}, nil)
	if _, ok := img.(*ocr.TesseractCLI); !ok {
		t.Errorf("image engine = %T, want *ocr.TesseractCLI", img)
	}
	if _, ok := pdf.(*ocr.NativePDF); !ok {
		t.Errorf("pdf engine = %T, want *ocr.NativePDF", pdf)
	}
}

func TestNewEnginesUsesRegisteredEngine(t *testing.T) {
	ocr.SetInProcessEngine(func(string, string, *slog.Logger) ocr.Recognizer { return stubRecognizer{} })
	t.Cleanup(func() { ocr.SetInProcessEngine(nil) })

	_, img := NewEngines(common.OCRConfig{Engine: "gosseract"}, nil)
	if _, ok := img.(stubRecognizer); !ok {
		t.Errorf("image engine = %T, want registered engine", img)
	}
	_, img = NewEngines(common.OCRConfig{Engine: "tesseract-cli", PDFEngine: "pdftotext"}, nil)
	if _, ok := img.(*ocr.TesseractCLI); !ok {
		t.Errorf("tesseract-cli config gave %T", img)
	}
}
