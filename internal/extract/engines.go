package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ocr"
)

// NewEngines picks the PDF and image engines named in cfg.
// The gosseract engine is used only when a binary imports internal/ocr/gosseract.
func NewEngines(cfg common.OCRConfig, logger *slog.Logger) (PDFEngine, ImageEngine) {
	if logger == nil {
		logger = slog.Default()
	}
	runner := ocr.ExecRunner{}

	var pdf PDFEngine
	switch cfg.PDFEngine {
	case "pdftotext":
		pdf = ocr.NewPopplerPDF(runner, logger)
	default:
		pdf = ocr.NewNativePDF(logger)
	}

	var img ImageEngine
	switch cfg.Engine {
	case "tesseract-cli":
		img = ocr.NewTesseractCLI(cfg.TesseractLang, cfg.TessdataDir, runner, logger)
	default:
		if newEngine, ok := ocr.InProcessEngine(); ok {
			img = newEngine(cfg.TesseractLang, cfg.TessdataDir, logger)
			break
		}
		logger.Warn("ocr.gosseract.unavailable", "fallback", "tesseract-cli")
		img = ocr.NewTesseractCLI(cfg.TesseractLang, cfg.TessdataDir, runner, logger)
	}
	return pdf, img
}

// NewAdapterFromConfig wires an Adapter with the configured engines.
func NewAdapterFromConfig(cfg common.OCRConfig, logger *slog.Logger) *Adapter {
	pdf, img := NewEngines(cfg, logger)
	return NewAdapter(Config{TempDir: cfg.TempDir, DetectLanguage: true}, pdf, img, logger)
}
