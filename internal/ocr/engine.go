package ocr

import (
	"context"
	"log/slog"
	"sync"
)

// Recognizer OCRs one image file.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (Recognition, error)
}

// RecognizerFactory builds an in-process engine for the given languages.
type RecognizerFactory func(lang, tessdataDir string, logger *slog.Logger) Recognizer

var (
	inProcessMu sync.RWMutex
	inProcess   RecognizerFactory
)

// SetInProcessEngine registers the in-process OCR engine. The cgo-backed
// engine package calls this from init, so only binaries importing it link libtesseract.
func SetInProcessEngine(f RecognizerFactory) {
	inProcessMu.Lock()
	defer inProcessMu.Unlock()
	inProcess = f
}

// InProcessEngine returns the registered in-process engine factory, if any.
func InProcessEngine() (RecognizerFactory, bool) {
	inProcessMu.RLock()
	defer inProcessMu.RUnlock()
	return inProcess, inProcess != nil
}
