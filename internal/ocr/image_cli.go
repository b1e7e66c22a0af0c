package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// TesseractCLI runs the tesseract binary once in TSV mode per image.
type TesseractCLI struct {
	Binary      string // if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default

	runner Runner
	logger *slog.Logger
}

func NewTesseractCLI(lang, tessdataDir string, runner Runner, logger *slog.Logger) *TesseractCLI {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if lang == "" {
		lang = "eng"
	}
	return &TesseractCLI{Binary: "tesseract", Lang: lang, TessdataDir: tessdataDir, runner: runner, logger: logger}
}

func (e *TesseractCLI) Recognize(ctx context.Context, path string) (Recognition, error) {
	args := []string{path, "stdout", "-l", e.Lang}
	if e.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.PSM))
	}
	if e.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.OEM))
	}
	if e.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.Binary, e.logger, args...)
	if err != nil {
		return Recognition{Warnings: []string{strings.TrimSpace(string(errb))}}, fmt.Errorf("tesseract: %w", err)
	}

	text, words, lines := ParseTSV(string(out))
	return Recognition{
		Text:       text,
		Confidence: Round2(MeanConfidence(words)),
		Words:      words,
		Lines:      lines,
		Method:     "tesseract-cli",
		Language:   e.Lang,
	}, nil
}
