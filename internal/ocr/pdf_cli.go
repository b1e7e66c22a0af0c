package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// PopplerPDF shells out to poppler's pdftotext and pdfinfo.
type PopplerPDF struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"

	runner Runner
	logger *slog.Logger
}

func NewPopplerPDF(runner Runner, logger *slog.Logger) *PopplerPDF {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PopplerPDF{Pdftotext: "pdftotext", Pdfinfo: "pdfinfo", runner: runner, logger: logger}
}

func (e *PopplerPDF) ExtractPDF(ctx context.Context, path string) (PDFDocument, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.Pdftotext, e.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return PDFDocument{Warnings: []string{strings.TrimSpace(string(errb))}}, fmt.Errorf("pdftotext: %w", err)
	}
	text := strings.TrimRight(string(out), "\f")

	doc := PDFDocument{
		Text:   text,
		Method: "pdftotext",
		Info:   map[string]string{},
	}

	infoOut, infoErr, err := e.runner.Run(ctx, e.Pdfinfo, e.logger, "-enc", "UTF-8", path)
	if err != nil {
		// form feeds separate pages in pdftotext output
		doc.Pages = 1 + strings.Count(text, "\f")
		doc.Warnings = append(doc.Warnings, "pdfinfo unavailable: "+strings.TrimSpace(string(infoErr)))
		return doc, nil
	}
	doc.Info, doc.Pages = parsePdfinfo(infoOut)
	if doc.Pages == 0 {
		doc.Pages = 1 + strings.Count(text, "\f")
	}
	return doc, nil
}

// parsePdfinfo reads "Key:   value" lines; Pages is returned separately.
func parsePdfinfo(out []byte) (map[string]string, int) {
	info := make(map[string]string)
	pages := 0
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if k == "Pages" {
			if n, err := strconv.Atoi(v); err == nil {
				pages = n
			}
			continue
		}
		info[k] = v
	}
	return info, pages
}
