package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// NativePDF reads the PDF text layer in-process.
type NativePDF struct {
	logger *slog.Logger
}

func NewNativePDF(logger *slog.Logger) *NativePDF {
	if logger == nil {
		logger = slog.Default()
	}
	return &NativePDF{logger: logger}
}

// ExtractPDF returns the concatenated page text, page count and Info dictionary.
func (e *NativePDF) ExtractPDF(ctx context.Context, path string) (doc PDFDocument, err error) {
	if err := ctx.Err(); err != nil {
		return PDFDocument{}, err
	}
	start := time.Now()

	// the parser panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return PDFDocument{}, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	pages := r.NumPage()
	var b strings.Builder
	var warns []string
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return PDFDocument{}, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			warns = append(warns, fmt.Sprintf("page %d has no content", i))
			continue
		}
		txt, perr := p.GetPlainText(nil)
		if perr != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", i, perr))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}

	doc = PDFDocument{
		Text:     b.String(),
		Pages:    pages,
		Info:     readInfo(r),
		Method:   "pdf-native",
		Warnings: warns,
	}
	e.logger.Debug("pdf.native.ok", "pages", pages, "chars", b.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return doc, nil
}

func readInfo(r *pdf.Reader) map[string]string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return map[string]string{}
	}
	out := make(map[string]string, len(info.Keys()))
	for _, k := range info.Keys() {
		v := info.Key(k)
		switch v.Kind() {
		case pdf.String:
			if s := strings.TrimSpace(v.Text()); s != "" {
				out[k] = s
			}
		case pdf.Name:
			out[k] = v.Name()
		case pdf.Integer, pdf.Real, pdf.Bool:
			out[k] = v.String()
		}
	}
	return out
}
