// Package export renders batches and analyses as XLSX workbooks.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ingest"
)

// maxCellChars is the XLSX per-cell text limit.
const maxCellChars = 32767

// Service turns results into XLSX bytes.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BatchWorkbook writes one row per artifact on "Artifacts" and the extracted text on "Text".
func (s *Service) BatchWorkbook(ctx context.Context, r ingest.BatchResult) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	const artifacts, texts = "Artifacts", "Text"
	if err := f.SetSheetName("Sheet1", artifacts); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(texts); err != nil {
		return nil, err
	}

	w := sheetWriter{f: f, sheet: artifacts}
	w.row(1, "File Name", "Media Type", "Size (bytes)", "Status", "Engine", "Method",
		"Confidence", "Words", "Lines", "Characters", "Pages", "Language", "Error")
	row := 2
	for _, a := range r.Artifacts {
		vals := []any{a.DisplayName, a.MediaType, a.Size, string(a.Status)}
		if res := a.Result; res != nil {
			var conf any = ""
			if res.Quality.Confidence != nil {
				conf = *res.Quality.Confidence
			}
			vals = append(vals, string(res.Engine), res.Method, conf,
				res.Quality.Units.Words, res.Quality.Units.Lines, res.Quality.Units.Characters,
				res.Quality.PageCount, res.Quality.Language, "")
		} else {
			vals = append(vals, "", "", "", "", "", "", "", "", a.Error)
		}
		w.row(row, vals...)
		row++
	}
	for _, rej := range r.Rejected {
		w.row(row, rej.DisplayName, "", "", "rejected", "", "", "", "", "", "", "", "", rej.Message)
		row++
	}
	_ = f.SetColWidth(artifacts, "A", "A", 32)
	_ = f.SetColWidth(artifacts, "B", "B", 18)
	_ = f.SetColWidth(artifacts, "M", "M", 48)

	tw := sheetWriter{f: f, sheet: texts}
	tw.row(1, "File Name", "Text")
	trow := 2
	for _, a := range r.Artifacts {
		if a.Result == nil {
			continue
		}
		tw.row(trow, a.DisplayName, truncate(a.Result.Text, maxCellChars))
		trow++
	}
	_ = f.SetColWidth(texts, "A", "A", 32)
	_ = f.SetColWidth(texts, "B", "B", 100)

	out, err := write(f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "kind", "batch", "batch_id", r.ID,
		"rows", len(r.Artifacts)+len(r.Rejected), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// AnalysisWorkbook writes the record as Section/Field/Value rows on "Analysis"
// and the analysed text with its metadata on "Source".
func (s *Service) AnalysisWorkbook(ctx context.Context, r analysis.Result) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	const sheet, source = "Analysis", "Source"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(source); err != nil {
		return nil, err
	}

	rows, err := AnalysisRows(r)
	if err != nil {
		return nil, err
	}
	w := sheetWriter{f: f, sheet: sheet}
	w.row(1, "Section", "Field", "Value")
	for i, rr := range rows {
		w.row(i+2, rr.Section, rr.Field, truncate(rr.Value, maxCellChars))
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 36)
	_ = f.SetColWidth(sheet, "C", "C", 90)

	sw := sheetWriter{f: f, sheet: source}
	meta := [][2]any{
		{"ID", r.ID},
		{"Mode", string(r.Mode)},
		{"Content Type", r.ContentType},
		{"Platform", r.Platform},
		{"Text Length", r.TextLength},
		{"Was Truncated", r.WasTruncated},
		{"Timestamp", r.Timestamp.UTC().Format(time.RFC3339)},
		{"Provider", r.Provider},
		{"Model", r.Model},
		{"Original Text", truncate(r.OriginalText, maxCellChars)},
	}
	for i, m := range meta {
		sw.row(i+1, m[0], m[1])
	}
	_ = f.SetColWidth(source, "A", "A", 16)
	_ = f.SetColWidth(source, "B", "B", 100)

	out, err := write(f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "kind", "analysis", "analysis_id", r.ID,
		"rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// Row is one flattened leaf of an analysis record.
type Row struct {
	Section string
	Field   string
	Value   string
}

// AnalysisRows flattens the record: nested objects become dotted field paths,
// arrays of scalars are joined with "; ".
func AnalysisRows(r analysis.Result) ([]Row, error) {
	if fb := r.Analysis.RawFallback; fb != nil {
		rows := []Row{{Section: "rawFallback", Field: "text", Value: fb.Text}}
		if len(fb.Parsed) > 0 {
			rows = append(rows, Row{Section: "rawFallback", Field: "parsed", Value: string(fb.Parsed)})
		}
		return rows, nil
	}
	var rows []Row
	for _, fld := range r.Analysis.Fields() {
		v, err := decode(fld.Value)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", fld.Key, err)
		}
		flatten(fld.Key, "", v, &rows)
	}
	return rows, nil
}

func decode(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func flatten(section, path string, v any, rows *[]Row) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(section, join(path, k), t[k], rows)
		}
	case []any:
		if allScalar(t) {
			parts := make([]string, 0, len(t))
			for _, e := range t {
				parts = append(parts, scalar(e))
			}
			*rows = append(*rows, Row{Section: section, Field: path, Value: strings.Join(parts, "; ")})
			return
		}
		for i, e := range t {
			flatten(section, join(path, strconv.Itoa(i)), e, rows)
		}
	default:
		*rows = append(*rows, Row{Section: section, Field: path, Value: scalar(t)})
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func allScalar(xs []any) bool {
	for _, x := range xs {
		switch x.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
}

func (w sheetWriter) row(r int, vals ...any) {
	for i, v := range vals {
		cell, _ := excelize.CoordinatesToCellName(i+1, r)
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
}

func write(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
