package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/extract"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ingest"
	"github.com/joseph-ayodele/engagement-analyzer/internal/llm"
	"github.com/joseph-ayodele/engagement-analyzer/internal/textstats"
)

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestBatchWorkbook(t *testing.T) {
	conf := 88.5
	r := ingest.BatchResult{
		ID:        "b1",
		CreatedAt: time.Now(),
		Artifacts: []ingest.ArtifactOutcome{
			{
				DisplayName: "a.png", MediaType: "image/png", Size: 10, Status: constants.ArtifactSuccess,
				Result: &extract.ExtractionResult{
					Text: "hello world", Engine: constants.EngineOCR, Method: "gosseract",
					Quality: extract.Quality{Confidence: &conf, Units: textstats.Counts{Words: 2, Lines: 1, Characters: 11}},
				},
			},
			{DisplayName: "b.pdf", MediaType: "application/pdf", Status: constants.ArtifactError, Error: "Failed to extract text from PDF"},
		},
		Rejected: []ingest.Rejection{{DisplayName: "a.png", Code: "DUPLICATE_ARTIFACT", Message: "duplicate file name"}},
	}
	b, err := NewService(nil).BatchWorkbook(context.Background(), r)
	if err != nil {
		t.Fatalf("BatchWorkbook: %v", err)
	}
	f := open(t, b)

	rows, err := f.GetRows("Artifacts")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("artifact rows = %d, want 4", len(rows))
	}
	if rows[1][0] != "a.png" || rows[1][3] != "success" || rows[1][7] != "2" {
		t.Errorf("success row = %v", rows[1])
	}
	if rows[2][3] != "error" || rows[2][len(rows[2])-1] != "Failed to extract text from PDF" {
		t.Errorf("error row = %v", rows[2])
	}
	if rows[3][3] != "rejected" {
		t.Errorf("rejected row = %v", rows[3])
	}

	texts, err := f.GetRows("Text")
	if err != nil {
		t.Fatalf("GetRows(Text): %v", err)
	}
	if len(texts) != 2 || texts[1][1] != "hello world" {
		t.Errorf("text rows = %v", texts)
	}
}

func TestAnalysisRowsFlatten(t *testing.T) {
	r := analysis.Result{Analysis: llm.AnalysisRecord{
		ContentAnalysis:        json.RawMessage(`{"tone":"casual","keyTopics":["go","xlsx"],"wordCount":12}`),
		ImprovementSuggestions: json.RawMessage(`{"platformSpecific":{"twitter":["short","punchy"]}}`),
		Sentiment:              json.RawMessage(`"positive"`),
	}}
	rows, err := AnalysisRows(r)
	if err != nil {
		t.Fatalf("AnalysisRows: %v", err)
	}
	want := map[string]string{
		"contentAnalysis|keyTopics":                       "go; xlsx",
		"contentAnalysis|tone":                            "casual",
		"contentAnalysis|wordCount":                       "12",
		"improvementSuggestions|platformSpecific.twitter": "short; punchy",
		"sentiment|":                                      "positive",
	}
	got := map[string]string{}
	for _, row := range rows {
		got[row.Section+"|"+row.Field] = row.Value
	}
	if len(got) != len(want) {
		t.Fatalf("rows = %+v", rows)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestAnalysisWorkbookFallback(t *testing.T) {
	r := analysis.Result{
		ID:           "a1",
		Mode:         constants.ModeFull,
		OriginalText: "my post",
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Analysis:     llm.AnalysisRecord{RawFallback: &llm.RawFallback{Text: "not json", ParseFailed: true}},
	}
	b, err := NewService(nil).AnalysisWorkbook(context.Background(), r)
	if err != nil {
		t.Fatalf("AnalysisWorkbook: %v", err)
	}
	f := open(t, b)
	rows, _ := f.GetRows("Analysis")
	if len(rows) != 2 || rows[1][0] != "rawFallback" || rows[1][2] != "not json" {
		t.Errorf("analysis rows = %v", rows)
	}
	src, _ := f.GetRows("Source")
	found := false
	for _, row := range src {
		if len(row) == 2 && row[0] == "Original Text" && row[1] == "my post" {
			found = true
		}
	}
	if !found {
		t.Errorf("source rows = %v", src)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 3); got != "hé…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 3); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
