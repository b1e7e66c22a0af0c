package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestExtractRoutesByMediaType(t *testing.T) {
	var gotPath, gotField, gotName, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		for field, fhs := range r.MultipartForm.File {
			gotField, gotName = field, fhs[0].Filename
			gotType = fhs[0].Header.Get("Content-Type")
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": map[string]any{
			"fileName": gotName, "extractedText": "hello there", "wordCount": 2, "pageCount": 3,
		}})
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL + "/api"}, nil)

	ex, err := c.Extract(context.Background(), File{Name: "/tmp/doc.pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if gotPath != "/api/pdf/extract" || gotField != "pdf" || gotName != "doc.pdf" || gotType != "application/pdf" {
		t.Errorf("pdf upload went to %s field=%s name=%s type=%s", gotPath, gotField, gotName, gotType)
	}
	if ex.ExtractedText != "hello there" || ex.WordCount != 2 || ex.PageCount != 3 {
		t.Errorf("extraction = %+v", ex)
	}

	if _, err := c.Extract(context.Background(), File{Name: "shot.PNG", Data: []byte{0x89}}); err != nil {
		t.Fatalf("Extract image: %v", err)
	}
	if gotPath != "/api/ocr/extract" || gotField != "image" || gotType != "image/png" {
		t.Errorf("image upload went to %s field=%s type=%s", gotPath, gotField, gotType)
	}
}

func TestErrorBodiesBecomeAppErrors(t *testing.T) {
	cases := []struct {
		status int
		body   map[string]string
		kind   error
		code   string
	}{
		{400, map[string]string{"error": "Text content is required", "message": "Text content is required", "code": common.CodeEmptyContent}, common.ErrValidation, common.CodeEmptyContent},
		{404, map[string]string{"error": "not found"}, common.ErrNotFound, common.CodeNotFound},
		{500, map[string]string{"error": "Failed to analyze content", "message": "Failed to analyze content"}, common.ErrEngine, common.CodeEngineFailure},
		{504, map[string]string{"error": "timeout"}, common.ErrTimeout, common.CodeAnalysisTimeout},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tc.status, tc.body)
		}))
		_, err := New(Config{BaseURL: srv.URL}, nil).Analyze(context.Background(), AnalyzeRequest{Text: "x"})
		srv.Close()
		if !errors.Is(err, tc.kind) {
			t.Errorf("status %d: err %v is not %v", tc.status, err, tc.kind)
		}
		if common.CodeOf(err) != tc.code {
			t.Errorf("status %d: code = %q, want %q", tc.status, common.CodeOf(err), tc.code)
		}
		if common.PublicMessage(err) == "" {
			t.Errorf("status %d: empty public message", tc.status)
		}
	}
}

func TestAnalyzeDecodesEnvelope(t *testing.T) {
	var body AnalyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analysis/analyze" || r.Header.Get("X-Request-ID") == "" {
			t.Errorf("path=%s req_id=%q", r.URL.Path, r.Header.Get("X-Request-ID"))
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		io.WriteString(w, `{"success":true,"data":{"id":"a1","analysis":{"contentAnalysis":{"tone":"casual"}},"originalText":"hi","textLength":2,"mode":"full","wasTruncated":false,"timestamp":"2026-01-02T03:04:05Z"}}`)
	}))
	defer srv.Close()

	res, err := New(Config{BaseURL: srv.URL}, nil).Analyze(context.Background(), AnalyzeRequest{Text: "hi", Platform: "twitter"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if body.Text != "hi" || body.Platform != "twitter" {
		t.Errorf("request body = %+v", body)
	}
	if res.ID != "a1" || res.TextLength != 2 || string(res.Analysis.ContentAnalysis) != `{"tone":"casual"}` {
		t.Errorf("result = %+v", res)
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(Config{BaseURL: srv.URL, Timeout: 30 * time.Millisecond}, nil).Health(context.Background())
	if !common.IsTimeout(err) {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestHealthAndDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/health":
			writeJSON(w, 200, map[string]any{"status": "OK", "timestamp": time.Now().UTC(), "version": "test"})
		case strings.HasSuffix(r.URL.Path, "/export.xlsx"):
			w.Header().Set("Content-Type", "application/octet-stream")
			io.WriteString(w, "PK-workbook")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL}, nil)

	h, err := c.Health(context.Background())
	if err != nil || h.Status != "OK" || h.Version != "test" {
		t.Fatalf("Health = %+v, %v", h, err)
	}

	var buf bytes.Buffer
	n, err := c.ExportBatch(context.Background(), "b1", &buf)
	if err != nil || n != int64(len("PK-workbook")) || buf.String() != "PK-workbook" {
		t.Fatalf("ExportBatch = %d, %q, %v", n, buf.String(), err)
	}

	if _, err := c.BatchStatus(context.Background(), "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("BatchStatus(missing) = %v", err)
	}
}
