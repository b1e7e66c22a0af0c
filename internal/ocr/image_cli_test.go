package ocr

import (
	"context"
	"strings"
	"testing"
)

func TestTesseractCLIRecognize(t *testing.T) {
	fr := &fakeRunner{responses: map[string]fakeResponse{"tesseract": {stdout: sampleTSV}}}
	e := NewTesseractCLI("eng", "/usr/share/tessdata", fr, nil)

	rec, err := e.Recognize(context.Background(), "/tmp/a.png")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if !strings.HasPrefix(rec.Text, "Hello world") {
		t.Errorf("Text = %q", rec.Text)
	}
	if len(rec.Words) != 4 || len(rec.Lines) != 3 {
		t.Errorf("words=%d lines=%d, want 4 and 3", len(rec.Words), len(rec.Lines))
	}
	// (96.5 + 91.12 + 80 + 70.5) / 4
	if rec.Confidence != 84.53 {
		t.Errorf("Confidence = %v, want 84.53", rec.Confidence)
	}
	args := fr.argsOf("tesseract")
	if !strings.Contains(args, "--tessdata-dir /usr/share/tessdata") || !strings.HasSuffix(args, "tsv") {
		t.Errorf("tesseract args = %q", args)
	}
}
