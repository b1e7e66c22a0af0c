package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/client"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

type fakeBackend struct {
	mu       sync.Mutex
	texts    map[string]string
	extracts []string
	analyzed []string
	quick    int
	block    chan struct{}
	started  chan struct{}
	wait     bool
}

func (f *fakeBackend) Extract(ctx context.Context, file client.File) (*client.Extraction, error) {
	f.mu.Lock()
	f.extracts = append(f.extracts, file.Name)
	text, ok := f.texts[file.Name]
	f.mu.Unlock()
	if !ok {
		return nil, common.NewEngineError("Failed to extract text from image", errors.New("tesseract crashed"))
	}
	return &client.Extraction{FileName: file.Name, ExtractedText: text}, nil
}

func (f *fakeBackend) Analyze(ctx context.Context, req client.AnalyzeRequest) (*analysis.Result, error) {
	f.mu.Lock()
	f.analyzed = append(f.analyzed, req.Text)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			if f.wait {
				return nil, ctx.Err()
			}
		}
	}
	return &analysis.Result{ID: "res-" + req.Text, OriginalText: req.Text}, nil
}

func (f *fakeBackend) QuickAnalyze(ctx context.Context, text string) (*analysis.Result, error) {
	f.mu.Lock()
	f.quick++
	f.mu.Unlock()
	return &analysis.Result{ID: "quick", Mode: constants.ModeQuick}, nil
}

func TestUploadLastSuccessWinsAndSkipsDuplicates(t *testing.T) {
	fb := &fakeBackend{texts: map[string]string{"a.png": "alpha", "c.png": "gamma"}}
	c := NewController(fb, nil, nil)

	got, err := c.Upload(context.Background(), []client.File{{Name: "a.png"}, {Name: "b.png"}, {Name: "c.png"}})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(got) != 3 || got[1].Status != constants.ArtifactError || got[1].Error != "Failed to extract text from image" {
		t.Fatalf("statuses = %+v", got)
	}
	if text := c.State().Snapshot().ExtractedText; text != "gamma" {
		t.Errorf("text = %q, want gamma", text)
	}

	got, err = c.Upload(context.Background(), []client.File{{Name: "dir/a.png"}})
	if err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	if len(got) != 0 || len(fb.extracts) != 3 {
		t.Errorf("duplicate re-uploaded: statuses=%v extracts=%v", got, fb.extracts)
	}
	if n := len(c.Files()); n != 3 {
		t.Errorf("Files() = %d, want 3", n)
	}
	if c.State().Snapshot().IsLoading {
		t.Error("loading left set after upload")
	}
}

func TestAnalyzeFlow(t *testing.T) {
	fb := &fakeBackend{texts: map[string]string{"a.pdf": "alpha"}}
	c := NewController(fb, nil, nil)
	if _, err := c.Analyze(context.Background(), "", "", constants.ModeFull); common.CodeOf(err) != common.CodeEmptyContent {
		t.Fatalf("analyze without text err = %v", err)
	}
	if _, err := c.Upload(context.Background(), []client.File{{Name: "a.pdf"}}); err != nil {
		t.Fatal(err)
	}
	res, err := c.Analyze(context.Background(), "blog", "twitter", constants.ModeFull)
	if err != nil || res.ID != "res-alpha" {
		t.Fatalf("Analyze = %+v, %v", res, err)
	}
	if snap := c.State().Snapshot(); snap.Phase != PhaseShowingResults {
		t.Errorf("phase = %s", snap.Phase)
	}
	if _, err := c.Analyze(context.Background(), "", "", constants.ModeQuick); err != nil || fb.quick != 1 {
		t.Errorf("quick analyze err=%v calls=%d", err, fb.quick)
	}
}

func TestAnalyzeInFlightRejected(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{}), started: make(chan struct{})}
	c := NewController(fb, nil, nil)
	c.State().SetText("x")

	done := make(chan error, 1)
	go func() {
		_, err := c.Analyze(context.Background(), "", "", constants.ModeFull)
		done <- err
	}()
	<-fb.started
	if _, err := c.Analyze(context.Background(), "", "", constants.ModeFull); common.CodeOf(err) != common.CodeAnalysisInFlight {
		t.Errorf("concurrent analyze err = %v", err)
	}
	close(fb.block)
	if err := <-done; err != nil {
		t.Errorf("first analyze: %v", err)
	}
	if len(fb.analyzed) != 1 {
		t.Errorf("backend called %d times", len(fb.analyzed))
	}
}

func TestAnalyzeResultAfterResetDiscarded(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{}), started: make(chan struct{})}
	c := NewController(fb, nil, nil)
	c.State().SetText("x")

	done := make(chan error, 1)
	go func() {
		_, err := c.Analyze(context.Background(), "", "", constants.ModeFull)
		done <- err
	}()
	<-fb.started
	c.Reset()
	close(fb.block)
	if err := <-done; !errors.Is(err, ErrDiscarded) {
		t.Fatalf("err = %v, want ErrDiscarded", err)
	}
	if snap := c.State().Snapshot(); snap.Phase != PhaseUploading || snap.Record != nil {
		t.Errorf("reset state overwritten: %+v", snap)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{}), wait: true}
	defer close(fb.block)
	c := NewController(fb, nil, nil, WithAnalysisTimeout(20*time.Millisecond))
	c.State().SetText("x")
	_, err := c.Analyze(context.Background(), "", "", constants.ModeFull)
	if common.CodeOf(err) != common.CodeAnalysisTimeout {
		t.Fatalf("err = %v, want ANALYSIS_TIMEOUT", err)
	}
	if c.State().Snapshot().IsLoading {
		t.Error("loading left set after timeout")
	}
}
