package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/extract"
)

type fakeExtractor struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]bool
	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeExtractor) ExtractArtifact(_ context.Context, art extract.Artifact) (extract.ExtractionResult, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, art.DisplayName)
	f.mu.Unlock()

	if f.fail[art.DisplayName] {
		return extract.ExtractionResult{ArtifactID: art.ID}, common.NewEngineError("Failed to extract text from image", errors.New("tesseract exit 1"))
	}
	return extract.ExtractionResult{
		ArtifactID: art.ID,
		Text:       "text of " + art.DisplayName,
		Engine:     constants.EngineOCR,
	}, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func png(name string) extract.Artifact {
	return extract.Artifact{DisplayName: name, MediaType: "image/png", Data: []byte("png")}
}

func TestPrepareValidation(t *testing.T) {
	o := NewOrchestrator(&fakeExtractor{}, nil)

	if _, _, err := o.Prepare(nil); common.CodeOf(err) != common.CodeEmptyBatch {
		t.Errorf("empty batch err = %v, want %s", err, common.CodeEmptyBatch)
	}

	var six []extract.Artifact
	for i := range 6 {
		six = append(six, png(fmt.Sprintf("f%d.png", i)))
	}
	if _, _, err := o.Prepare(six); common.CodeOf(err) != common.CodeTooManyFiles {
		t.Errorf("six files err = %v, want %s", err, common.CodeTooManyFiles)
	}
}

func TestPrepareDropsDuplicatesFirstWins(t *testing.T) {
	o := NewOrchestrator(&fakeExtractor{}, nil)
	first := png("a.png")
	first.ID = "first"
	second := png("a.png")
	second.ID = "second"

	b, rejected, err := o.Prepare([]extract.Artifact{first, png("b.png"), second})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(b.Artifacts) != 2 {
		t.Fatalf("kept = %d, want 2", len(b.Artifacts))
	}
	if b.Artifacts[0].ID != "first" {
		t.Errorf("kept ID = %q, want first", b.Artifacts[0].ID)
	}
	if len(rejected) != 1 || rejected[0].Code != common.CodeDuplicateArtifact {
		t.Errorf("rejected = %+v, want one duplicate", rejected)
	}
	snap := b.Snapshot()
	if snap.Aggregate != constants.BatchPending {
		t.Errorf("Aggregate before run = %q, want pending", snap.Aggregate)
	}
	for _, a := range snap.Artifacts {
		if a.Status != constants.ArtifactQueued {
			t.Errorf("%s status = %q, want queued", a.DisplayName, a.Status)
		}
	}
}

func TestRunPartialWithDuplicates(t *testing.T) {
	ex := &fakeExtractor{fail: map[string]bool{"c.png": true}}
	o := NewOrchestrator(ex, nil)

	res, err := o.Ingest(context.Background(), []extract.Artifact{
		png("a.png"), png("b.png"), png("a.png"), png("c.png"),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(res.Artifacts) != 3 {
		t.Errorf("processed = %d, want 3", len(res.Artifacts))
	}
	if len(res.Rejected) != 1 {
		t.Errorf("rejected = %d, want 1", len(res.Rejected))
	}
	if res.Aggregate != constants.BatchPartial {
		t.Errorf("Aggregate = %q, want partial", res.Aggregate)
	}
	if res.Succeeded() != 2 || res.Failed() != 1 {
		t.Errorf("succeeded=%d failed=%d, want 2 and 1", res.Succeeded(), res.Failed())
	}
	for _, a := range res.Artifacts {
		if a.DisplayName == "c.png" {
			if a.ErrorCode != common.CodeEngineFailure {
				t.Errorf("c.png ErrorCode = %q", a.ErrorCode)
			}
			if a.Error != "Failed to extract text from image" {
				t.Errorf("c.png Error = %q, want public message only", a.Error)
			}
		}
	}
	if got := len(res.Texts()); got != 2 {
		t.Errorf("len(Texts) = %d, want 2", got)
	}
}

func TestRunValidationFailureIsPerArtifact(t *testing.T) {
	ex := &fakeExtractor{}
	o := NewOrchestrator(ex, nil)
	txt := extract.Artifact{DisplayName: "notes.txt", MediaType: "text/plain", Data: []byte("x")}
	big := extract.Artifact{DisplayName: "big.pdf", MediaType: "application/pdf", Size: constants.MaxArtifactBytes + 1}

	res, err := o.Ingest(context.Background(), []extract.Artifact{txt, big, png("ok.png")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if ex.callCount() != 1 {
		t.Errorf("extractor calls = %d, want 1", ex.callCount())
	}
	codes := map[string]string{}
	for _, a := range res.Artifacts {
		codes[a.DisplayName] = a.ErrorCode
	}
	if codes["notes.txt"] != common.CodeUnsupportedMediaType {
		t.Errorf("notes.txt code = %q", codes["notes.txt"])
	}
	if codes["big.pdf"] != common.CodeArtifactTooLarge {
		t.Errorf("big.pdf code = %q", codes["big.pdf"])
	}
	if res.Aggregate != constants.BatchPartial {
		t.Errorf("Aggregate = %q, want partial", res.Aggregate)
	}
}

func TestRunAggregates(t *testing.T) {
	cases := []struct {
		name string
		fail map[string]bool
		want constants.BatchOutcome
	}{
		{"all success", nil, constants.BatchAllSuccess},
		{"all failed", map[string]bool{"a.png": true, "b.png": true}, constants.BatchAllFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrchestrator(&fakeExtractor{fail: tc.fail}, nil)
			res, err := o.Ingest(context.Background(), []extract.Artifact{png("a.png"), png("b.png")})
			if err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			if res.Aggregate != tc.want {
				t.Errorf("Aggregate = %q, want %q", res.Aggregate, tc.want)
			}
			if tc.want == constants.BatchAllFailed && res.Current != nil {
				t.Errorf("Current = %+v, want nil", res.Current)
			}
		})
	}
}

func TestCurrentIsMostRecentSuccess(t *testing.T) {
	ex := &fakeExtractor{fail: map[string]bool{"c.png": true}}
	o := NewOrchestrator(ex, nil, WithMaxConcurrent(1))

	res, err := o.Ingest(context.Background(), []extract.Artifact{png("a.png"), png("b.png"), png("c.png")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Current == nil {
		t.Fatal("Current is nil")
	}
	if res.Current.DisplayName != "b.png" || res.Current.Text != "text of b.png" {
		t.Errorf("Current = %+v, want b.png", res.Current)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	ex := &fakeExtractor{delay: 20 * time.Millisecond}
	o := NewOrchestrator(ex, nil, WithMaxConcurrent(2))

	var arts []extract.Artifact
	for i := range 5 {
		arts = append(arts, png(fmt.Sprintf("%d.png", i)))
	}
	if _, err := o.Ingest(context.Background(), arts); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if peak := ex.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
	if ex.callCount() != 5 {
		t.Errorf("calls = %d, want 5", ex.callCount())
	}
}

type panicExtractor struct{}

func (panicExtractor) ExtractArtifact(context.Context, extract.Artifact) (extract.ExtractionResult, error) {
	panic("engine crashed")
}

func TestRunRecoversPanics(t *testing.T) {
	o := NewOrchestrator(panicExtractor{}, nil)
	res, err := o.Ingest(context.Background(), []extract.Artifact{png("a.png")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Artifacts[0].Status != constants.ArtifactError {
		t.Errorf("status = %q, want error", res.Artifacts[0].Status)
	}
}

type memRecorder struct {
	mu       sync.Mutex
	started  int
	finished int
	statuses map[string][]constants.ArtifactStatus
	err      error
}

func (m *memRecorder) BatchStarted(context.Context, BatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
	return m.err
}

func (m *memRecorder) ArtifactChanged(_ context.Context, _ string, out ArtifactOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = map[string][]constants.ArtifactStatus{}
	}
	m.statuses[out.DisplayName] = append(m.statuses[out.DisplayName], out.Status)
	return m.err
}

func (m *memRecorder) BatchFinished(context.Context, BatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished++
	return m.err
}

func TestRecorderSeesEveryTransition(t *testing.T) {
	rec := &memRecorder{}
	o := NewOrchestrator(&fakeExtractor{fail: map[string]bool{"b.png": true}}, nil, WithRecorder(rec))

	if _, err := o.Ingest(context.Background(), []extract.Artifact{png("a.png"), png("b.png")}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.started != 1 || rec.finished != 1 {
		t.Errorf("started=%d finished=%d, want 1 and 1", rec.started, rec.finished)
	}
	want := map[string][]constants.ArtifactStatus{
		"a.png": {constants.ArtifactProcessing, constants.ArtifactSuccess},
		"b.png": {constants.ArtifactProcessing, constants.ArtifactError},
	}
	for name, seq := range want {
		got := rec.statuses[name]
		if len(got) != len(seq) || got[0] != seq[0] || got[1] != seq[1] {
			t.Errorf("%s transitions = %v, want %v", name, got, seq)
		}
	}
}

func TestRecorderFailureDoesNotChangeOutcome(t *testing.T) {
	rec := &memRecorder{err: errors.New("db down")}
	o := NewOrchestrator(&fakeExtractor{}, nil, WithRecorder(rec))

	res, err := o.Ingest(context.Background(), []extract.Artifact{png("a.png")})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Aggregate != constants.BatchAllSuccess {
		t.Errorf("Aggregate = %q, want all-success", res.Aggregate)
	}
}
