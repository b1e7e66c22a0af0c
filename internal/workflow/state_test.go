package workflow

import (
	"testing"

	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

func TestPhases(t *testing.T) {
	s := NewState()
	if got := s.Snapshot().Phase; got != PhaseUploading {
		t.Fatalf("initial phase = %s", got)
	}

	tk, err := s.BeginExtraction()
	if err != nil {
		t.Fatalf("BeginExtraction: %v", err)
	}
	if !s.Snapshot().IsLoading {
		t.Error("not loading during extraction")
	}
	if !s.ApplyText(tk, "some text") {
		t.Fatal("ApplyText rejected a current ticket")
	}
	s.End(tk)
	snap := s.Snapshot()
	if snap.Phase != PhaseReadyToAnalyze || snap.IsLoading {
		t.Fatalf("after extraction: %+v", snap)
	}

	tk, text, err := s.BeginAnalysis()
	if err != nil || text != "some text" {
		t.Fatalf("BeginAnalysis = %q, %v", text, err)
	}
	if !s.CompleteAnalysis(tk, &analysis.Result{ID: "r1"}) {
		t.Fatal("CompleteAnalysis rejected a current ticket")
	}
	snap = s.Snapshot()
	if snap.Phase != PhaseShowingResults || snap.Record.ID != "r1" || snap.IsLoading {
		t.Fatalf("after analysis: %+v", snap)
	}
}

func TestBeginAnalysisRequiresText(t *testing.T) {
	s := NewState()
	s.SetText("   ")
	if _, _, err := s.BeginAnalysis(); common.CodeOf(err) != common.CodeEmptyContent {
		t.Fatalf("err = %v, want EMPTY_CONTENT", err)
	}
	if s.Snapshot().IsLoading {
		t.Error("failed begin left loading set")
	}
}

func TestSecondBeginRejected(t *testing.T) {
	s := NewState()
	s.SetText("x")
	if _, _, err := s.BeginAnalysis(); err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}
	if _, _, err := s.BeginAnalysis(); common.CodeOf(err) != common.CodeAnalysisInFlight {
		t.Errorf("second analysis err = %v", err)
	}
	if _, err := s.BeginExtraction(); common.CodeOf(err) != common.CodeAnalysisInFlight {
		t.Errorf("extraction during analysis err = %v", err)
	}
}

func TestStaleCompletionDiscarded(t *testing.T) {
	s := NewState()
	s.SetText("x")
	tk, _, err := s.BeginAnalysis()
	if err != nil {
		t.Fatal(err)
	}
	s.ClearResults()
	if s.CompleteAnalysis(tk, &analysis.Result{ID: "late"}) {
		t.Fatal("stale completion applied")
	}
	if s.End(tk) {
		t.Error("stale End reported success")
	}
	snap := s.Snapshot()
	if snap.Phase != PhaseUploading || snap.Record != nil || snap.IsLoading {
		t.Fatalf("state after stale completion: %+v", snap)
	}

	// A new operation may start right away and is not disturbed by the old ticket.
	s.SetText("y")
	tk2, _, err := s.BeginAnalysis()
	if err != nil {
		t.Fatalf("BeginAnalysis after reset: %v", err)
	}
	if s.CompleteAnalysis(tk, &analysis.Result{ID: "late"}) {
		t.Error("old ticket applied over new operation")
	}
	if !s.CompleteAnalysis(tk2, &analysis.Result{ID: "fresh"}) {
		t.Error("current ticket rejected")
	}
}

func TestClearResultsIdempotent(t *testing.T) {
	s := NewState()
	s.SetText("x")
	tk, _, _ := s.BeginAnalysis()
	s.CompleteAnalysis(tk, &analysis.Result{ID: "r"})

	s.ClearResults()
	once := s.Snapshot()
	s.ClearResults()
	twice := s.Snapshot()
	if once != twice {
		t.Errorf("second ClearResults changed state: %+v vs %+v", once, twice)
	}
	if once.Phase != PhaseUploading || once.ExtractedText != "" || once.Record != nil || once.IsLoading {
		t.Errorf("cleared state = %+v", once)
	}
}

func TestTicketKindsDoNotMix(t *testing.T) {
	s := NewState()
	tk, _ := s.BeginExtraction()
	if s.CompleteAnalysis(tk, &analysis.Result{}) {
		t.Error("extraction ticket completed an analysis")
	}
}
