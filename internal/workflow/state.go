// Package workflow holds the client-side session state: extracted text, the
// analysis shown for it, and the in-flight flag.
package workflow

import (
	"strings"
	"sync"

	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

// Phase is derived from which fields are present; it is never stored.
type Phase string

const (
	PhaseUploading      Phase = "uploading"
	PhaseReadyToAnalyze Phase = "ready-to-analyze"
	PhaseShowingResults Phase = "showing-results"
)

type opKind int

const (
	opExtraction opKind = iota + 1
	opAnalysis
)

// Ticket identifies one in-flight operation. Completions with a ticket from
// before the last ClearResults are discarded.
type Ticket struct {
	version uint64
	seq     uint64
	kind    opKind
}

type Snapshot struct {
	Phase         Phase            `json:"phase"`
	ExtractedText string           `json:"extractedText"`
	Record        *analysis.Result `json:"record,omitempty"`
	IsLoading     bool             `json:"isLoading"`
	Version       uint64           `json:"version"`
}

// State is the single owner of a session's text, record and loading flag.
type State struct {
	mu      sync.Mutex
	text    string
	record  *analysis.Result
	loading bool
	active  uint64
	version uint64
	seq     uint64
}

func NewState() *State { return &State{} }

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Phase:         s.phaseLocked(),
		ExtractedText: s.text,
		Record:        s.record,
		IsLoading:     s.loading,
		Version:       s.version,
	}
}

func (s *State) phaseLocked() Phase {
	switch {
	case s.record != nil:
		return PhaseShowingResults
	case s.text != "":
		return PhaseReadyToAnalyze
	}
	return PhaseUploading
}

// BeginExtraction marks an upload in flight.
func (s *State) BeginExtraction() (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(opExtraction)
}

// BeginAnalysis marks an analysis in flight and returns the text to analyze.
func (s *State) BeginAnalysis() (Ticket, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(s.text) == "" {
		return Ticket{}, "", common.NewValidationError(common.CodeEmptyContent, "Text content is required")
	}
	t, err := s.beginLocked(opAnalysis)
	if err != nil {
		return Ticket{}, "", err
	}
	return t, s.text, nil
}

func (s *State) beginLocked(kind opKind) (Ticket, error) {
	if s.loading {
		return Ticket{}, common.NewConflictError(common.CodeAnalysisInFlight, "Another request is already in progress")
	}
	s.seq++
	s.loading = true
	s.active = s.seq
	return Ticket{version: s.version, seq: s.seq, kind: kind}, nil
}

func (s *State) currentLocked(t Ticket) bool {
	return t.version == s.version && t.seq == s.active && s.loading
}

// ApplyText stores the text of a successful extraction, replacing any earlier
// text and dropping a record that described it. Returns false for a stale ticket.
func (s *State) ApplyText(t Ticket, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.kind != opExtraction || !s.currentLocked(t) {
		return false
	}
	s.text = text
	s.record = nil
	return true
}

// CompleteAnalysis stores the record and ends the operation. Returns false for a stale ticket.
func (s *State) CompleteAnalysis(t Ticket, rec *analysis.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.kind != opAnalysis || !s.currentLocked(t) {
		return false
	}
	s.record = rec
	s.loading = false
	return true
}

// End clears the loading flag if t is still the active operation.
func (s *State) End(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(t) {
		return false
	}
	s.loading = false
	return true
}

// SetText replaces the text directly, as when the user edits or pastes it.
func (s *State) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.record = nil
}

// ClearResults returns to Uploading in one step and invalidates every outstanding ticket.
func (s *State) ClearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.text == "" && s.record == nil && !s.loading {
		return
	}
	s.text = ""
	s.record = nil
	s.loading = false
	s.version++
}
