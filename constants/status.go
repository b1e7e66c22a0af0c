package constants

// ArtifactStatus is the per-artifact extraction state inside a batch.
type ArtifactStatus string

// Transitions are monotonic: queued -> processing -> success|error.
const (
	ArtifactQueued     ArtifactStatus = "queued"
	ArtifactProcessing ArtifactStatus = "processing"
	ArtifactSuccess    ArtifactStatus = "success"
	ArtifactError      ArtifactStatus = "error"
)

// Rank orders statuses so trackers can reject backwards moves.
func (s ArtifactStatus) Rank() int {
	switch s {
	case ArtifactQueued:
		return 0
	case ArtifactProcessing:
		return 1
	case ArtifactSuccess, ArtifactError:
		return 2
	}
	return -1
}

// Terminal reports whether no further transition is allowed.
func (s ArtifactStatus) Terminal() bool {
	return s == ArtifactSuccess || s == ArtifactError
}

// BatchOutcome summarizes a batch once every processed artifact is terminal.
type BatchOutcome string

const (
	BatchAllSuccess BatchOutcome = "all-success"
	BatchPartial    BatchOutcome = "partial"
	BatchAllFailed  BatchOutcome = "all-failed"
	BatchPending    BatchOutcome = "pending"
)

// AnalysisMode selects the prompt and response shape.
type AnalysisMode string

const (
	ModeFull  AnalysisMode = "full"
	ModeQuick AnalysisMode = "quick"
)

// ExtractionEngine names which engine family produced a result.
type ExtractionEngine string

const (
	EnginePDF ExtractionEngine = "pdf"
	EngineOCR ExtractionEngine = "ocr"
)
