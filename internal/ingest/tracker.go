package ingest

import (
	"fmt"
	"sync"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/extract"
)

// ArtifactOutcome is the visible state of one artifact in a batch.
type ArtifactOutcome struct {
	ArtifactID  string                    `json:"artifactId"`
	DisplayName string                    `json:"fileName"`
	MediaType   string                    `json:"mediaType"`
	Size        int64                     `json:"size"`
	Status      constants.ArtifactStatus  `json:"status"`
	Result      *extract.ExtractionResult `json:"result,omitempty"`
	ErrorCode   string                    `json:"errorCode,omitempty"`
	Error       string                    `json:"error,omitempty"`
	StartedAt   time.Time                 `json:"startedAt,omitzero"`
	FinishedAt  time.Time                 `json:"finishedAt,omitzero"`

	// seq orders successful completions; 0 until success.
	seq uint64
}

// CurrentText is the text of the most recently completed successful extraction.
type CurrentText struct {
	ArtifactID  string `json:"artifactId"`
	DisplayName string `json:"fileName"`
	Text        string `json:"text"`
}

// Tracker owns the per-artifact status map of one batch.
// Writes and snapshots share one lock so readers never see a state behind the true progress.
type Tracker struct {
	mu    sync.RWMutex
	order []string
	items map[string]*ArtifactOutcome
	seq   uint64
}

func newTracker(arts []extract.Artifact) *Tracker {
	t := &Tracker{items: make(map[string]*ArtifactOutcome, len(arts))}
	for _, a := range arts {
		t.order = append(t.order, a.ID)
		t.items[a.ID] = &ArtifactOutcome{
			ArtifactID:  a.ID,
			DisplayName: a.DisplayName,
			MediaType:   a.MediaType,
			Size:        max(a.Size, int64(len(a.Data))),
			Status:      constants.ArtifactQueued,
		}
	}
	return t
}

// Start moves an artifact from queued to processing.
func (t *Tracker) Start(id string) (ArtifactOutcome, error) {
	return t.transition(id, constants.ArtifactProcessing, func(o *ArtifactOutcome) {
		o.StartedAt = time.Now().UTC()
	})
}

// Succeed records the extraction result and marks the artifact success.
func (t *Tracker) Succeed(id string, res extract.ExtractionResult) (ArtifactOutcome, error) {
	return t.transition(id, constants.ArtifactSuccess, func(o *ArtifactOutcome) {
		o.Result = &res
		o.FinishedAt = time.Now().UTC()
		t.seq++
		o.seq = t.seq
	})
}

// Fail marks the artifact error with a code and a user-facing message.
func (t *Tracker) Fail(id, code, message string) (ArtifactOutcome, error) {
	return t.transition(id, constants.ArtifactError, func(o *ArtifactOutcome) {
		o.ErrorCode = code
		o.Error = message
		o.FinishedAt = time.Now().UTC()
	})
}

func (t *Tracker) transition(id string, to constants.ArtifactStatus, apply func(*ArtifactOutcome)) (ArtifactOutcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.items[id]
	if !ok {
		return ArtifactOutcome{}, fmt.Errorf("artifact %s not in batch", id)
	}
	if o.Status.Terminal() || to.Rank() <= o.Status.Rank() {
		return *o, fmt.Errorf("artifact %s: illegal transition %s -> %s", id, o.Status, to)
	}
	o.Status = to
	apply(o)
	return *o, nil
}

// Get returns a copy of one artifact's state.
func (t *Tracker) Get(id string) (ArtifactOutcome, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.items[id]
	if !ok {
		return ArtifactOutcome{}, false
	}
	return *o, true
}

// Snapshot copies every artifact state, the aggregate and the current text in one read.
func (t *Tracker) Snapshot() ([]ArtifactOutcome, constants.BatchOutcome, *CurrentText) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ArtifactOutcome, 0, len(t.order))
	var latest *ArtifactOutcome
	for _, id := range t.order {
		o := t.items[id]
		out = append(out, *o)
		if o.Status == constants.ArtifactSuccess && (latest == nil || o.seq > latest.seq) {
			latest = o
		}
	}

	var cur *CurrentText
	if latest != nil && latest.Result != nil {
		cur = &CurrentText{ArtifactID: latest.ArtifactID, DisplayName: latest.DisplayName, Text: latest.Result.Text}
	}
	return out, Aggregate(out), cur
}

// Aggregate folds artifact statuses into a batch outcome.
// Anything non-terminal keeps the batch pending.
func Aggregate(outcomes []ArtifactOutcome) constants.BatchOutcome {
	var ok, failed int
	for _, o := range outcomes {
		switch o.Status {
		case constants.ArtifactSuccess:
			ok++
		case constants.ArtifactError:
			failed++
		default:
			return constants.BatchPending
		}
	}
	switch {
	case ok > 0 && failed == 0:
		return constants.BatchAllSuccess
	case ok > 0:
		return constants.BatchPartial
	default:
		return constants.BatchAllFailed
	}
}
