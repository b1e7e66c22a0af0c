package llm

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
)

// Generator is the generative backend: one prompt in, unstructured text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Describer names the backend for logs and stored records.
type Describer interface {
	Provider() string
	Model() string
}

type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName,omitempty"`
	Description      string   `json:"description,omitempty"`
	InputTokenLimit  int      `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit int      `json:"outputTokenLimit,omitempty"`
	Methods          []string `json:"supportedGenerationMethods,omitempty"`
}

// AnalysisRequest is built once per analysis and never mutated.
type AnalysisRequest struct {
	Text           string                 `json:"text"`
	Prompt         string                 `json:"-"`
	ContentType    string                 `json:"contentType"`
	Platform       string                 `json:"platform"`
	Mode           constants.AnalysisMode `json:"mode"`
	WasTruncated   bool                   `json:"wasTruncated"`
	OriginalLength int                    `json:"originalLength"`
}

// AnalysisRecord is the normalized model output. Either some structured
// fields are set or RawFallback is, never both and never neither.
type AnalysisRecord struct {
	ContentAnalysis        json.RawMessage `json:"contentAnalysis,omitempty"`
	EngagementMetrics      json.RawMessage `json:"engagementMetrics,omitempty"`
	ImprovementSuggestions json.RawMessage `json:"improvementSuggestions,omitempty"`
	BestPractices          json.RawMessage `json:"bestPractices,omitempty"`

	Sentiment         json.RawMessage `json:"sentiment,omitempty"`
	EngagementScore   json.RawMessage `json:"engagementScore,omitempty"`
	TopSuggestion     json.RawMessage `json:"topSuggestion,omitempty"`
	HashtagSuggestion json.RawMessage `json:"hashtagSuggestion,omitempty"`

	RawFallback *RawFallback `json:"rawFallback,omitempty"`
}

// RawFallback carries model output that could not be used as a typed record.
// ParseFailed distinguishes unparsable text from JSON that had none of the known keys.
type RawFallback struct {
	Text        string          `json:"text"`
	ParseFailed bool            `json:"parseFailed"`
	Parsed      json.RawMessage `json:"parsed,omitempty"`
}

// IsFallback reports whether the record degraded to raw passthrough.
func (r AnalysisRecord) IsFallback() bool { return r.RawFallback != nil }

// Field is one populated top-level key of a record.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Fields lists the populated structured keys in a stable order.
func (r AnalysisRecord) Fields() []Field {
	all := []Field{
		{"contentAnalysis", r.ContentAnalysis},
		{"engagementMetrics", r.EngagementMetrics},
		{"improvementSuggestions", r.ImprovementSuggestions},
		{"bestPractices", r.BestPractices},
		{"sentiment", r.Sentiment},
		{"engagementScore", r.EngagementScore},
		{"topSuggestion", r.TopSuggestion},
		{"hashtagSuggestion", r.HashtagSuggestion},
	}
	out := all[:0]
	for _, f := range all {
		if len(f.Value) > 0 {
			out = append(out, f)
		}
	}
	return out
}
