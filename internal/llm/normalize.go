package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
)

var fullKeys = []string{"contentAnalysis", "engagementMetrics", "improvementSuggestions", "bestPractices"}

var quickKeys = []string{"sentiment", "engagementScore", "topSuggestion", "hashtagSuggestion"}

// RecognizedKeys returns the top-level keys that make a response structured in mode.
func RecognizedKeys(mode constants.AnalysisMode) []string {
	if mode == constants.ModeQuick {
		return quickKeys
	}
	return fullKeys
}

// StripFences removes a surrounding markdown code fence (``` or ```json) and trims whitespace.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = t[3:]
	// language tag: letters, digits and -_+. up to the first whitespace or JSON start
	i := 0
	for i < len(t) && isTagByte(t[i]) {
		i++
	}
	if i == len(t) || t[i] == '\n' || t[i] == '\r' || t[i] == ' ' || t[i] == '\t' || t[i] == '{' || t[i] == '[' {
		t = t[i:]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

func isTagByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '+' || c == '.'
}

// Normalize turns raw model output into an AnalysisRecord. It never fails:
// unparsable text and JSON without any recognized key both land in RawFallback.
func Normalize(raw string, mode constants.AnalysisMode) AnalysisRecord {
	cleaned := StripFences(raw)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil || obj == nil {
		if json.Valid([]byte(cleaned)) {
			// valid JSON that is not an object
			return AnalysisRecord{RawFallback: &RawFallback{Text: raw, Parsed: json.RawMessage(cleaned)}}
		}
		return AnalysisRecord{RawFallback: &RawFallback{Text: raw, ParseFailed: true}}
	}

	var rec AnalysisRecord
	matched := 0
	for _, key := range RecognizedKeys(mode) {
		v, ok := obj[key]
		if !ok {
			continue
		}
		matched++
		*rec.slot(key) = v
	}
	if matched == 0 {
		return AnalysisRecord{RawFallback: &RawFallback{Text: raw, Parsed: compact(cleaned)}}
	}
	return rec
}

func (r *AnalysisRecord) slot(key string) *json.RawMessage {
	switch key {
	case "contentAnalysis":
		return &r.ContentAnalysis
	case "engagementMetrics":
		return &r.EngagementMetrics
	case "improvementSuggestions":
		return &r.ImprovementSuggestions
	case "bestPractices":
		return &r.BestPractices
	case "sentiment":
		return &r.Sentiment
	case "engagementScore":
		return &r.EngagementScore
	case "topSuggestion":
		return &r.TopSuggestion
	case "hashtagSuggestion":
		return &r.HashtagSuggestion
	}
	return new(json.RawMessage)
}

// NormalizeLoose accepts any JSON value after fence stripping; other text is
// wrapped as {fallbackKey: raw}.
func NormalizeLoose(raw, fallbackKey string) json.RawMessage {
	cleaned := StripFences(raw)
	if cleaned != "" && json.Valid([]byte(cleaned)) {
		return compact(cleaned)
	}
	if fallbackKey == "" {
		fallbackKey = "raw"
	}
	b, err := json.Marshal(map[string]string{fallbackKey: raw})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

func compact(s string) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return json.RawMessage(s)
	}
	return buf.Bytes()
}
