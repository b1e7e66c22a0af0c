package llm

import "github.com/joseph-ayodele/engagement-analyzer/constants"

// BuildAnalysisSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It only pins the types of the recognized sections; every key stays optional.
func BuildAnalysisSchema(mode constants.AnalysisMode) map[string]any {
	if mode == constants.ModeQuick {
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sentiment":         map[string]any{"type": "string"},
				"engagementScore":   map[string]any{"type": []any{"string", "number"}},
				"topSuggestion":     map[string]any{"type": "string"},
				"hashtagSuggestion": map[string]any{"type": []any{"string", "array"}},
			},
		}
	}

	strList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"contentAnalysis": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tone":              map[string]any{"type": "string"},
					"sentiment":         map[string]any{"type": "string"},
					"readability":       map[string]any{"type": "string"},
					"wordCount":         map[string]any{"type": []any{"number", "string"}},
					"estimatedReadTime": map[string]any{"type": "string"},
					"keyTopics":         strList,
					"targetAudience":    map[string]any{"type": "string"},
				},
			},
			"engagementMetrics": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": []any{"string", "number", "object"}},
			},
			"improvementSuggestions": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"headline":         strList,
					"content":          strList,
					"hashtags":         strList,
					"visualElements":   strList,
					"timing":           map[string]any{"type": "string"},
					"platformSpecific": map[string]any{"type": "object", "additionalProperties": strList},
				},
			},
			"bestPractices": map[string]any{
				"type":                 "object",
				"additionalProperties": strList,
			},
		},
	}
}
