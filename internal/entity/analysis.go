package entity

import (
	"encoding/json"
	"time"
)

// Analysis represents a stored analysis for data transfer between layers.
type Analysis struct {
	ID           string          `json:"id"`
	Mode         string          `json:"mode"`
	ContentType  string          `json:"content_type"`
	Platform     string          `json:"platform"`
	OriginalText string          `json:"original_text"`
	TextLength   int             `json:"text_length"`
	WasTruncated bool            `json:"was_truncated"`
	Record       json.RawMessage `json:"record"`
	Fallback     bool            `json:"fallback"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	CreatedAt    time.Time       `json:"created_at"`
}
