package entity

import "time"

// IngestBatch represents an ingestion batch for data transfer between layers.
type IngestBatch struct {
	ID                string     `json:"id"`
	Aggregate         string     `json:"aggregate"`
	Total             int        `json:"total"`
	Succeeded         int        `json:"succeeded"`
	Failed            int        `json:"failed"`
	Rejected          int        `json:"rejected"`
	CurrentArtifactID *string    `json:"current_artifact_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

// ArtifactJob represents one artifact's extraction inside a batch.
type ArtifactJob struct {
	ID           string     `json:"id"`
	BatchID      string     `json:"batch_id"`
	FileName     string     `json:"file_name"`
	MediaType    string     `json:"media_type"`
	Size         int64      `json:"size"`
	Status       string     `json:"status"`
	Engine       *string    `json:"engine,omitempty"`
	Method       *string    `json:"method,omitempty"`
	Text         *string    `json:"text,omitempty"`
	Confidence   *float64   `json:"confidence,omitempty"`
	WordCount    int        `json:"word_count"`
	LineCount    int        `json:"line_count"`
	CharCount    int        `json:"char_count"`
	PageCount    int        `json:"page_count"`
	ErrorCode    *string    `json:"error_code,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
