// Package ingestion defines the request/response types and Kafka event
// schemas used by the text submission pipeline.
package ingestion

import "time"

// SubmitRequest is the JSON body accepted by the submission HTTP endpoint.
type SubmitRequest struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	IdempotencyKey string `json:"idempotency_key"`
}

// SubmitResponse is returned to the caller after a text is accepted.
type SubmitResponse struct {
	TextID    string `json:"text_id"`
	Status    string `json:"status"`
	Partition int    `json:"partition"`
}

// TextEvent is the Kafka message payload produced after a text is persisted
// and ready to join the scan corpus. Op distinguishes additions from
// deletions.
type TextEvent struct {
	Op          string    `json:"op"` // "add" or "remove"
	TextID      string    `json:"text_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Partition   int       `json:"partition"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Event operations carried by TextEvent.
const (
	OpAdd    = "add"
	OpRemove = "remove"
)
