package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Conversation is one member's question thread. LocalNumber records which
// union Local the member asked as; it scopes retrieval for every question
// in the thread.
type Conversation struct {
	ID          string
	LocalNumber int
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one turn in a conversation. For assistant messages, Citations
// holds the parsed citation list as JSON and ChunkIDs the vector-store IDs
// of the chunks the answer was grounded on, so stored answers replay
// without reparsing against live data.
type Message struct {
	ID             string
	ConversationID string
	Role           string // "user" or "assistant"
	Content        string
	Citations      string // JSON array, "[]" when none
	ChunkIDs       string // JSON array, "[]" when none
	CreatedAt      time.Time
}

// ContractDoc tracks an ingested contract document. ID is the contract
// document ID ("master", "western", ...), not a UUID: one row per document.
type ContractDoc struct {
	ID         string
	Title      string
	Source     string // file path or URL the text came from
	Status     string // "pending", "ready", "failed"
	PageCount  int
	ChunkCount int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Job is a queued background task.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
