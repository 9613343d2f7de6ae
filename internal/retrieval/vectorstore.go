package retrieval

import (
	"context"
	"time"
)

// VectorStore is the interface for vector storage and similarity search
// backends. The current implementation uses SQLite with brute-force cosine
// similarity, which is fine for the contract corpus (a few thousand chunks
// across ~15 documents). An ANN-capable backend can replace it behind this
// interface if the corpus grows.
//
//   - Record carries the contract metadata (document, article, section,
//     pages) alongside the text and embedding, so search results cite
//     without a second lookup.
//   - The scope parameter in Search restricts results to the given contract
//     document IDs. An empty scope searches everything.
type VectorStore interface {
	// Insert adds records to the store.
	Insert(records []Record) error

	// Search returns the top-K records most similar to vector, restricted
	// to the given contract document IDs. Empty scope means no restriction.
	Search(vector []float32, topK int, scope []string) ([]ScoredRecord, error)

	// GetByIDs returns records matching the given IDs.
	GetByIDs(ctx context.Context, ids []string) ([]Record, error)

	// DeleteByDocument removes all records belonging to a contract document.
	// Returns the number of records removed.
	DeleteByDocument(documentID string) (int, error)

	// Count returns the number of stored records.
	Count() (int, error)
}

// Record represents one contract chunk row in the vector store. ID is the
// chunk ID ("<document>-chunk-<index>").
type Record struct {
	ID         string
	DocumentID string
	Article    string
	Section    string
	PageStart  int
	PageEnd    int
	ChunkIndex int
	TextChunk  string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
