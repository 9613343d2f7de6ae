package retrieval

import (
	"context"
	"time"

	"github.com/shoptalk/shoptalk/internal/contracts"
)

// ContractChunk is a retrieved contract fragment with its similarity score
// and the citation metadata carried from ingestion.
type ContractChunk struct {
	ID         string
	DocumentID string
	Article    string
	Section    string
	PageStart  int
	PageEnd    int
	Text       string
	Score      float32
	CreatedAt  time.Time
}

// Retriever combines embedding and vector search to find relevant contract
// text for a member's question.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the top-K most similar chunks from
// the given contract documents. Empty scope searches the whole corpus.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, scope []string) ([]ContractChunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(vec, topK, scope)
	if err != nil {
		return nil, err
	}

	return scoredToChunks(scored), nil
}

// RetrieveForLocal resolves the contract documents that apply to a union
// Local and retrieves within that scope. Local 0 (unknown) falls back to the
// National Master Agreement only.
func (r *Retriever) RetrieveForLocal(ctx context.Context, query string, topK int, localNumber int) ([]ContractChunk, error) {
	scope := contracts.DocumentScope(localNumber)
	return r.Retrieve(ctx, query, topK, scope)
}

// RetrieveByIDs returns chunks for the given record IDs, for replaying
// stored answers.
func (r *Retriever) RetrieveByIDs(ctx context.Context, ids []string) ([]ContractChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := r.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	chunks := make([]ContractChunk, len(records))
	for i, rec := range records {
		chunks[i] = recordToChunk(rec, 0)
	}
	return chunks, nil
}

func scoredToChunks(scored []ScoredRecord) []ContractChunk {
	chunks := make([]ContractChunk, len(scored))
	for i, s := range scored {
		chunks[i] = recordToChunk(s.Record, s.Score)
	}
	return chunks
}

func recordToChunk(rec Record, score float32) ContractChunk {
	return ContractChunk{
		ID:         rec.ID,
		DocumentID: rec.DocumentID,
		Article:    rec.Article,
		Section:    rec.Section,
		PageStart:  rec.PageStart,
		PageEnd:    rec.PageEnd,
		Text:       rec.TextChunk,
		Score:      score,
		CreatedAt:  rec.CreatedAt,
	}
}
