package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shoptalk/shoptalk/internal/citation"
	"github.com/shoptalk/shoptalk/internal/contracts"
	"github.com/shoptalk/shoptalk/internal/gateway"
	"github.com/shoptalk/shoptalk/internal/localdetect"
	"github.com/shoptalk/shoptalk/internal/reranking"
	"github.com/shoptalk/shoptalk/internal/retrieval"
	"github.com/shoptalk/shoptalk/internal/storage"
)

// Completer is the cloud model surface the pipeline answers through.
// *gateway.Client implements it.
type Completer interface {
	Complete(ctx context.Context, req gateway.ChatRequest) (string, error)
}

// Request is one member question.
type Request struct {
	// LocalNumber scopes retrieval. 0 means unknown: the pipeline tries to
	// detect it from the question, then falls back to master-only scope.
	LocalNumber    int
	Question       string
	ConversationID string // empty starts a new conversation
}

// Result is the answered question with its provenance.
type Result struct {
	ConversationID string              `json:"conversation_id"`
	LocalNumber    int                 `json:"local_number"`
	Scope          []string            `json:"scope"`
	Answer         string              `json:"answer"`
	Footnoted      string              `json:"footnoted"`
	Citations      []citation.Citation `json:"citations"`
	ChunkIDs       []string            `json:"chunk_ids"`
	DurationMs     int64               `json:"duration_ms"`
}

// Pipeline orchestrates one question: resolve which contracts apply, retrieve
// and rerank relevant chunks, compose the prompt, call the cloud model, parse
// citations out of the answer, and persist the conversation turn.
type Pipeline struct {
	detector  *localdetect.Detector
	retriever *retrieval.Retriever
	reranker  reranking.Reranker
	composer  *Composer
	completer Completer
	store     *storage.Store
	model     string
	topK      int
}

// NewPipeline wires the answer pipeline. detector may be nil (no detection
// fallback). topK controls retrieval breadth (default 8 if <= 0).
func NewPipeline(
	detector *localdetect.Detector,
	retriever *retrieval.Retriever,
	reranker reranking.Reranker,
	composer *Composer,
	completer Completer,
	store *storage.Store,
	model string,
	topK int,
) *Pipeline {
	if topK <= 0 {
		topK = 8
	}
	return &Pipeline{
		detector:  detector,
		retriever: retriever,
		reranker:  reranker,
		composer:  composer,
		completer: completer,
		store:     store,
		model:     model,
		topK:      topK,
	}
}

// Ask answers one member question end to end.
func (p *Pipeline) Ask(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	if req.Question == "" {
		return Result{}, fmt.Errorf("question is empty")
	}

	conv, history, err := p.loadConversation(ctx, req)
	if err != nil {
		return Result{}, err
	}

	local := req.LocalNumber
	if local == 0 {
		local = conv.LocalNumber
	}
	if local == 0 && p.detector != nil {
		local = p.detector.Detect(ctx, req.Question)
	}

	scope := contracts.DocumentScope(local)

	chunks, err := p.retriever.Retrieve(ctx, req.Question, p.topK, scope)
	if err != nil {
		// A dead embedding backend must not take /ask down with it. The
		// model is told there are no excerpts and answers accordingly.
		slog.Warn("retrieval failed, answering without contract excerpts", "error", err)
		chunks = nil
	}

	reranked, err := p.reranker.Rerank(ctx, req.Question, chunks)
	if err != nil {
		slog.Warn("reranking failed, using retrieval order", "error", err)
		reranked = chunks
	}

	messages := p.composer.Compose(req.Question, local, reranked, history)

	answer, err := p.completer.Complete(ctx, gateway.ChatRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		return Result{}, fmt.Errorf("generating answer: %w", err)
	}

	parsed := citation.Parse(answer)
	chunkIDs := make([]string, 0, len(reranked))
	for _, ch := range reranked {
		chunkIDs = append(chunkIDs, ch.ID)
	}

	result := Result{
		ConversationID: conv.ID,
		LocalNumber:    local,
		Scope:          scope,
		Answer:         answer,
		Footnoted:      citation.TransformToFootnotes(answer),
		Citations:      parsed.Citations,
		ChunkIDs:       chunkIDs,
		DurationMs:     time.Since(start).Milliseconds(),
	}

	if err := p.persistTurn(conv, req.Question, result); err != nil {
		// The member already has the answer; losing the stored turn is
		// worth a warning, not a failed request.
		slog.Warn("persisting conversation turn failed", "conversation", conv.ID, "error", err)
	}

	return result, nil
}

// loadConversation resolves or creates the conversation for the request and
// returns the prior turns as chat history, oldest first.
func (p *Pipeline) loadConversation(ctx context.Context, req Request) (storage.Conversation, []gateway.ChatMessage, error) {
	_ = ctx

	if req.ConversationID != "" {
		conv, err := p.store.GetConversation(req.ConversationID)
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Conversation{}, nil, fmt.Errorf("conversation %s: %w", req.ConversationID, err)
		}
		if err != nil {
			return storage.Conversation{}, nil, fmt.Errorf("loading conversation: %w", err)
		}

		stored, err := p.store.GetMessages(conv.ID)
		if err != nil {
			return storage.Conversation{}, nil, fmt.Errorf("loading messages: %w", err)
		}
		history := make([]gateway.ChatMessage, 0, len(stored))
		for _, m := range stored {
			history = append(history, gateway.ChatMessage{Role: m.Role, Content: m.Content})
		}
		return conv, history, nil
	}

	conv := storage.Conversation{
		ID:          uuid.NewString(),
		LocalNumber: req.LocalNumber,
		Title:       truncateTitle(req.Question),
	}
	if err := p.store.CreateConversation(conv); err != nil {
		return storage.Conversation{}, nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil, nil
}

func (p *Pipeline) persistTurn(conv storage.Conversation, question string, result Result) error {
	if err := p.store.SaveMessage(storage.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           "user",
		Content:        question,
	}); err != nil {
		return err
	}

	var citationsJSON, chunkIDsJSON []byte
	var err error
	if len(result.Citations) > 0 {
		if citationsJSON, err = json.Marshal(result.Citations); err != nil {
			return err
		}
	}
	if len(result.ChunkIDs) > 0 {
		if chunkIDsJSON, err = json.Marshal(result.ChunkIDs); err != nil {
			return err
		}
	}
	if err := p.store.SaveMessage(storage.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        result.Answer,
		Citations:      string(citationsJSON),
		ChunkIDs:       string(chunkIDsJSON),
	}); err != nil {
		return err
	}

	return p.store.TouchConversation(conv.ID, "")
}

// truncateTitle caps a conversation title at 80 characters without splitting
// a multi-byte rune.
func truncateTitle(question string) string {
	const maxTitle = 80
	if len(question) <= maxTitle {
		return question
	}
	runes := []rune(question)
	if len(runes) <= maxTitle {
		return question
	}
	return string(runes[:maxTitle])
}
