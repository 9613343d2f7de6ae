package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shoptalk/shoptalk/internal/engine"
	"github.com/shoptalk/shoptalk/internal/gateway"
	"github.com/shoptalk/shoptalk/internal/reranking"
	"github.com/shoptalk/shoptalk/internal/retrieval"
	"github.com/shoptalk/shoptalk/internal/storage"
)

// --- mocks ---

type mockEngine struct{}

func (m *mockEngine) Chat(_ context.Context, _ string, _ []engine.Message, _ *engine.Schema) (string, error) {
	return "", fmt.Errorf("not implemented")
}
func (m *mockEngine) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	return testVector(), nil
}
func (m *mockEngine) IsRunning(_ context.Context) bool               { return true }
func (m *mockEngine) ListModels(_ context.Context) ([]string, error) { return nil, nil }
func (m *mockEngine) HasModel(_ context.Context, _ string) bool      { return true }
func (m *mockEngine) PullModel(_ context.Context, _ string, _ func(engine.PullProgress)) error {
	return nil
}

// brokenEmbedEngine fails every embedding call, as when Ollama is down.
type brokenEmbedEngine struct {
	mockEngine
}

func (b *brokenEmbedEngine) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

type mockCompleter struct {
	response string
	err      error
	gotReq   gateway.ChatRequest
}

func (m *mockCompleter) Complete(_ context.Context, req gateway.ChatRequest) (string, error) {
	m.gotReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func testVector() []float32 {
	v := make([]float32, 64)
	for i := range v {
		v[i] = float32(i) * 0.01
	}
	return v
}

// newTestPipeline builds a pipeline over an in-memory store seeded with the
// given vector records.
func newTestPipeline(t *testing.T, completer Completer, records []retrieval.Record) (*Pipeline, *storage.Store) {
	t.Helper()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { store.Close() })

	vecStore := retrieval.NewSQLiteStore(store.DB())
	if len(records) > 0 {
		if err := vecStore.Insert(records); err != nil {
			t.Fatalf("seeding vectors: %v", err)
		}
	}

	retriever := retrieval.NewRetriever(retrieval.NewEmbedder(&mockEngine{}, "nomic-embed-text"), vecStore)
	pipeline := NewPipeline(nil, retriever, &reranking.NoOpReranker{}, NewComposer(0), completer, store, "anthropic/claude-sonnet-4", 5)
	return pipeline, store
}

func seedRecord(id, documentID string) retrieval.Record {
	return retrieval.Record{
		ID:         id,
		DocumentID: documentID,
		Article:    "40",
		Section:    "2",
		PageStart:  118,
		TextChunk:  "Overtime is paid at one and one-half times the regular rate.",
		Embedding:  testVector(),
	}
}

// --- tests ---

func TestAsk_NewConversation(t *testing.T) {
	completer := &mockCompleter{
		response: "Time and a half after eight hours. [Doc: master, Art: 40, Sec: 2, Page: 118]",
	}
	p, store := newTestPipeline(t, completer, []retrieval.Record{seedRecord("master-chunk-0040", "master")})

	result, err := p.Ask(context.Background(), Request{
		LocalNumber: 705,
		Question:    "What is the overtime rate?",
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if result.ConversationID == "" {
		t.Error("ConversationID is empty")
	}
	if result.LocalNumber != 705 {
		t.Errorf("LocalNumber = %d, want 705", result.LocalNumber)
	}
	// Local 705 has a standalone agreement replacing the regional supplement.
	wantScope := []string{"master", "local-705"}
	if len(result.Scope) != 2 || result.Scope[0] != wantScope[0] || result.Scope[1] != wantScope[1] {
		t.Errorf("Scope = %v, want %v", result.Scope, wantScope)
	}
	if len(result.Citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(result.Citations))
	}
	c := result.Citations[0]
	if c.DocumentID != "master" || c.Article != "40" || c.Section != "2" || c.Page != 118 {
		t.Errorf("citation = %+v", c)
	}
	if !strings.Contains(result.Footnoted, "[^1]") {
		t.Errorf("footnoted answer missing footnote reference:\n%s", result.Footnoted)
	}
	if len(result.ChunkIDs) != 1 || result.ChunkIDs[0] != "master-chunk-0040" {
		t.Errorf("ChunkIDs = %v", result.ChunkIDs)
	}

	// Both turns persisted.
	msgs, err := store.GetMessages(result.ConversationID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d stored messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("roles = [%s %s], want [user assistant]", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Citations, `"document_id":"master"`) {
		t.Errorf("assistant citations not stored: %q", msgs[1].Citations)
	}

	conv, err := store.GetConversation(result.ConversationID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.Title != "What is the overtime rate?" {
		t.Errorf("Title = %q", conv.Title)
	}
}

// TestAsk_ScopeFiltersRetrieval verifies out-of-scope documents never reach
// the prompt.
func TestAsk_ScopeFiltersRetrieval(t *testing.T) {
	completer := &mockCompleter{response: "answer"}
	p, _ := newTestPipeline(t, completer, []retrieval.Record{
		seedRecord("master-chunk-0000", "master"),
		seedRecord("western-chunk-0000", "western"),
	})

	// Local 705's scope is master + local-705: the western chunk must not
	// appear in the composed prompt.
	_, err := p.Ask(context.Background(), Request{LocalNumber: 705, Question: "overtime?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	sys := completer.gotReq.Messages[0].Content
	if strings.Contains(sys, "[Doc: western") {
		t.Errorf("out-of-scope western excerpt reached the prompt:\n%s", sys)
	}
	if !strings.Contains(sys, "[Doc: master") {
		t.Errorf("in-scope master excerpt missing from the prompt")
	}
}

func TestAsk_ExistingConversation(t *testing.T) {
	completer := &mockCompleter{response: "follow-up answer"}
	p, store := newTestPipeline(t, completer, nil)

	if err := store.CreateConversation(storage.Conversation{ID: "conv-1", LocalNumber: 89, Title: "t"}); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if err := store.SaveMessage(storage.Message{ID: "m1", ConversationID: "conv-1", Role: "user", Content: "first question"}); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if err := store.SaveMessage(storage.Message{ID: "m2", ConversationID: "conv-1", Role: "assistant", Content: "first answer"}); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	result, err := p.Ask(context.Background(), Request{
		Question:       "and on Sundays?",
		ConversationID: "conv-1",
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// Local comes from the stored conversation when the request omits it.
	if result.LocalNumber != 89 {
		t.Errorf("LocalNumber = %d, want 89 from conversation", result.LocalNumber)
	}

	// History is replayed between system prompt and new question.
	msgs := completer.gotReq.Messages
	if len(msgs) != 4 {
		t.Fatalf("completer got %d messages, want 4", len(msgs))
	}
	if msgs[1].Content != "first question" || msgs[2].Content != "first answer" {
		t.Errorf("history not replayed: %+v", msgs[1:3])
	}
	if msgs[3].Content != "and on Sundays?" {
		t.Errorf("question not last: %+v", msgs[3])
	}
}

func TestAsk_UnknownConversation(t *testing.T) {
	p, _ := newTestPipeline(t, &mockCompleter{response: "x"}, nil)

	_, err := p.Ask(context.Background(), Request{Question: "q", ConversationID: "missing"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	p, _ := newTestPipeline(t, &mockCompleter{response: "x"}, nil)

	if _, err := p.Ask(context.Background(), Request{LocalNumber: 705}); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestAsk_CompleterError(t *testing.T) {
	p, _ := newTestPipeline(t, &mockCompleter{err: errors.New("gateway down")}, nil)

	_, err := p.Ask(context.Background(), Request{LocalNumber: 705, Question: "q"})
	if err == nil {
		t.Fatal("expected error when gateway fails")
	}
	if !strings.Contains(err.Error(), "gateway down") {
		t.Errorf("err = %v", err)
	}
}

// TestAsk_RetrievalFailureDegrades verifies a dead embedding backend still
// produces an answer: the prompt simply carries no contract excerpts.
func TestAsk_RetrievalFailureDegrades(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { store.Close() })

	vecStore := retrieval.NewSQLiteStore(store.DB())
	if err := vecStore.Insert([]retrieval.Record{seedRecord("master-chunk-0040", "master")}); err != nil {
		t.Fatalf("seeding vectors: %v", err)
	}

	completer := &mockCompleter{response: "The excerpts provided do not cover this."}
	retriever := retrieval.NewRetriever(retrieval.NewEmbedder(&brokenEmbedEngine{}, "nomic-embed-text"), vecStore)
	p := NewPipeline(nil, retriever, &reranking.NoOpReranker{}, NewComposer(0), completer, store, "anthropic/claude-sonnet-4", 5)

	result, err := p.Ask(context.Background(), Request{LocalNumber: 705, Question: "What is the overtime rate?"})
	if err != nil {
		t.Fatalf("Ask must degrade when retrieval fails, got: %v", err)
	}

	if result.Answer == "" {
		t.Error("Answer is empty")
	}
	if len(result.ChunkIDs) != 0 {
		t.Errorf("ChunkIDs = %v, want none when retrieval failed", result.ChunkIDs)
	}
	// No excerpts reach the prompt.
	sys := completer.gotReq.Messages[0].Content
	if strings.Contains(sys, "[Contract Excerpts]") {
		t.Errorf("prompt carries excerpts despite failed retrieval:\n%s", sys)
	}
}

// TestAsk_UnknownLocalFailsOpen verifies an unregistered Local degrades to
// master-only scope instead of failing.
func TestAsk_UnknownLocalFailsOpen(t *testing.T) {
	completer := &mockCompleter{response: "answer"}
	p, _ := newTestPipeline(t, completer, nil)

	result, err := p.Ask(context.Background(), Request{LocalNumber: 9999, Question: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(result.Scope) != 1 || result.Scope[0] != "master" {
		t.Errorf("Scope = %v, want [master]", result.Scope)
	}
}

func TestTruncateTitle(t *testing.T) {
	short := "What is the overtime rate?"
	if got := truncateTitle(short); got != short {
		t.Errorf("truncateTitle(%q) = %q, want unchanged", short, got)
	}

	long := strings.Repeat("x", 100)
	if got := truncateTitle(long); len([]rune(got)) != 80 {
		t.Errorf("len = %d runes, want 80", len([]rune(got)))
	}

	// Multi-byte question whose 80th byte lands mid-rune: the result must
	// stay valid UTF-8 and keep whole characters.
	accented := strings.Repeat("é", 100)
	got := truncateTitle(accented)
	if !utf8.ValidString(got) {
		t.Errorf("truncated title is not valid UTF-8: %q", got)
	}
	if runes := []rune(got); len(runes) != 80 {
		t.Errorf("len = %d runes, want 80", len(runes))
	}
	for _, r := range got {
		if r != 'é' {
			t.Fatalf("unexpected rune %q in truncated title", r)
		}
	}
}
