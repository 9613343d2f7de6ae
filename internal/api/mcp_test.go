package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shoptalk/shoptalk/internal/answer"
	"github.com/shoptalk/shoptalk/internal/retrieval"
	"github.com/shoptalk/shoptalk/internal/storage"
)

// --- mocks ---

type mockMCPRetriever struct {
	chunks   []retrieval.ContractChunk
	err      error
	gotLocal int
}

func (m *mockMCPRetriever) RetrieveForLocal(_ context.Context, _ string, _ int, localNumber int) ([]retrieval.ContractChunk, error) {
	m.gotLocal = localNumber
	return m.chunks, m.err
}

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{
		Store:     store,
		Retriever: &mockMCPRetriever{},
		Asker:     &mockAsker{},
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_SearchContracts(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	retriever := &mockMCPRetriever{chunks: []retrieval.ContractChunk{
		{ID: "master-chunk-0001", DocumentID: "master", Article: "40", Section: "2", PageStart: 118, Text: "Overtime clause", Score: 0.91},
	}}
	deps.Retriever = retriever
	handler := mcpSearchContracts(deps)

	req := makeCallToolRequest("search_contracts", map[string]interface{}{
		"query": "overtime rate",
		"local": float64(705),
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if retriever.gotLocal != 705 {
		t.Errorf("retriever got local %d, want 705", retriever.gotLocal)
	}

	var chunks []map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &chunks); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0]["document_id"] != "master" || chunks[0]["article"] != "40" {
		t.Errorf("chunk = %v", chunks[0])
	}
}

func TestMCPTool_SearchContracts_Empty(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSearchContracts(deps)

	req := makeCallToolRequest("search_contracts", map[string]interface{}{"query": "anything"})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := toolText(t, result); got != "[]" {
		t.Errorf("result = %q, want []", got)
	}
}

func TestMCPTool_SearchContracts_MissingQuery(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSearchContracts(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_contracts", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing query")
	}
}

func TestMCPTool_SearchContracts_RetrieverError(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Retriever = &mockMCPRetriever{err: errors.New("store closed")}
	handler := mcpSearchContracts(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_contracts", map[string]interface{}{"query": "q"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error when retriever fails")
	}
}

func TestMCPTool_ApplicableDocuments(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpApplicableDocuments(deps)

	req := makeCallToolRequest("applicable_documents", map[string]interface{}{"local": float64(89)})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var resp struct {
		Local      int  `json:"local"`
		Registered bool `json:"registered"`
		Documents  []struct {
			ID string `json:"id"`
		} `json:"documents"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !resp.Registered {
		t.Error("Local 89 should be registered")
	}
	// Local 89 adds the Louisville Air Rider on top of master + central.
	ids := make([]string, len(resp.Documents))
	for i, d := range resp.Documents {
		ids[i] = d.ID
	}
	want := []string{"master", "central", "louisville-air"}
	if len(ids) != len(want) {
		t.Fatalf("documents = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("documents = %v, want %v", ids, want)
			break
		}
	}
}

func TestMCPTool_ApplicableDocuments_MissingLocal(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpApplicableDocuments(deps)

	result, err := handler(context.Background(), makeCallToolRequest("applicable_documents", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing local")
	}
}

func TestMCPTool_AskContracts(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	asker := &mockAsker{result: answer.Result{
		ConversationID: "conv-1",
		LocalNumber:    705,
		Answer:         "Time and a half. [Doc: master, Art: 40]",
	}}
	deps.Asker = asker
	handler := mcpAskContracts(deps)

	req := makeCallToolRequest("ask_contracts", map[string]interface{}{
		"question": "What is the overtime rate?",
		"local":    float64(705),
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if asker.gotReq.LocalNumber != 705 {
		t.Errorf("asker got local %d, want 705", asker.gotReq.LocalNumber)
	}
	if !strings.Contains(toolText(t, result), `"conversation_id":"conv-1"`) {
		t.Errorf("result = %s", toolText(t, result))
	}
}

func TestMCPTool_AskContracts_NoAsker(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Asker = nil
	handler := mcpAskContracts(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask_contracts", map[string]interface{}{"question": "q"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error when no asker is configured")
	}
}

func TestMCPResource_Documents(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	if err := store.UpsertContractDoc(storage.ContractDoc{ID: "master", Title: "National Master", Source: "master.pdf", Status: "ready", PageCount: 250, ChunkCount: 900}); err != nil {
		t.Fatalf("UpsertContractDoc: %v", err)
	}
	handler := mcpResourceDocuments(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("contracts://documents"))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var docs []map[string]any
	if err := json.Unmarshal([]byte(text.Text), &docs); err != nil {
		t.Fatalf("unmarshal resource: %v", err)
	}
	if len(docs) != 1 || docs[0]["id"] != "master" || docs[0]["status"] != "ready" {
		t.Errorf("docs = %v", docs)
	}
}
