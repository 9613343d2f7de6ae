package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shoptalk/shoptalk/internal/answer"
	"github.com/shoptalk/shoptalk/internal/contracts"
	"github.com/shoptalk/shoptalk/internal/retrieval"
	"github.com/shoptalk/shoptalk/internal/storage"
)

// MCPRetriever abstracts scoped semantic search for the MCP layer.
type MCPRetriever interface {
	RetrieveForLocal(ctx context.Context, query string, topK int, localNumber int) ([]retrieval.ContractChunk, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	Retriever MCPRetriever
	Asker     Asker // optional; if nil, ask_contracts returns an error
}

// NewMCPServer creates an MCP server with the contract tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"shoptalk",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("shoptalk — UPS Teamster contract lookup: search contract language, resolve which documents apply to a Local, and ask cited questions."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_contracts",
			mcp.WithDescription("Semantically search contract text, scoped to the documents that apply to the given Local."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("local", mcp.Description("Union Local number; omit or 0 searches the master agreement only")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSearchContracts(deps),
	)

	s.AddTool(
		mcp.NewTool("applicable_documents",
			mcp.WithDescription("List the contract documents that apply to a union Local, master first."),
			mcp.WithNumber("local", mcp.Description("Union Local number"), mcp.Required()),
		),
		mcpApplicableDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_contracts",
			mcp.WithDescription("Answer a member's contract question with citations into the applicable documents."),
			mcp.WithString("question", mcp.Description("The member's question"), mcp.Required()),
			mcp.WithNumber("local", mcp.Description("Union Local number; omitted, it is detected from the question")),
			mcp.WithString("conversation_id", mcp.Description("Continue an existing conversation")),
		),
		mcpAskContracts(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"contracts://documents",
			"Ingested Contract Documents",
			mcp.WithResourceDescription("Registry of ingested contract documents with status and chunk counts"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDocuments(deps),
	)

	return s
}

func mcpSearchContracts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		local := req.GetInt("local", 0)
		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		chunks, err := deps.Retriever.RetrieveForLocal(ctx, query, limit, local)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(chunks) == 0 {
			return mcpText("[]"), nil
		}

		type chunkResult struct {
			ID         string  `json:"id"`
			DocumentID string  `json:"document_id"`
			Article    string  `json:"article,omitempty"`
			Section    string  `json:"section,omitempty"`
			PageStart  int     `json:"page_start"`
			PageEnd    int     `json:"page_end"`
			Text       string  `json:"text"`
			Score      float32 `json:"score"`
		}

		results := make([]chunkResult, len(chunks))
		for i, c := range chunks {
			results[i] = chunkResult{
				ID:         c.ID,
				DocumentID: c.DocumentID,
				Article:    c.Article,
				Section:    c.Section,
				PageStart:  c.PageStart,
				PageEnd:    c.PageEnd,
				Text:       c.Text,
				Score:      c.Score,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpApplicableDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		local := req.GetInt("local", 0)
		if local <= 0 {
			return mcpError("local is required"), nil
		}

		type docResult struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			ShortName string `json:"short_name"`
			Type      string `json:"type"`
		}

		applicable := contracts.ApplicableDocuments(local)
		results := make([]docResult, len(applicable.All))
		for i, d := range applicable.All {
			results[i] = docResult{
				ID:        d.ID,
				Name:      d.Name,
				ShortName: d.ShortName,
				Type:      string(d.Type),
			}
		}

		resp := map[string]any{
			"local":      local,
			"registered": false,
			"documents":  results,
		}
		if l, ok := contracts.LookupLocal(local); ok {
			resp["registered"] = true
			resp["name"] = l.Name
			resp["region"] = l.Region
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal documents: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskContracts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Asker == nil {
			return mcpError("asking not available: no gateway configured"), nil
		}

		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		local := req.GetInt("local", 0)
		conversationID := req.GetString("conversation_id", "")

		result, err := deps.Asker.Ask(ctx, answer.Request{
			LocalNumber:    local,
			Question:       question,
			ConversationID: conversationID,
		})
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError("conversation not found"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceDocuments(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docs, err := deps.Store.ListContractDocs()
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}

		type docSummary struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			Status     string `json:"status"`
			PageCount  int    `json:"page_count"`
			ChunkCount int    `json:"chunk_count"`
		}

		summaries := make([]docSummary, len(docs))
		for i, d := range docs {
			summaries[i] = docSummary{
				ID:         d.ID,
				Title:      d.Title,
				Status:     d.Status,
				PageCount:  d.PageCount,
				ChunkCount: d.ChunkCount,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal documents: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
