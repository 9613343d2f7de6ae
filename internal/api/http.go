// Package api exposes the HTTP and MCP surfaces: asking questions,
// managing conversations, registering contract documents for ingestion,
// and looking up which documents apply to a Local.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoptalk/shoptalk/internal/answer"
	"github.com/shoptalk/shoptalk/internal/contracts"
	"github.com/shoptalk/shoptalk/internal/storage"
)

const maxRequestBodySize = 1 << 20   // 1MB
const maxIngestBodySize = 10 << 20   // 10MB, inline contract text

// Asker answers member questions. *answer.Pipeline implements it.
type Asker interface {
	Ask(ctx context.Context, req answer.Request) (answer.Result, error)
}

// VectorDeleter abstracts vector store cleanup for the API layer.
type VectorDeleter interface {
	DeleteByDocument(documentID string) (int, error)
}

type AppDeps struct {
	Store   *storage.Store
	Asker   Asker
	Token   string
	Vectors VectorDeleter // optional; if nil, vector cleanup is skipped on delete
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Post("/ask", handleAsk(deps))
	r.Get("/conversations", handleListConversations(deps))
	r.Get("/conversations/{id}", handleGetConversation(deps))
	r.Delete("/conversations/{id}", handleDeleteConversation(deps))
	r.Get("/conversations/{id}/messages", handleListMessages(deps))
	r.Get("/locals/{number}/documents", handleLocalDocuments(deps))
	r.Post("/documents", handleIngestDocument(deps))
	r.Get("/documents", handleListDocuments(deps))
	r.Delete("/documents/{id}", handleDeleteDocument(deps))

	return r
}

// AskRequest is the POST /ask body.
type AskRequest struct {
	Local          int    `json:"local"`
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func handleAsk(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		result, err := deps.Asker.Ask(r.Context(), answer.Request{
			LocalNumber:    req.Local,
			Question:       req.Question,
			ConversationID: req.ConversationID,
		})
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to answer: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func handleListConversations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		conversations, err := deps.Store.ListConversations(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list conversations: %v", err)
			return
		}
		if conversations == nil {
			conversations = []storage.Conversation{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conversations)
	}
}

func handleGetConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		conv, err := deps.Store.GetConversation(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conv)
	}
}

func handleDeleteConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteConversation(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func handleListMessages(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, err := deps.Store.GetConversation(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get conversation: %v", err)
			return
		}

		messages, err := deps.Store.GetMessages(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list messages: %v", err)
			return
		}
		if messages == nil {
			messages = []storage.Message{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messages)
	}
}

func handleLocalDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil || number <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid local number")
			return
		}

		resp := map[string]any{
			"local":      number,
			"registered": false,
			"documents":  contracts.ApplicableDocuments(number).All,
		}
		if local, ok := contracts.LookupLocal(number); ok {
			resp["registered"] = true
			resp["name"] = local.Name
			resp["region"] = local.Region
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// IngestDocumentRequest is the POST /documents body. ID is the contract
// document ID the vectors will be scoped under ("master", "western",
// "local-705", ...). Exactly one of Path or Text supplies the content.
type IngestDocumentRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path,omitempty"`
	Text  string `json:"text,omitempty"`
}

func handleIngestDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodySize)
		defer r.Body.Close()

		var req IngestDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.ID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "id is required")
			return
		}
		if req.Path == "" && req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "one of path or text is required")
			return
		}

		title := req.Title
		if title == "" {
			if doc, ok := contracts.LookupDocument(req.ID); ok {
				title = doc.Name
			} else {
				title = req.ID
			}
		}
		source := req.Path
		if source == "" {
			source = "inline"
		}

		if err := deps.Store.UpsertContractDoc(storage.ContractDoc{
			ID:     req.ID,
			Title:  title,
			Source: source,
			Status: "pending",
		}); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}

		payload, err := json.Marshal(map[string]string{
			"document_id": req.ID,
			"path":        req.Path,
			"text":        req.Text,
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create job payload: %v", err)
			return
		}
		if err := deps.Store.EnqueueJob(storage.Job{
			ID:          uuid.New().String(),
			Type:        "ingest_document",
			PayloadJSON: string(payload),
		}); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue job: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":     req.ID,
			"status": "queued",
		})
	}
}

func handleListDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := deps.Store.ListContractDocs()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}
		if docs == nil {
			docs = []storage.ContractDoc{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(docs)
	}
}

func handleDeleteDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		// Vectors go first: a registry row without vectors is a re-ingestable
		// state, vectors without a registry row are orphans.
		if deps.Vectors != nil {
			if _, err := deps.Vectors.DeleteByDocument(id); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to delete vectors: %v", err)
				return
			}
		}

		err := deps.Store.DeleteContractDoc(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete document: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
