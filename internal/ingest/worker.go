// Package ingest processes contract ingestion jobs: extract, chunk, embed,
// and index one contract document per job.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shoptalk/shoptalk/internal/chunker"
	"github.com/shoptalk/shoptalk/internal/extract"
	"github.com/shoptalk/shoptalk/internal/retrieval"
	"github.com/shoptalk/shoptalk/internal/storage"
)

// JobStore abstracts the job queue and document registry operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetContractDoc(id string) (storage.ContractDoc, error)
	SetContractDocStatus(id, status string, pageCount, chunkCount int, lastError string) error
}

// ContentEmbedder generates embeddings for chunk texts.
type ContentEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter replaces a document's records in the vector store.
type VectorWriter interface {
	Insert(records []retrieval.Record) error
	DeleteByDocument(documentID string) (int, error)
}

// Worker processes ingest_document jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	embedder ContentEmbedder
	vectors  VectorWriter
	chunkCfg chunker.Config
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If cfg.MaxTokens is <= 0, chunker.DefaultConfig() is used.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, embedder ContentEmbedder, vectors VectorWriter, cfg chunker.Config, pollInterval time.Duration) *Worker {
	if cfg.MaxTokens <= 0 {
		cfg = chunker.DefaultConfig()
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		chunkCfg: cfg,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single ingest_document job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{"ingest_document"})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

// ingestPayload is the ingest_document job payload. Text carries the
// contract inline; otherwise Path (or the registered doc's Source) names
// the file to extract.
type ingestPayload struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path,omitempty"`
	Text       string `json:"text,omitempty"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload ingestPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if payload.DocumentID == "" {
		return fmt.Errorf("payload missing document_id")
	}

	if err := w.ingest(ctx, payload); err != nil {
		if markErr := w.store.SetContractDocStatus(payload.DocumentID, "failed", 0, 0, err.Error()); markErr != nil {
			w.logger.Error("failed to mark document failed", "document", payload.DocumentID, "error", markErr)
		}
		return err
	}
	return nil
}

func (w *Worker) ingest(ctx context.Context, payload ingestPayload) error {
	doc, err := w.store.GetContractDoc(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("loading contract doc %s: %w", payload.DocumentID, err)
	}

	extracted, err := w.extractDocument(doc, payload)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", doc.ID, err)
	}

	chunked := chunker.ChunkDocument(extracted, w.chunkCfg)
	if len(chunked.Chunks) == 0 {
		return fmt.Errorf("document %s produced no chunks", doc.ID)
	}

	texts := make([]string, len(chunked.Chunks))
	for i, ch := range chunked.Chunks {
		texts[i] = ch.Content
	}
	embeddings, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}
	if len(embeddings) != len(chunked.Chunks) {
		return fmt.Errorf("embedded %d of %d chunks", len(embeddings), len(chunked.Chunks))
	}

	now := time.Now().UTC()
	records := make([]retrieval.Record, len(chunked.Chunks))
	for i, ch := range chunked.Chunks {
		records[i] = retrieval.Record{
			ID:         ch.ID,
			DocumentID: ch.Metadata.DocumentID,
			Article:    ch.Metadata.Article,
			Section:    ch.Metadata.Section,
			PageStart:  ch.Metadata.PageStart,
			PageEnd:    ch.Metadata.PageEnd,
			ChunkIndex: ch.Metadata.ChunkIndex,
			TextChunk:  ch.Content,
			Embedding:  embeddings[i],
			CreatedAt:  now,
		}
	}

	// Re-ingest replaces the document's vectors wholesale so stale chunks
	// from a previous version never surface alongside the new ones.
	if _, err := w.vectors.DeleteByDocument(doc.ID); err != nil {
		return fmt.Errorf("clearing old vectors for %s: %w", doc.ID, err)
	}
	if err := w.vectors.Insert(records); err != nil {
		return fmt.Errorf("inserting %d vectors: %w", len(records), err)
	}

	if err := w.store.SetContractDocStatus(doc.ID, "ready", extracted.PageCount, len(records), ""); err != nil {
		return fmt.Errorf("marking %s ready: %w", doc.ID, err)
	}

	w.logger.Info("document ingested",
		"document", doc.ID,
		"pages", extracted.PageCount,
		"chunks", len(records),
	)
	return nil
}

// extractDocument picks the extractor from the payload: inline text wins,
// then the file extension of the payload path or the doc's registered source.
func (w *Worker) extractDocument(doc storage.ContractDoc, payload ingestPayload) (*extract.Document, error) {
	if payload.Text != "" {
		return extract.FromText(doc.ID, doc.Title, payload.Text), nil
	}

	path := payload.Path
	if path == "" {
		path = doc.Source
	}
	if path == "" {
		return nil, fmt.Errorf("no source path or inline text")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extract.FromPDF(path, doc.ID, doc.Title)
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return extract.FromHTML(f, doc.ID, doc.Title)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return extract.FromText(doc.ID, doc.Title, string(data)), nil
	}
}
