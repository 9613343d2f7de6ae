package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database with the contract_vectors table.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE contract_vectors (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			article TEXT NOT NULL DEFAULT '',
			section TEXT NOT NULL DEFAULT '',
			page_start INTEGER NOT NULL DEFAULT 0,
			page_end INTEGER NOT NULL DEFAULT 0,
			chunk_index INTEGER NOT NULL DEFAULT 0,
			text_chunk TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at TEXT NOT NULL
		)`)
	if err != nil {
		t.Fatalf("creating table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makeTestVector(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = seed + float32(i)*0.001
	}
	return v
}

func makeTestRecord(id, documentID string, seed float32) Record {
	return Record{
		ID:         id,
		DocumentID: documentID,
		Article:    "6",
		Section:    "2",
		PageStart:  10,
		PageEnd:    11,
		TextChunk:  "seniority governs shift selection",
		Embedding:  makeTestVector(768, seed),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestInsertAndSearch(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	vec := makeTestVector(768, 0.1)
	rec := makeTestRecord("master-chunk-0001", "master", 0.1)
	rec.Embedding = vec
	if err := s.Insert([]Record{rec}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := s.Search(vec, 1, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Score < 0.99 {
		t.Errorf("score = %f, want > 0.99", results[0].Score)
	}
	if results[0].ID != "master-chunk-0001" {
		t.Errorf("ID = %q, want %q", results[0].ID, "master-chunk-0001")
	}
	if results[0].Article != "6" || results[0].Section != "2" || results[0].PageStart != 10 {
		t.Errorf("metadata lost in round-trip: article=%q section=%q page_start=%d",
			results[0].Article, results[0].Section, results[0].PageStart)
	}
}

func TestSearch_TopK(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	var records []Record
	for i := 0; i < 10; i++ {
		records = append(records, makeTestRecord(fmt.Sprintf("master-chunk-%04d", i), "master", float32(i)*0.01))
	}
	if err := s.Insert(records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := s.Search(makeTestVector(768, 0.05), 3, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by score descending at %d", i)
		}
	}
}

// TestSearch_ScopeFilter verifies that scoped searches never surface chunks
// from documents outside the scope, regardless of similarity.
func TestSearch_ScopeFilter(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	vec := makeTestVector(768, 0.1)
	western := makeTestRecord("western-chunk-0000", "western", 0.1)
	western.Embedding = vec // identical to the query, would win unscoped
	records := []Record{
		makeTestRecord("master-chunk-0000", "master", 0.11),
		western,
		makeTestRecord("central-chunk-0000", "central", 0.12),
	}
	if err := s.Insert(records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := s.Search(vec, 10, []string{"master", "central"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.DocumentID == "western" {
			t.Errorf("out-of-scope document %q in results", r.DocumentID)
		}
	}
}

func TestSearch_EmptyTable(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	results, err := s.Search(makeTestVector(768, 0.1), 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSearch_TopKZero(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	results, err := s.Search(makeTestVector(768, 0.1), 0, nil)
	if err != nil {
		t.Fatalf("Search with topK=0: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for topK=0, got %d", len(results))
	}
}

func TestDeleteByDocument(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	records := []Record{
		makeTestRecord("western-chunk-0000", "western", 0.1),
		makeTestRecord("western-chunk-0001", "western", 0.2),
		makeTestRecord("master-chunk-0000", "master", 0.3),
	}
	if err := s.Insert(records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	n, err := s.DeleteByDocument("western")
	if err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d records, want 2", n)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count after delete = %d, want 1", count)
	}

	n, err = s.DeleteByDocument("western")
	if err != nil {
		t.Fatalf("second DeleteByDocument: %v", err)
	}
	if n != 0 {
		t.Errorf("second delete removed %d records, want 0", n)
	}
}

func TestCount(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("empty count = %d, want 0", count)
	}

	if err := s.Insert([]Record{
		makeTestRecord("master-chunk-0000", "master", 0.1),
		makeTestRecord("master-chunk-0001", "master", 0.2),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	count, err = s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestGetByIDs(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteStore(db)

	if err := s.Insert([]Record{
		makeTestRecord("master-chunk-0000", "master", 0.1),
		makeTestRecord("master-chunk-0001", "master", 0.2),
		makeTestRecord("atlantic-chunk-0000", "atlantic", 0.3),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	records, err := s.GetByIDs(context.Background(), []string{"master-chunk-0001", "atlantic-chunk-0000"})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if len(records[0].Embedding) != 768 {
		t.Errorf("embedding dim = %d, want 768", len(records[0].Embedding))
	}

	records, err = s.GetByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetByIDs(nil): %v", err)
	}
	if records != nil {
		t.Errorf("expected nil for empty IDs, got %d records", len(records))
	}
}
