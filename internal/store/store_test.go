package store

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"docdex/internal/embedding"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "docdex.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func sampleDocument(id, title, content string) *embedding.Document {
	return &embedding.Document{
		ID:      id,
		Title:   title,
		Content: content,
		Metadata: embedding.Metadata{
			Source:     "/docs/" + id + ".md",
			UploadedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			WordCount:  embedding.WordCount(content),
		},
	}
}

func TestOpenMigratesAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docdex.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", CurrentSchemaVersion, version)
	}
	db.Close()

	// Reopening must not attempt to reapply the schema
	db2, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	db2.Close()
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)

	doc := sampleDocument("doc-1", "Solar Power", "Solar panels convert sunlight into electricity.")
	if err := docs.Insert(doc); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}

	got, err := docs.Get("doc-1")
	if err != nil {
		t.Fatalf("failed to get document: %v", err)
	}
	if got == nil {
		t.Fatal("expected document, got nil")
	}
	if got.Title != doc.Title {
		t.Errorf("expected title %q, got %q", doc.Title, got.Title)
	}
	if got.Content != doc.Content {
		t.Errorf("expected content %q, got %q", doc.Content, got.Content)
	}
	if got.Metadata.Source != doc.Metadata.Source {
		t.Errorf("expected source %q, got %q", doc.Metadata.Source, got.Metadata.Source)
	}
	if got.Metadata.WordCount != 7 {
		t.Errorf("expected word count 7, got %d", got.Metadata.WordCount)
	}
	if !got.Metadata.UploadedAt.Equal(doc.Metadata.UploadedAt) {
		t.Errorf("expected uploaded_at %v, got %v", doc.Metadata.UploadedAt, got.Metadata.UploadedAt)
	}

	// Update and confirm the new content is visible
	doc.Content = "Solar panels and wind turbines generate renewable electricity."
	doc.Metadata.WordCount = embedding.WordCount(doc.Content)
	if err := docs.Update(doc); err != nil {
		t.Fatalf("failed to update document: %v", err)
	}

	got, err = docs.Get("doc-1")
	if err != nil {
		t.Fatalf("failed to get updated document: %v", err)
	}
	if got.Content != doc.Content {
		t.Errorf("expected updated content %q, got %q", doc.Content, got.Content)
	}

	hash, err := docs.GetContentHash("doc-1")
	if err != nil {
		t.Fatalf("failed to get content hash: %v", err)
	}
	if hash != ContentHash(doc.Content) {
		t.Errorf("stored hash does not match recomputed hash")
	}

	if err := docs.Delete("doc-1"); err != nil {
		t.Fatalf("failed to delete document: %v", err)
	}
	got, err = docs.Get("doc-1")
	if err != nil {
		t.Fatalf("unexpected error after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil document after delete")
	}
}

func TestDocumentStoreGetMissing(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)

	got, err := docs.Get("no-such-doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing document, got %+v", got)
	}
}

func TestDocumentStoreUpdateMissing(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)

	err := docs.Update(sampleDocument("ghost", "Ghost", "not stored"))
	if err == nil {
		t.Fatal("expected error updating missing document")
	}
}

func TestDocumentStoreInsertRequiresID(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)

	err := docs.Insert(&embedding.Document{Title: "No ID", Content: "text"})
	if err == nil {
		t.Fatal("expected error for document without id")
	}
}

func TestDocumentStoreList(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"doc-a", "doc-b", "doc-c"} {
		doc := sampleDocument(id, "Doc "+id, "content for "+id)
		doc.Metadata.UploadedAt = base.Add(time.Duration(i) * time.Hour)
		if err := docs.Insert(doc); err != nil {
			t.Fatalf("failed to insert %s: %v", id, err)
		}
	}

	all, err := docs.List(0)
	if err != nil {
		t.Fatalf("failed to list documents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(all))
	}
	// Newest first
	if all[0].ID != "doc-c" || all[2].ID != "doc-a" {
		t.Errorf("expected newest-first order, got %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	limited, err := docs.List(2)
	if err != nil {
		t.Fatalf("failed to list with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 documents with limit, got %d", len(limited))
	}

	count, err := docs.Count()
	if err != nil {
		t.Fatalf("failed to count documents: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}

func TestDocumentStoreInsertBatch(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)

	batch := []*embedding.Document{
		sampleDocument("b-1", "One", "first document"),
		sampleDocument("b-2", "Two", "second document"),
		sampleDocument("b-3", "Three", "third document"),
	}
	if err := docs.InsertBatch(batch); err != nil {
		t.Fatalf("failed to insert batch: %v", err)
	}

	count, err := docs.Count()
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 documents, got %d", count)
	}
}

func TestDocumentStoreGetBySource(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)

	doc := sampleDocument("src-1", "Sourced", "ingested from disk")
	doc.Metadata.Source = "/home/user/notes/energy.md"
	if err := docs.Insert(doc); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	got, err := docs.GetBySource("/home/user/notes/energy.md")
	if err != nil {
		t.Fatalf("failed to get by source: %v", err)
	}
	if got == nil || got.ID != "src-1" {
		t.Errorf("expected src-1, got %+v", got)
	}

	missing, err := docs.GetBySource("/no/such/path.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown source")
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash("same text")
	b := ContentHash("same text")
	c := ContentHash("different text")

	if a != b {
		t.Error("hash should be deterministic")
	}
	if a == c {
		t.Error("different content should hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
}

func TestVectorBlobRoundTrip(t *testing.T) {
	vector := []float32{0.1, -0.5, 0, 1, math.Pi, -math.MaxFloat32, 1e-38}

	blob := vectorToBlob(vector)
	if len(blob) != len(vector)*4 {
		t.Fatalf("expected blob of %d bytes, got %d", len(vector)*4, len(blob))
	}

	decoded, err := blobToVector(blob)
	if err != nil {
		t.Fatalf("failed to decode blob: %v", err)
	}
	if len(decoded) != len(vector) {
		t.Fatalf("expected %d values, got %d", len(vector), len(decoded))
	}
	for i := range vector {
		if math.Float32bits(decoded[i]) != math.Float32bits(vector[i]) {
			t.Errorf("value %d not bit-exact: expected %v, got %v", i, vector[i], decoded[i])
		}
	}
}

func TestBlobToVectorRejectsBadSize(t *testing.T) {
	if _, err := blobToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for blob not a multiple of 4 bytes")
	}
}

func TestEmbeddingStorePutGet(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	if err := docs.Insert(sampleDocument("doc-1", "Doc", "content")); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}

	vec := []float32{0.6, 0.8}
	if err := vectors.Put("doc-1", "all-minilm", vec, ContentHash("content")); err != nil {
		t.Fatalf("failed to put vector: %v", err)
	}

	got, err := vectors.Get("doc-1", "all-minilm")
	if err != nil {
		t.Fatalf("failed to get vector: %v", err)
	}
	if len(got) != 2 || got[0] != 0.6 || got[1] != 0.8 {
		t.Errorf("unexpected vector: %v", got)
	}

	// Replacing the vector for the same model must not error
	if err := vectors.Put("doc-1", "all-minilm", []float32{1, 0}, ContentHash("new content")); err != nil {
		t.Fatalf("failed to replace vector: %v", err)
	}
	got, err = vectors.Get("doc-1", "all-minilm")
	if err != nil {
		t.Fatalf("failed to get replaced vector: %v", err)
	}
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("expected replaced vector, got %v", got)
	}

	if _, err := vectors.Get("doc-1", "other-model"); err == nil {
		t.Error("expected error for missing model")
	}
	if err := vectors.Put("doc-1", "all-minilm", nil, "hash"); err == nil {
		t.Error("expected error for empty vector")
	}
}

func TestEmbeddingStoreHas(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	content := "stable content"
	if err := docs.Insert(sampleDocument("doc-1", "Doc", content)); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}
	if err := vectors.Put("doc-1", "all-minilm", []float32{1, 0}, ContentHash(content)); err != nil {
		t.Fatalf("failed to put vector: %v", err)
	}

	ok, err := vectors.Has("doc-1", "all-minilm", ContentHash(content))
	if err != nil {
		t.Fatalf("failed to check vector: %v", err)
	}
	if !ok {
		t.Error("expected vector for current content hash")
	}

	ok, err = vectors.Has("doc-1", "all-minilm", ContentHash("edited content"))
	if err != nil {
		t.Fatalf("failed to check vector: %v", err)
	}
	if ok {
		t.Error("stale content hash should report no vector")
	}

	ok, err = vectors.Has("doc-1", "other-model", ContentHash(content))
	if err != nil {
		t.Fatalf("failed to check vector: %v", err)
	}
	if ok {
		t.Error("different model should report no vector")
	}
}

func TestEmbeddingStoreHasForContent(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	content := "stable content"
	if err := docs.Insert(sampleDocument("doc-1", "Doc", content)); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}
	if err := vectors.Put("doc-1", "all-minilm", []float32{1, 0}, ContentHash(content)); err != nil {
		t.Fatalf("failed to put vector: %v", err)
	}

	// Matches regardless of which model produced the vector
	ok, err := vectors.HasForContent("doc-1", ContentHash(content))
	if err != nil {
		t.Fatalf("failed to check vector: %v", err)
	}
	if !ok {
		t.Error("expected a vector for the current content hash")
	}

	ok, err = vectors.HasForContent("doc-1", ContentHash("edited content"))
	if err != nil {
		t.Fatalf("failed to check vector: %v", err)
	}
	if ok {
		t.Error("stale content hash should report no vector")
	}
}

func TestEmbeddingStorePutBatch(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	ids := []string{"doc-1", "doc-2", "doc-3"}
	for _, id := range ids {
		if err := docs.Insert(sampleDocument(id, "Doc "+id, "content "+id)); err != nil {
			t.Fatalf("failed to insert %s: %v", id, err)
		}
	}

	vecs := [][]float32{{1, 0}, {0, 1}, {0.6, 0.8}}
	hashes := []string{ContentHash("content doc-1"), ContentHash("content doc-2"), ContentHash("content doc-3")}
	if err := vectors.PutBatch(ids, vecs, hashes, "all-minilm"); err != nil {
		t.Fatalf("failed to put batch: %v", err)
	}

	count, err := vectors.Count()
	if err != nil {
		t.Fatalf("failed to count vectors: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 vectors, got %d", count)
	}

	if err := vectors.PutBatch(ids, vecs[:2], hashes, "all-minilm"); err == nil {
		t.Error("expected error for mismatched batch lengths")
	}
}

func TestEmbeddingStoreModels(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	if err := docs.Insert(sampleDocument("doc-1", "Doc", "content")); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}
	if err := vectors.Put("doc-1", "all-minilm", []float32{1, 0}, "h"); err != nil {
		t.Fatalf("failed to put vector: %v", err)
	}
	if err := vectors.Put("doc-1", "bge-small", []float32{0, 1}, "h"); err != nil {
		t.Fatalf("failed to put vector: %v", err)
	}

	models, err := vectors.Models()
	if err != nil {
		t.Fatalf("failed to list models: %v", err)
	}
	if len(models) != 2 || models[0] != "all-minilm" || models[1] != "bge-small" {
		t.Errorf("unexpected models: %v", models)
	}
}

func TestEmbeddingStoreSearchSimilar(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	fixtures := []struct {
		id     string
		title  string
		vector []float32
	}{
		{"doc-a", "Exact", []float32{1, 0}},
		{"doc-b", "Close", []float32{0.8, 0.6}},
		{"doc-c", "Orthogonal", []float32{0, 1}},
		{"doc-d", "Opposite", []float32{-1, 0}},
		{"doc-e", "WrongDims", []float32{1, 0, 0}},
	}
	for _, f := range fixtures {
		if err := docs.Insert(sampleDocument(f.id, f.title, "content "+f.id)); err != nil {
			t.Fatalf("failed to insert %s: %v", f.id, err)
		}
		if err := vectors.Put(f.id, "all-minilm", f.vector, "h"); err != nil {
			t.Fatalf("failed to put vector for %s: %v", f.id, err)
		}
	}

	query := []float32{1, 0}

	results, err := vectors.SearchSimilar(query, "all-minilm", 0, 0.5, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(results))
	}
	if results[0].DocumentID != "doc-a" || results[1].DocumentID != "doc-b" {
		t.Errorf("expected doc-a then doc-b, got %s then %s", results[0].DocumentID, results[1].DocumentID)
	}
	if math.Abs(results[0].Score-1.0) > 0.001 {
		t.Errorf("expected score 1.0 for doc-a, got %f", results[0].Score)
	}
	if math.Abs(results[1].Score-0.8) > 0.001 {
		t.Errorf("expected score 0.8 for doc-b, got %f", results[1].Score)
	}

	// topK truncates after ranking
	top, err := vectors.SearchSimilar(query, "all-minilm", 1, 0.5, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(top) != 1 || top[0].DocumentID != "doc-a" {
		t.Errorf("expected only doc-a, got %+v", top)
	}

	// A negative threshold admits everything with matching dimensions
	all, err := vectors.SearchSimilar(query, "all-minilm", 0, -1.0, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 results (wrong-dimension row skipped), got %d", len(all))
	}

	// Loading documents onto results
	loaded, err := vectors.SearchSimilar(query, "all-minilm", 1, 0.5, docs)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if loaded[0].Document == nil || loaded[0].Document.Title != "Exact" {
		t.Errorf("expected loaded document Exact, got %+v", loaded[0].Document)
	}

	// Unknown model matches nothing
	none, err := vectors.SearchSimilar(query, "other-model", 0, 0.5, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no results for unknown model, got %d", len(none))
	}

	if _, err := vectors.SearchSimilar(nil, "all-minilm", 0, 0.5, nil); err == nil {
		t.Error("expected error for empty query vector")
	}
}

func TestDeleteCascadesEmbeddings(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	if err := docs.Insert(sampleDocument("doc-1", "Doc", "content")); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}
	if err := vectors.Put("doc-1", "all-minilm", []float32{1, 0}, "h"); err != nil {
		t.Fatalf("failed to put vector: %v", err)
	}

	if err := docs.Delete("doc-1"); err != nil {
		t.Fatalf("failed to delete document: %v", err)
	}

	count, err := vectors.Count()
	if err != nil {
		t.Fatalf("failed to count vectors: %v", err)
	}
	if count != 0 {
		t.Errorf("expected vectors to cascade on delete, found %d", count)
	}
}

func TestDBStats(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	one := sampleDocument("doc-1", "One", "three words here")
	two := sampleDocument("doc-2", "Two", "two words")
	if err := docs.Insert(one); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if err := docs.Insert(two); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if err := vectors.Put("doc-1", "all-minilm", []float32{1, 0}, "h"); err != nil {
		t.Fatalf("failed to put vector: %v", err)
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.DocumentCount != 2 {
		t.Errorf("expected 2 documents, got %d", stats.DocumentCount)
	}
	if stats.EmbeddingCount != 1 {
		t.Errorf("expected 1 embedding, got %d", stats.EmbeddingCount)
	}
	if stats.WordCount != 5 {
		t.Errorf("expected 5 words total, got %d", stats.WordCount)
	}
	if stats.SizeBytes <= 0 {
		t.Errorf("expected positive database size, got %d", stats.SizeBytes)
	}
}

func TestDBClear(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentStore(db)
	vectors := NewEmbeddingStore(db)

	if err := docs.Insert(sampleDocument("doc-1", "Doc", "content")); err != nil {
		t.Fatalf("failed to insert document: %v", err)
	}
	if err := vectors.Put("doc-1", "all-minilm", []float32{1, 0}, "h"); err != nil {
		t.Fatalf("failed to put vector: %v", err)
	}

	if err := db.Clear(); err != nil {
		t.Fatalf("failed to clear database: %v", err)
	}

	docCount, err := docs.Count()
	if err != nil {
		t.Fatalf("failed to count documents: %v", err)
	}
	vecCount, err := vectors.Count()
	if err != nil {
		t.Fatalf("failed to count vectors: %v", err)
	}
	if docCount != 0 || vecCount != 0 {
		t.Errorf("expected empty database after clear, got %d documents and %d vectors", docCount, vecCount)
	}

	// The store stays usable after a clear
	if err := docs.Insert(sampleDocument("doc-2", "Fresh", "new content")); err != nil {
		t.Fatalf("failed to insert after clear: %v", err)
	}
}
