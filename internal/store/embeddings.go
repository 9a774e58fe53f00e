package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"docdex/internal/embedding"
)

// EmbeddingStore provides vector storage and similarity search over
// document embeddings.
type EmbeddingStore struct {
	db *DB
}

// NewEmbeddingStore creates a new embedding store
func NewEmbeddingStore(db *DB) *EmbeddingStore {
	return &EmbeddingStore{db: db}
}

// ScoredResult represents a similarity search result
type ScoredResult struct {
	DocumentID string
	Score      float64
	Document   *embedding.Document
}

// Put inserts or replaces the vector for a document under a model. The
// content hash records which document revision the vector describes.
func (s *EmbeddingStore) Put(documentID, model string, vector []float32, contentHash string) error {
	if len(vector) == 0 {
		return fmt.Errorf("cannot store empty vector")
	}

	blob := vectorToBlob(vector)

	query := `
		INSERT OR REPLACE INTO document_embeddings (document_id, model, dimension, vector, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.sqlDB.Exec(query, documentID, model, len(vector), blob, contentHash, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}

	return nil
}

// PutBatch stores multiple vectors in a transaction
func (s *EmbeddingStore) PutBatch(documentIDs []string, vectors [][]float32, contentHashes []string, model string) error {
	if len(documentIDs) != len(vectors) || len(documentIDs) != len(contentHashes) {
		return fmt.Errorf("documentIDs, vectors and contentHashes length mismatch")
	}
	if len(documentIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO document_embeddings (document_id, model, dimension, vector, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)

	for i, vector := range vectors {
		if len(vector) == 0 {
			continue
		}
		blob := vectorToBlob(vector)
		if _, err := stmt.Exec(documentIDs[i], model, len(vector), blob, contentHashes[i], now); err != nil {
			return fmt.Errorf("failed to store vector %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Get retrieves a document's vector under a model
func (s *EmbeddingStore) Get(documentID, model string) ([]float32, error) {
	var blob []byte
	var dimension int

	query := "SELECT vector, dimension FROM document_embeddings WHERE document_id = ? AND model = ?"
	err := s.db.sqlDB.QueryRow(query, documentID, model).Scan(&blob, &dimension)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("vector not found for document: %s", documentID)
		}
		return nil, fmt.Errorf("failed to get vector: %w", err)
	}

	vector, err := blobToVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vector: %w", err)
	}

	if len(vector) != dimension {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", dimension, len(vector))
	}

	return vector, nil
}

// Has reports whether a document already holds a vector for this model
// and content revision, so unchanged documents can skip re-embedding.
func (s *EmbeddingStore) Has(documentID, model, contentHash string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM document_embeddings WHERE document_id = ? AND model = ? AND content_hash = ?"
	if err := s.db.sqlDB.QueryRow(query, documentID, model, contentHash).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check vector: %w", err)
	}
	return count > 0, nil
}

// HasForContent reports whether any model holds a vector for this
// document revision, without requiring an initialized backend.
func (s *EmbeddingStore) HasForContent(documentID, contentHash string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM document_embeddings WHERE document_id = ? AND content_hash = ?"
	if err := s.db.sqlDB.QueryRow(query, documentID, contentHash).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check vector: %w", err)
	}
	return count > 0, nil
}

// Delete removes all vectors for a document
func (s *EmbeddingStore) Delete(documentID string) error {
	_, err := s.db.sqlDB.Exec("DELETE FROM document_embeddings WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

// Count returns the number of stored vectors
func (s *EmbeddingStore) Count() (int, error) {
	var count int
	err := s.db.sqlDB.QueryRow("SELECT COUNT(*) FROM document_embeddings").Scan(&count)
	return count, err
}

// Models returns the distinct embedding models present in the store
func (s *EmbeddingStore) Models() ([]string, error) {
	rows, err := s.db.sqlDB.Query("SELECT DISTINCT model FROM document_embeddings ORDER BY model")
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var models []string
	for rows.Next() {
		var model string
		if err := rows.Scan(&model); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, model)
	}

	return models, rows.Err()
}

// SearchSimilar scans every stored vector for a model and ranks by
// cosine similarity against the query. Candidates below the threshold
// are dropped (a NaN score from a zero vector fails the comparison and
// drops with them), survivors are sorted descending with stable ties
// and truncated to topK. Malformed or dimension-mismatched rows are
// skipped rather than failing the scan.
//
// When docs is non-nil the matched documents are loaded onto the
// results.
func (s *EmbeddingStore) SearchSimilar(query []float32, model string, topK int, threshold float64, docs *DocumentStore) ([]ScoredResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	rows, err := s.db.sqlDB.Query("SELECT document_id, vector FROM document_embeddings WHERE model = ?", model)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var results []ScoredResult
	for rows.Next() {
		var documentID string
		var blob []byte
		if err := rows.Scan(&documentID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		vector, err := blobToVector(blob)
		if err != nil {
			continue // Skip malformed vectors
		}
		if len(vector) != len(query) {
			continue // Skip dimension mismatch
		}

		score, err := embedding.Cosine(query, vector)
		if err != nil {
			continue
		}
		if score >= threshold {
			results = append(results, ScoredResult{DocumentID: documentID, Score: score})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	if docs != nil {
		for i := range results {
			doc, err := docs.Get(results[i].DocumentID)
			if err != nil {
				return nil, err
			}
			results[i].Document = doc
		}
	}

	return results, nil
}

// vectorToBlob converts a float32 slice to a little-endian binary blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		bits := math.Float32bits(v)
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], bits)
	}
	return blob
}

// blobToVector converts a binary blob to a float32 slice
func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 4", len(blob))
	}

	vector := make([]float32, len(blob)/4)
	for i := 0; i < len(vector); i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vector[i] = math.Float32frombits(bits)
	}

	return vector, nil
}
