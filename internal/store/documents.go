package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"docdex/internal/embedding"
)

// DocumentStore provides CRUD operations for documents
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new document store
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// ContentHash returns the hex SHA-256 of document content, used to skip
// re-embedding unchanged documents.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Insert inserts a new document
func (s *DocumentStore) Insert(doc *embedding.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}

	now := time.Now().UTC()
	if doc.Metadata.UploadedAt.IsZero() {
		doc.Metadata.UploadedAt = now
	}

	query := `
		INSERT INTO documents (
			id, title, content, source, uploaded_at, word_count,
			content_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.sqlDB.Exec(query,
		doc.ID, doc.Title, doc.Content, doc.Metadata.Source,
		doc.Metadata.UploadedAt.Format(time.RFC3339), doc.Metadata.WordCount,
		ContentHash(doc.Content),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

// InsertBatch inserts multiple documents in a transaction
func (s *DocumentStore) InsertBatch(docs []*embedding.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO documents (
			id, title, content, source, uploaded_at, word_count,
			content_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document id is required")
		}
		if doc.Metadata.UploadedAt.IsZero() {
			doc.Metadata.UploadedAt = now
		}

		_, err := stmt.Exec(
			doc.ID, doc.Title, doc.Content, doc.Metadata.Source,
			doc.Metadata.UploadedAt.Format(time.RFC3339), doc.Metadata.WordCount,
			ContentHash(doc.Content),
			now.Format(time.RFC3339), now.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Update replaces the stored content and metadata of a document
func (s *DocumentStore) Update(doc *embedding.Document) error {
	query := `
		UPDATE documents
		SET title = ?, content = ?, source = ?, word_count = ?,
			content_hash = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.sqlDB.Exec(query,
		doc.Title, doc.Content, doc.Metadata.Source, doc.Metadata.WordCount,
		ContentHash(doc.Content), time.Now().UTC().Format(time.RFC3339), doc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document not found: %s", doc.ID)
	}

	return nil
}

// Get retrieves a document by ID. Returns nil when not found.
func (s *DocumentStore) Get(id string) (*embedding.Document, error) {
	query := `
		SELECT id, title, content, source, uploaded_at, word_count
		FROM documents WHERE id = ?
	`

	row := s.db.sqlDB.QueryRow(query, id)
	doc, err := s.scanDocumentRow(row)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// GetBySource retrieves the document ingested from a source path.
// Returns nil when not found.
func (s *DocumentStore) GetBySource(source string) (*embedding.Document, error) {
	query := `
		SELECT id, title, content, source, uploaded_at, word_count
		FROM documents WHERE source = ?
		ORDER BY uploaded_at DESC LIMIT 1
	`

	row := s.db.sqlDB.QueryRow(query, source)
	doc, err := s.scanDocumentRow(row)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by source: %w", err)
	}

	return doc, nil
}

// GetContentHash returns the stored content hash for a document.
func (s *DocumentStore) GetContentHash(id string) (string, error) {
	var hash string
	err := s.db.sqlDB.QueryRow("SELECT content_hash FROM documents WHERE id = ?", id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content hash: %w", err)
	}
	return hash, nil
}

// List retrieves documents ordered by upload time, newest first. A
// limit of zero or less returns everything.
func (s *DocumentStore) List(limit int) ([]*embedding.Document, error) {
	query := `
		SELECT id, title, content, source, uploaded_at, word_count
		FROM documents
		ORDER BY uploaded_at DESC, id
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.sqlDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*embedding.Document
	for rows.Next() {
		doc, err := s.scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// Delete removes a document. Its embeddings follow via the foreign key.
func (s *DocumentStore) Delete(id string) error {
	res, err := s.db.sqlDB.Exec("DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document not found: %s", id)
	}

	return nil
}

// Count returns the number of documents
func (s *DocumentStore) Count() (int, error) {
	var count int
	err := s.db.sqlDB.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count)
	return count, err
}

// scanDocumentRow scans a row into a Document
func (s *DocumentStore) scanDocumentRow(scanner rowScanner) (*embedding.Document, error) {
	doc := &embedding.Document{}
	var uploadedAtValue any

	err := scanner.Scan(
		&doc.ID, &doc.Title, &doc.Content, &doc.Metadata.Source,
		&uploadedAtValue, &doc.Metadata.WordCount,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	uploadedAt, err := parseTimeValue(uploadedAtValue)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uploaded_at: %w", err)
	}
	doc.Metadata.UploadedAt = uploadedAt

	return doc, nil
}
