// Package docdex wires the document store, the vector store and the
// keyword index into one opened workspace. The CLI and the MCP server
// both go through it.
package docdex

import (
	"fmt"
	"log"
	"path/filepath"

	"docdex/internal/config"
	"docdex/internal/embedding"
	"docdex/internal/ingest"
	"docdex/internal/retrieval"
	"docdex/internal/store"
	"docdex/internal/textindex"
)

const (
	databaseFile = "docdex.db"
	textIndexDir = "textindex"
)

// Workspace holds the opened stores and indexes for one data
// directory.
type Workspace struct {
	Config    *config.Config
	DB        *store.DB
	Documents *store.DocumentStore
	Vectors   *store.EmbeddingStore
	Text      *textindex.Index
	Index     *embedding.Index
	Synonyms  *retrieval.SynonymsExpander
}

// Open opens the workspace under cfg.DataDir, creating the database and
// the keyword index on first use.
func Open(cfg *config.Config) (*Workspace, error) {
	db, err := store.Open(DatabasePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	text, err := textindex.Open(TextIndexPath(cfg))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open text index: %w", err)
	}

	index, err := embedding.NewIndexFromConfig(&cfg.Backend)
	if err != nil {
		text.Close()
		db.Close()
		return nil, fmt.Errorf("failed to configure embedding backend: %w", err)
	}

	synonyms, err := retrieval.LoadSynonymsFile(resolveSynonymsPath(cfg))
	if err != nil {
		log.Printf("Warning: failed to load synonyms file: %v", err)
	}

	return &Workspace{
		Config:    cfg,
		DB:        db,
		Documents: store.NewDocumentStore(db),
		Vectors:   store.NewEmbeddingStore(db),
		Text:      text,
		Index:     index,
		Synonyms:  synonyms,
	}, nil
}

// Close releases the embedding backend, the keyword index and the
// database.
func (w *Workspace) Close() error {
	var firstErr error
	if err := w.Index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.Text.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.DB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// DatabasePath returns the sqlite file location for a configuration.
func DatabasePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, databaseFile)
}

// TextIndexPath returns the keyword index location for a configuration.
func TextIndexPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, textIndexDir)
}

// resolveSynonymsPath resolves a relative synonyms file against the
// data directory.
func resolveSynonymsPath(cfg *config.Config) string {
	path := cfg.Search.SynonymsFile
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cfg.DataDir, path)
}

// RebuildText destroys the keyword index and reindexes every stored
// document, returning how many were indexed. Searchers and ingestors
// built before the rebuild hold the old index handle; build them after.
func (w *Workspace) RebuildText() (int, error) {
	if err := w.Text.Close(); err != nil {
		return 0, fmt.Errorf("failed to close text index: %w", err)
	}
	text, err := textindex.Reset(TextIndexPath(w.Config))
	if err != nil {
		return 0, fmt.Errorf("failed to reset text index: %w", err)
	}
	w.Text = text

	docs, err := w.Documents.List(0)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		err := text.Add(doc.ID, textindex.IndexedDocument{
			Title:   doc.Title,
			Content: doc.Content,
			Source:  doc.Metadata.Source,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to reindex document %s: %w", doc.ID, err)
		}
	}
	return len(docs), nil
}

// Searcher builds a hybrid searcher over the workspace.
func (w *Workspace) Searcher() *retrieval.Searcher {
	return retrieval.NewSearcher(w.Index, w.Vectors, w.Documents, w.Text, w.Synonyms)
}

// SearchOptions translates the search configuration into retrieval
// options.
func (w *Workspace) SearchOptions() retrieval.SearchOptions {
	opts := retrieval.DefaultSearchOptions()
	if w.Config.Search.Limit > 0 {
		opts.TopK = w.Config.Search.Limit
	}
	if w.Config.Search.Threshold > 0 {
		opts.Threshold = w.Config.Search.Threshold
	}
	if w.Config.Search.VectorWeight > 0 || w.Config.Search.KeywordWeight > 0 {
		opts.VectorWeight = w.Config.Search.VectorWeight
		opts.KeywordWeight = w.Config.Search.KeywordWeight
	}
	return opts
}

// Researcher builds a report generator over the workspace.
func (w *Workspace) Researcher() *retrieval.Researcher {
	return retrieval.NewResearcher(w.Searcher(), w.Index, w.ResearchOptions())
}

// ResearchOptions translates the research and chunking configuration
// into retrieval options.
func (w *Workspace) ResearchOptions() retrieval.ResearchOptions {
	opts := retrieval.DefaultResearchOptions()
	if w.Config.Research.MaxSources > 0 {
		opts.MaxSources = w.Config.Research.MaxSources
	}
	if w.Config.Research.SummarySentences > 0 {
		opts.SummarySentences = w.Config.Research.SummarySentences
	}
	if w.Config.Chunking.Size > 0 {
		opts.ChunkSize = w.Config.Chunking.Size
	}
	if w.Config.Chunking.Overlap >= 0 {
		opts.ChunkOverlap = w.Config.Chunking.Overlap
	}
	opts.Search = w.SearchOptions()
	return opts
}

// Ingestor builds a document ingestor over the workspace.
func (w *Workspace) Ingestor(opts ingest.Options) *ingest.Ingestor {
	return ingest.New(w.Index, w.Documents, w.Vectors, w.Text, opts)
}

// Stats reports corpus-level statistics.
func (w *Workspace) Stats() (*store.DBStats, error) {
	return w.DB.Stats()
}
