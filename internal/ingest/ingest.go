// Package ingest loads documents into the research corpus. It reads
// files, derives titles, writes document rows, generates embeddings and
// feeds the keyword index, keeping all three in step.
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"docdex/internal/embedding"
	"docdex/internal/store"
	"docdex/internal/textindex"
)

// supportedExtensions lists the file types picked up when a directory
// is ingested. Files named explicitly bypass this filter.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// Options configures an Ingestor.
type Options struct {
	// Exclude holds glob patterns matched against both the relative
	// path and the basename of each candidate file.
	Exclude []string

	// SkipEmbed stores and keyword-indexes documents without
	// generating vectors. Reembed fills them in later.
	SkipEmbed bool

	// Progress receives per-file progress. Nil disables reporting.
	Progress ProgressReporter
}

// Ingestor adds documents to the store and keeps the vector and
// keyword indexes synchronized with it.
type Ingestor struct {
	index     *embedding.Index
	documents *store.DocumentStore
	vectors   *store.EmbeddingStore
	text      *textindex.Index
	opts      Options
}

// New creates an Ingestor over the given index and stores.
func New(index *embedding.Index, documents *store.DocumentStore, vectors *store.EmbeddingStore, text *textindex.Index, opts Options) *Ingestor {
	return &Ingestor{
		index:     index,
		documents: documents,
		vectors:   vectors,
		text:      text,
		opts:      opts,
	}
}

// Outcome classifies what AddDocument did with a document.
type Outcome int

const (
	// OutcomeAdded means a new document was stored.
	OutcomeAdded Outcome = iota
	// OutcomeUpdated means an existing document from the same source
	// was replaced with new content.
	OutcomeUpdated
	// OutcomeUnchanged means the stored document already matches and
	// nothing was rewritten.
	OutcomeUnchanged
)

// String returns the status label used in command output.
func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "added"
	}
}

// Result summarizes an AddPaths run. Skipped counts files whose stored
// document was already current.
type Result struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// AddPaths ingests every file matched by the given path or glob
// patterns. Directories are walked recursively; glob and directory
// matches are filtered to supported extensions while explicitly named
// files are trusted as-is. Per-file failures are logged and counted,
// not fatal.
func (ing *Ingestor) AddPaths(ctx context.Context, patterns []string) (*Result, error) {
	paths, err := ing.expandPatterns(patterns)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents matched %s", strings.Join(patterns, ", "))
	}

	if ing.opts.Progress != nil {
		ing.opts.Progress.Start(len(paths))
	}

	result := &Result{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, outcome, err := ing.AddFile(ctx, path)
		if ing.opts.Progress != nil {
			ing.opts.Progress.Increment()
		}
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			result.Failed++
			continue
		}
		switch outcome {
		case OutcomeUpdated:
			result.Updated++
		case OutcomeUnchanged:
			result.Skipped++
		default:
			result.Added++
		}
	}

	if ing.opts.Progress != nil {
		ing.opts.Progress.Finish()
	}
	return result, nil
}

// expandPatterns resolves path and glob patterns to a sorted, deduped
// list of files. Matched directories are expanded recursively.
func (ing *Ingestor) expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	addFile := func(path string, filterExt bool) {
		if filterExt && !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return
		}
		if ing.excluded(path) || seen[path] {
			return
		}
		seen[path] = true
		paths = append(paths, path)
	}

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				// Explicitly named files skip the extension filter,
				// glob matches do not.
				addFile(match, strings.ContainsAny(pattern, "*?["))
				continue
			}
			nested, err := doublestar.FilepathGlob(filepath.Join(match, "**", "*"))
			if err != nil {
				return nil, fmt.Errorf("walking %s: %w", match, err)
			}
			for _, path := range nested {
				if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
					addFile(path, true)
				}
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// excluded reports whether a path matches any exclude pattern, tried
// against both the slashed path and the basename.
func (ing *Ingestor) excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range ing.opts.Exclude {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// AddFile ingests a single file and reports what happened to the
// stored document.
func (ing *Ingestor) AddFile(ctx context.Context, path string) (*embedding.Document, Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, OutcomeAdded, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, OutcomeAdded, fmt.Errorf("%s is empty", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return ing.AddDocument(ctx, DeriveTitle(path, content), content, abs)
}

// AddDocument stores a document, embeds it and indexes it for keyword
// search. A document with the same source is updated in place rather
// than duplicated, and one whose title and content both match the
// stored row is left untouched apart from backfilling a missing
// vector.
func (ing *Ingestor) AddDocument(ctx context.Context, title, content, source string) (*embedding.Document, Outcome, error) {
	if strings.TrimSpace(content) == "" {
		return nil, OutcomeAdded, fmt.Errorf("document content is empty")
	}

	var doc *embedding.Document
	outcome := OutcomeAdded
	if source != "" {
		existing, err := ing.documents.GetBySource(source)
		if err != nil {
			return nil, outcome, err
		}
		if existing != nil {
			doc = existing
			if existing.Title == title && existing.Content == content {
				outcome = OutcomeUnchanged
			} else {
				outcome = OutcomeUpdated
			}
		}
	}
	if doc == nil {
		doc = &embedding.Document{ID: uuid.NewString()}
	}

	hash := store.ContentHash(content)

	if outcome == OutcomeUnchanged {
		if ing.opts.SkipEmbed {
			return doc, outcome, nil
		}
		// Row and keyword entry are already current. A vector under any
		// model counts as current too; migrating models is reembed's
		// job.
		ok, err := ing.vectors.HasForContent(doc.ID, hash)
		if err != nil {
			return nil, outcome, err
		}
		if !ok {
			if err := ing.embed(ctx, doc.ID, content, hash, false); err != nil {
				return nil, outcome, err
			}
		}
		return doc, outcome, nil
	}

	doc.Title = title
	doc.Content = content
	doc.Metadata.Source = source
	doc.Metadata.WordCount = embedding.WordCount(content)

	if outcome == OutcomeUpdated {
		if err := ing.documents.Update(doc); err != nil {
			return nil, outcome, err
		}
	} else {
		if err := ing.documents.Insert(doc); err != nil {
			return nil, outcome, err
		}
	}

	if !ing.opts.SkipEmbed {
		if err := ing.embed(ctx, doc.ID, content, hash, outcome == OutcomeUpdated); err != nil {
			if outcome == OutcomeAdded {
				// Do not leave a fresh document row behind without a
				// vector.
				_ = ing.documents.Delete(doc.ID)
			}
			return nil, outcome, err
		}
	}

	err := ing.text.Add(doc.ID, textindex.IndexedDocument{
		Title:   doc.Title,
		Content: doc.Content,
		Source:  doc.Metadata.Source,
	})
	if err != nil {
		return nil, outcome, fmt.Errorf("failed to index %s for keyword search: %w", doc.ID, err)
	}
	return doc, outcome, nil
}

// embed generates and stores the vector for a document unless a
// current one already exists.
func (ing *Ingestor) embed(ctx context.Context, documentID, content, hash string, checkExisting bool) error {
	if checkExisting {
		// Model is empty until the first Generate call initializes the
		// backend, in which case the check misses and we embed anyway.
		ok, err := ing.vectors.Has(documentID, ing.index.Model(), hash)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	vector, err := ing.index.Generate(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}
	if err := ing.vectors.Put(documentID, ing.index.Model(), vector, hash); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// ReembedResult summarizes a Reembed run.
type ReembedResult struct {
	Model    string `json:"model"`
	Embedded int    `json:"embedded"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// Reembed regenerates vectors for every stored document, skipping
// documents that already have a current vector for the active model.
// Run it after switching embedding backends.
func (ing *Ingestor) Reembed(ctx context.Context) (*ReembedResult, error) {
	docs, err := ing.documents.List(0)
	if err != nil {
		return nil, err
	}

	if ing.opts.Progress != nil {
		ing.opts.Progress.Start(len(docs))
	}

	result := &ReembedResult{}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if ing.opts.Progress != nil {
			ing.opts.Progress.Increment()
		}

		hash := store.ContentHash(doc.Content)
		ok, err := ing.vectors.Has(doc.ID, ing.index.Model(), hash)
		if err != nil {
			return result, err
		}
		if ok {
			result.Skipped++
			continue
		}

		vector, err := ing.index.Generate(ctx, doc.Content)
		if err != nil {
			log.Printf("reembedding %s: %v", doc.ID, err)
			result.Failed++
			continue
		}
		if err := ing.vectors.Put(doc.ID, ing.index.Model(), vector, hash); err != nil {
			log.Printf("storing embedding for %s: %v", doc.ID, err)
			result.Failed++
			continue
		}
		result.Embedded++
	}

	if ing.opts.Progress != nil {
		ing.opts.Progress.Finish()
	}
	result.Model = ing.index.Model()
	return result, nil
}

// Remove deletes a document from the store and both indexes. Stored
// embeddings go with the document row.
func (ing *Ingestor) Remove(id string) error {
	if err := ing.documents.Delete(id); err != nil {
		return err
	}
	if err := ing.text.Remove(id); err != nil {
		return fmt.Errorf("failed to remove %s from keyword index: %w", id, err)
	}
	return nil
}
