// Package retrieval combines vector similarity and keyword search over
// the document store, expands queries through synonym groups, and runs
// the multi-stage research pipeline.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"docdex/internal/embedding"
	"docdex/internal/store"
	"docdex/internal/textindex"
)

// Searcher provides hybrid search combining vector and keyword results.
type Searcher struct {
	index     *embedding.Index
	vectors   *store.EmbeddingStore
	documents *store.DocumentStore
	text      *textindex.Index
	synonyms  *SynonymsExpander
}

// NewSearcher creates a hybrid searcher. The synonyms expander may be
// nil, which disables query expansion.
func NewSearcher(
	index *embedding.Index,
	vectors *store.EmbeddingStore,
	documents *store.DocumentStore,
	text *textindex.Index,
	synonyms *SynonymsExpander,
) *Searcher {
	return &Searcher{
		index:     index,
		vectors:   vectors,
		documents: documents,
		text:      text,
		synonyms:  synonyms,
	}
}

// SearchOptions configures search behavior
type SearchOptions struct {
	TopK          int     // Number of results to return; zero or less means the default
	Threshold     float64 // Minimum vector similarity for the vector leg
	VectorWeight  float64 // Weight for vector similarity
	KeywordWeight float64 // Weight for keyword search
}

// DefaultSearchOptions returns default search options
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:          5,
		Threshold:     0.5,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	}
}

// SearchResult represents a combined search result
type SearchResult struct {
	Document      *embedding.Document
	VectorScore   float64  // Cosine similarity of the vector leg
	KeywordScore  float64  // Rank-derived score of the keyword leg
	CombinedScore float64  // Final weighted score
	Reasons       []string // Explanation of why this result was returned
}

// Search performs hybrid search
func (s *Searcher) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	// Normalize weights
	totalWeight := opts.VectorWeight + opts.KeywordWeight
	if totalWeight == 0 {
		// Default to vector-only if both weights are 0
		opts.VectorWeight = 1.0
		totalWeight = 1.0
	}
	opts.VectorWeight /= totalWeight
	opts.KeywordWeight /= totalWeight

	expanded, _ := s.synonyms.Expand(query)

	// Step 1: Vector search
	vectorResults := make(map[string]*scoredDocument)
	if opts.VectorWeight > 0 {
		queryVector, err := s.index.Generate(ctx, expanded)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}

		vResults, err := s.vectors.SearchSimilar(queryVector, s.index.Model(), opts.TopK*2, opts.Threshold, s.documents)
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}

		for _, r := range vResults {
			vectorResults[r.DocumentID] = &scoredDocument{
				document: r.Document,
				score:    r.Score,
			}
		}
	}

	// Step 2: Keyword search
	keywordResults := make(map[string]*scoredDocument)
	if opts.KeywordWeight > 0 {
		hits, err := s.text.Search(expanded, opts.TopK*2)
		if err != nil {
			return nil, fmt.Errorf("keyword search failed: %w", err)
		}

		for i, hit := range hits {
			// Simple scoring based on rank
			score := 1.0 - float64(i)/float64(len(hits))
			keywordResults[hit.ID] = &scoredDocument{score: score}
		}
	}

	// Step 3: Combine scores
	combinedScores := make(map[string]*combinedResult)

	for id, result := range vectorResults {
		combinedScores[id] = &combinedResult{
			document:    result.document,
			vectorScore: result.score,
		}
	}

	for id, result := range keywordResults {
		if existing, ok := combinedScores[id]; ok {
			existing.keywordScore = result.score
			continue
		}
		// Keyword-only hits still need their document loaded. A hit
		// whose document is gone from the store is skipped.
		doc, err := s.documents.Get(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load document %s: %w", id, err)
		}
		if doc == nil {
			continue
		}
		combinedScores[id] = &combinedResult{
			document:     doc,
			keywordScore: result.score,
		}
	}

	// Step 4: Compute final scores
	results := make([]SearchResult, 0, len(combinedScores))
	for _, combined := range combinedScores {
		finalScore := opts.VectorWeight*combined.vectorScore + opts.KeywordWeight*combined.keywordScore

		results = append(results, SearchResult{
			Document:      combined.document,
			VectorScore:   combined.vectorScore,
			KeywordScore:  combined.keywordScore,
			CombinedScore: finalScore,
			Reasons:       generateReasons(combined),
		})
	}

	// Step 5: Sort by combined score. Ties break on document ID so the
	// ordering does not depend on map iteration.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	return results, nil
}

// scoredDocument holds a document with its score
type scoredDocument struct {
	document *embedding.Document
	score    float64
}

// combinedResult holds combined search information
type combinedResult struct {
	document     *embedding.Document
	vectorScore  float64
	keywordScore float64
}

// generateReasons generates explanation for why a result was returned
func generateReasons(combined *combinedResult) []string {
	var reasons []string

	if combined.vectorScore > 0.7 {
		reasons = append(reasons, "strong semantic similarity")
	} else if combined.vectorScore > 0 {
		reasons = append(reasons, "semantic similarity")
	}

	if combined.keywordScore > 0.7 {
		reasons = append(reasons, "strong keyword match")
	} else if combined.keywordScore > 0 {
		reasons = append(reasons, "keyword match")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "match found")
	}

	return reasons
}
