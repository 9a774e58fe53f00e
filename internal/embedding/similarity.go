package embedding

import (
	"fmt"
	"math"
	"sort"
)

// Cosine computes the cosine similarity dot(a,b)/(‖a‖·‖b‖) between two
// vectors of equal length. It returns a *DimensionMismatchError when the
// lengths differ.
//
// Zero vectors are not special-cased: either norm being zero divides by
// zero and the result is NaN. Callers that cannot rule out zero vectors
// must guard the result themselves; FindSimilar drops NaN scores through
// its threshold comparison.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{LenA: len(a), LenB: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// NormalizeL2 scales v to unit length in place and returns it. A zero
// vector is returned unchanged.
func NormalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// SearchOptions control FindSimilar filtering and truncation.
type SearchOptions struct {
	// Threshold drops candidates scoring below it.
	Threshold float64
	// Limit caps the number of results. Zero or negative means no cap.
	Limit int
}

// DefaultSearchOptions returns the stock threshold and limit.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Threshold: 0.5, Limit: 5}
}

// FindSimilar scores every document against the query embedding, keeps
// those at or above the threshold, sorts by descending similarity with
// ties keeping input order, and truncates to the limit. Inputs are not
// mutated; results carry copies of the matched documents.
//
// A document whose embedding length differs from the query fails the
// whole call with a *DimensionMismatchError.
func FindSimilar(query []float32, docs []Document, opts SearchOptions) ([]SimilarityResult, error) {
	results := make([]SimilarityResult, 0, len(docs))
	for _, doc := range docs {
		score, err := Cosine(query, doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		// NaN fails this comparison, so zero-vector candidates drop out.
		if score >= opts.Threshold {
			results = append(results, SimilarityResult{Document: doc, Similarity: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}
