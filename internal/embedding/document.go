package embedding

import "time"

// Metadata describes where a document came from.
type Metadata struct {
	Source     string    `json:"source"`
	UploadedAt time.Time `json:"uploaded_at"`
	WordCount  int       `json:"word_count"`
}

// Document is one entry in the research corpus.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// SimilarityResult pairs a document with its similarity to a query
// embedding. Results are derived per query, never stored.
type SimilarityResult struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
}
