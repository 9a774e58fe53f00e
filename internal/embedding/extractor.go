package embedding

import "context"

// Pooling selects how token-level model outputs are reduced to a single
// vector.
type Pooling string

// PoolingMean averages token outputs, which is what sentence embedding
// models in the all-MiniLM family expect.
const PoolingMean Pooling = "mean"

// ExtractOptions control a single feature extraction call.
type ExtractOptions struct {
	Pooling   Pooling
	Normalize bool
}

// DefaultExtractOptions returns the options used for document and query
// embeddings: mean pooling with L2 normalization.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{Pooling: PoolingMean, Normalize: true}
}

// FeatureExtractor is the interface for embedding backends.
type FeatureExtractor interface {
	// ExtractFeatures converts text into a fixed-dimension vector.
	ExtractFeatures(ctx context.Context, text string, opts ExtractOptions) ([]float32, error)
	// Dimensions returns the vector size this backend produces.
	Dimensions() int
	// Name identifies the backend in logs and status output.
	Name() string
	// Model identifies the embedding model. Stored vectors are keyed by
	// this label so vectors from different models never mix.
	Model() string
	// Close releases backend resources.
	Close() error
}

// Opener acquires a FeatureExtractor. An Index tries its openers in
// order and keeps the first one that succeeds.
type Opener struct {
	Name string
	Open func(ctx context.Context) (FeatureExtractor, error)
}
