package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// LocalExtractor is the CPU fallback backend: a deterministic feature
// hashing model. Tokens are hashed into a fixed number of buckets with a
// hash-derived sign, then pooled. It needs no model download or network
// access and produces stable vectors, which also makes it the backend of
// choice in tests.
type LocalExtractor struct {
	dims int
}

// NewLocalExtractor creates a feature hashing extractor producing
// dims-dimensional vectors.
func NewLocalExtractor(dims int) (*LocalExtractor, error) {
	if dims <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("extractor dimensions must be positive, got %d", dims)}
	}
	return &LocalExtractor{dims: dims}, nil
}

// ExtractFeatures hashes each token into a bucket, accumulates with the
// hash's low bit as sign, then applies the requested pooling and
// normalization. Text with no tokens yields a zero vector.
func (e *LocalExtractor) ExtractFeatures(ctx context.Context, text string, opts ExtractOptions) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	vector := make([]float32, e.dims)
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		bucket := int((sum >> 1) % uint32(e.dims))
		if sum&1 == 1 {
			vector[bucket]--
		} else {
			vector[bucket]++
		}
	}

	if opts.Pooling == PoolingMean && len(tokens) > 0 {
		inv := 1 / float32(len(tokens))
		for i := range vector {
			vector[i] *= inv
		}
	}
	if opts.Normalize {
		NormalizeL2(vector)
	}
	return vector, nil
}

// Dimensions returns the configured vector size.
func (e *LocalExtractor) Dimensions() int { return e.dims }

// Name identifies the backend in logs.
func (e *LocalExtractor) Name() string { return "local" }

// Model returns the dimension-qualified label stored vectors are keyed
// by, so changing the dimension count never mixes incompatible vectors.
func (e *LocalExtractor) Model() string { return fmt.Sprintf("feature-hash-%d", e.dims) }

// Close is a no-op for the in-process extractor.
func (e *LocalExtractor) Close() error { return nil }

// tokenize lowercases text and splits it into letter and digit runs.
func tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
