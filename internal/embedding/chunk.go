package embedding

import (
	"fmt"
	"strings"
)

// Default chunking parameters for long document ingestion.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// SplitChunks splits text into word windows of up to size words, with
// consecutive windows sharing overlap words. The window start advances
// by size-overlap each step until it reaches the word count, so a final
// window shorter than size is still produced.
//
// overlap must stay below size: a zero or negative step would loop
// forever, so the parameters are validated up front.
func SplitChunks(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("chunk size must be positive, got %d", size)}
	}
	if overlap < 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("chunk overlap must not be negative, got %d", overlap)}
	}
	if overlap >= size {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("chunk overlap %d must be smaller than chunk size %d", overlap, size)}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(words)+step-1)/step)
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}
