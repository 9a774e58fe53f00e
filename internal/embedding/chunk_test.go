package embedding

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		size     int
		overlap  int
		expected []string
	}{
		{
			name:     "overlapping windows with trailing chunk",
			text:     "w1 w2 w3 w4 w5",
			size:     3,
			overlap:  1,
			expected: []string{"w1 w2 w3", "w3 w4 w5", "w5"},
		},
		{
			name:     "text shorter than one chunk",
			text:     "a b",
			size:     10,
			overlap:  2,
			expected: []string{"a b"},
		},
		{
			name:     "no overlap",
			text:     "a b c d",
			size:     2,
			overlap:  0,
			expected: []string{"a b", "c d"},
		},
		{
			name:     "whitespace normalized by splitting",
			text:     "  a \t b\nc ",
			size:     2,
			overlap:  1,
			expected: []string{"a b", "b c", "c"},
		},
		{
			name:     "empty text",
			text:     "",
			size:     3,
			overlap:  1,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitChunks(tt.text, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("SplitChunks() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitChunks() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitChunksInvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "overlap equals size", size: 3, overlap: 3},
		{name: "overlap above size", size: 3, overlap: 5},
		{name: "zero size", size: 0, overlap: 0},
		{name: "negative size", size: -1, overlap: 0},
		{name: "negative overlap", size: 3, overlap: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitChunks("a b c d e", tt.size, tt.overlap)
			if err == nil {
				t.Fatal("expected error for invalid parameters")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error = %v, want *ConfigurationError", err)
			}
		})
	}
}

func TestSplitChunksDefaults(t *testing.T) {
	// 1000 words with size 500 / overlap 50 steps by 450:
	// windows at 0, 450 and 900.
	words := make([]string, 1000)
	for i := range words {
		words[i] = "w"
	}
	chunks, err := SplitChunks(strings.Join(words, " "), DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		t.Fatalf("SplitChunks() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if n := len(strings.Fields(chunks[0])); n != DefaultChunkSize {
		t.Errorf("first chunk has %d words, want %d", n, DefaultChunkSize)
	}
	if n := len(strings.Fields(chunks[2])); n != 100 {
		t.Errorf("last chunk has %d words, want 100", n)
	}
}
