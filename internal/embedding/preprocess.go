package embedding

import (
	"regexp"
	"strings"
)

// MaxTextLength caps preprocessed text before embedding. Longer inputs
// should be chunked with SplitChunks instead.
const MaxTextLength = 4000

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	stripRe      = regexp.MustCompile(`[^\w\s.,!?-]`)
)

// Preprocess normalizes text for embedding: collapses whitespace runs to
// single spaces, strips characters outside word characters, whitespace
// and basic punctuation (. , ! ? -), trims, and truncates to
// MaxTextLength characters.
func Preprocess(text string) string {
	cleaned := whitespaceRe.ReplaceAllString(text, " ")
	cleaned = stripRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > MaxTextLength {
		// The strip pattern leaves ASCII only, so a byte slice cannot
		// split a rune.
		cleaned = cleaned[:MaxTextLength]
	}
	return cleaned
}

// WordCount reports the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
