package mcpserver

import "docdex/internal/retrieval"

// SearchInput defines inputs for the docdex_search MCP tool.
type SearchInput struct {
	Query       string  `json:"query" jsonschema:"search query (natural language or keywords)"`
	TopK        int     `json:"top_k,omitempty" jsonschema:"number of results to return"`
	Threshold   float64 `json:"threshold,omitempty" jsonschema:"minimum similarity for vector matches (0-1)"`
	VectorOnly  bool    `json:"vector_only,omitempty" jsonschema:"use semantic search only"`
	KeywordOnly bool    `json:"keyword_only,omitempty" jsonschema:"use keyword search only"`
}

// SearchScores includes per-signal scores for a result.
type SearchScores struct {
	Vector   float64 `json:"vector"`
	Keyword  float64 `json:"keyword"`
	Combined float64 `json:"combined"`
}

// SearchResultItem is a compact representation of a matched document.
type SearchResultItem struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Source     string       `json:"source,omitempty"`
	WordCount  int          `json:"word_count"`
	UploadedAt string       `json:"uploaded_at,omitempty"`
	Snippet    string       `json:"snippet,omitempty"`
	Scores     SearchScores `json:"scores"`
	Reasons    []string     `json:"reasons,omitempty"`
}

// SearchOutput is the output for docdex_search.
type SearchOutput struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Results []SearchResultItem `json:"results"`
}

// ResearchInput defines inputs for the docdex_research MCP tool.
type ResearchInput struct {
	Topic            string `json:"topic" jsonschema:"research topic or question"`
	MaxSources       int    `json:"max_sources,omitempty" jsonschema:"max documents to consult"`
	SummarySentences int    `json:"summary_sentences,omitempty" jsonschema:"sentences in the summary"`
}

// ResearchOutput mirrors retrieval.Report but uses string timestamps.
type ResearchOutput struct {
	Topic       string                    `json:"topic"`
	GeneratedAt string                    `json:"generated_at"`
	Summary     string                    `json:"summary"`
	Sources     []retrieval.SourceFinding `json:"sources"`
	Synonyms    []retrieval.SynonymMatch  `json:"synonyms"`
	Stages      []retrieval.StageRecord   `json:"stages"`
}

// ReadInput defines inputs for the docdex_read MCP tool.
type ReadInput struct {
	DocumentID string `json:"document_id,omitempty" jsonschema:"document ID from docdex_search results"`
	Source     string `json:"source,omitempty" jsonschema:"source path the document was ingested from"`
	StartLine  int    `json:"start_line,omitempty" jsonschema:"first line to return (1-based)"`
	EndLine    int    `json:"end_line,omitempty" jsonschema:"last line to return (1-based)"`
	MaxLines   int    `json:"max_lines,omitempty" jsonschema:"limit output size (default: 500)"`
}

// ReadOutput is the output for docdex_read.
type ReadOutput struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Source     string `json:"source,omitempty"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	TotalLines int    `json:"total_lines"`
	Content    string `json:"content"`
	Truncated  bool   `json:"truncated"`
}

// AddInput defines inputs for the docdex_add MCP tool.
type AddInput struct {
	Title   string `json:"title,omitempty" jsonschema:"document title (optional)"`
	Content string `json:"content" jsonschema:"document text to store"`
	Source  string `json:"source,omitempty" jsonschema:"source label, reused to update in place"`
}

// AddOutput is the output for docdex_add.
type AddOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status" jsonschema:"added, updated or unchanged"`
	WordCount int    `json:"word_count"`
}

// StatusInput defines inputs for the docdex_status MCP tool.
type StatusInput struct{}

// CorpusStats summarizes the stored corpus.
type CorpusStats struct {
	Documents  int64 `json:"documents"`
	Embeddings int64 `json:"embeddings"`
	Words      int64 `json:"words"`
}

// StatusOutput is the output for docdex_status.
type StatusOutput struct {
	DataDir         string       `json:"data_dir"`
	DatabasePath    string       `json:"database_path"`
	DatabaseSize    int64        `json:"database_size,omitempty"`
	DatabaseSizeStr string       `json:"database_size_str,omitempty"`
	Stats           *CorpusStats `json:"stats,omitempty"`
	Models          []string     `json:"models"`
	Backend         string       `json:"backend,omitempty"`
	BackendReady    bool         `json:"backend_ready"`
	LastUploadedAt  string       `json:"last_uploaded_at,omitempty"`
	LastUploadAge   string       `json:"last_upload_age,omitempty"`
	Notes           []string     `json:"notes,omitempty"`
}
