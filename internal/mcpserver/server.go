package mcpserver

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"docdex/internal/docdex"
	"docdex/internal/embedding"
	"docdex/internal/ingest"
	"docdex/internal/retrieval"
)

// Server exposes docdex search and research via MCP stdio.
type Server struct {
	ws      *docdex.Workspace
	version string
}

// New creates a new MCP server wrapper over an opened workspace.
func New(ws *docdex.Workspace, version string) *Server {
	return &Server{
		ws:      ws,
		version: version,
	}
}

// Run starts the MCP stdio server.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docdex",
		Title:   "Docdex",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "docdex_search",
		Description: `Search ingested documents with hybrid ranking (semantic similarity plus keyword match).

Options:
- top_k: number of results (default from config, usually 5)
- threshold: minimum cosine similarity for the semantic leg (default 0.5)
- vector_only / keyword_only: restrict ranking to a single signal

Scores close to 1.0 mean near-identical content. Use docdex_read with a result ID to fetch the full text.`,
	}, s.searchTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "docdex_research",
		Description: `Generate a research report for a topic from the ingested corpus.

The report pipeline runs four stages:
1. expand: grow the topic with configured synonyms
2. search: hybrid-rank candidate documents
3. refine: pick the best matching passage from each source
4. summarize: extract the most representative sentences

Returns the summary plus the consulted sources with their best passages and per-stage timings.`,
	}, s.researchTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "docdex_read",
		Description: `Read the stored text of an ingested document.

Usage modes:
1. By document_id from docdex_search or docdex_research results
2. By source: the path the document was ingested from

Optional start_line and end_line select a window (1-based). Output is capped at max_lines (default: 500).`,
	}, s.readTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "docdex_add",
		Description: `Store a document from raw text, embedding and indexing it for search.

Re-adding with the same source updates the existing document in place instead of creating a duplicate. The returned status is "added", "updated" or "unchanged".`,
	}, s.addTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "docdex_status",
		Description: `Check the state of the docdex corpus.

Returns:
- Corpus statistics (documents, stored embeddings, words)
- Embedding models present in the store and the active backend
- When the corpus last changed

Use this to verify documents are ingested and embedded before relying on search results.`,
	}, s.statusTool)

	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) searchTool(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}
	if input.VectorOnly && input.KeywordOnly {
		return nil, SearchOutput{}, fmt.Errorf("vector_only and keyword_only cannot both be true")
	}

	results, err := s.ws.Searcher().Search(ctx, input.Query, s.searchOptions(input))
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:   input.Query,
		Count:   len(results),
		Results: mapSearchResults(results),
	}
	return nil, output, nil
}

func (s *Server) searchOptions(input SearchInput) retrieval.SearchOptions {
	opts := s.ws.SearchOptions()
	if input.TopK > 0 {
		opts.TopK = input.TopK
	}
	if input.Threshold > 0 {
		opts.Threshold = input.Threshold
	}
	if input.VectorOnly {
		opts.VectorWeight = 1.0
		opts.KeywordWeight = 0.0
	}
	if input.KeywordOnly {
		opts.VectorWeight = 0.0
		opts.KeywordWeight = 1.0
	}
	return opts
}

func (s *Server) researchTool(ctx context.Context, _ *mcp.CallToolRequest, input ResearchInput) (*mcp.CallToolResult, ResearchOutput, error) {
	if input.Topic == "" {
		return nil, ResearchOutput{}, fmt.Errorf("topic is required")
	}

	opts := s.ws.ResearchOptions()
	if input.MaxSources > 0 {
		opts.MaxSources = input.MaxSources
	}
	if input.SummarySentences > 0 {
		opts.SummarySentences = input.SummarySentences
	}

	researcher := retrieval.NewResearcher(s.ws.Searcher(), s.ws.Index, opts)
	report, err := researcher.Research(ctx, input.Topic)
	if err != nil {
		return nil, ResearchOutput{}, err
	}

	output := ResearchOutput{
		Topic:       report.Topic,
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
		Summary:     report.Summary,
		Sources:     ensureSlice(report.Sources),
		Synonyms:    ensureSlice(report.Synonyms),
		Stages:      ensureSlice(report.Stages),
	}
	return nil, output, nil
}

func (s *Server) readTool(ctx context.Context, _ *mcp.CallToolRequest, input ReadInput) (*mcp.CallToolResult, ReadOutput, error) {
	if input.DocumentID == "" && input.Source == "" {
		return nil, ReadOutput{}, fmt.Errorf("document_id or source is required")
	}

	var doc *embedding.Document
	var err error
	if input.DocumentID != "" {
		doc, err = s.ws.Documents.Get(input.DocumentID)
		if err != nil {
			return nil, ReadOutput{}, err
		}
		if doc == nil {
			return nil, ReadOutput{}, fmt.Errorf("document not found: %s", input.DocumentID)
		}
	} else {
		doc, err = s.ws.Documents.GetBySource(input.Source)
		if err != nil {
			return nil, ReadOutput{}, err
		}
		if doc == nil {
			return nil, ReadOutput{}, fmt.Errorf("no document ingested from %s", input.Source)
		}
	}

	maxLines := input.MaxLines
	if maxLines <= 0 {
		maxLines = 500
	}

	content, start, end, total, truncated := contentWindow(doc.Content, input.StartLine, input.EndLine, maxLines)
	output := ReadOutput{
		ID:         doc.ID,
		Title:      doc.Title,
		Source:     doc.Metadata.Source,
		StartLine:  start,
		EndLine:    end,
		TotalLines: total,
		Content:    content,
		Truncated:  truncated,
	}
	return nil, output, nil
}

func (s *Server) addTool(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, AddOutput, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, AddOutput{}, fmt.Errorf("content is required")
	}

	title := input.Title
	if title == "" {
		title = ingest.DeriveTitle("", input.Content)
	}

	doc, outcome, err := s.ws.Ingestor(ingest.Options{}).AddDocument(ctx, title, input.Content, input.Source)
	if err != nil {
		return nil, AddOutput{}, err
	}

	output := AddOutput{
		ID:        doc.ID,
		Title:     doc.Title,
		Status:    outcome.String(),
		WordCount: doc.Metadata.WordCount,
	}
	return nil, output, nil
}

func (s *Server) statusTool(ctx context.Context, _ *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	output := StatusOutput{
		DataDir:      s.ws.Config.DataDir,
		DatabasePath: docdex.DatabasePath(s.ws.Config),
		Models:       []string{},
	}

	if info, err := os.Stat(output.DatabasePath); err == nil {
		output.DatabaseSize = info.Size()
		output.DatabaseSizeStr = formatBytes(info.Size())
	}

	stats, err := s.ws.Stats()
	if err != nil {
		output.Notes = append(output.Notes, fmt.Sprintf("Cannot read corpus statistics: %v", err))
	} else {
		output.Stats = &CorpusStats{
			Documents:  stats.DocumentCount,
			Embeddings: stats.EmbeddingCount,
			Words:      stats.WordCount,
		}
		if stats.DocumentCount > stats.EmbeddingCount {
			output.Notes = append(output.Notes, fmt.Sprintf(
				"%d documents have no stored embedding. Run 'docdex reembed' to fill them in.",
				stats.DocumentCount-stats.EmbeddingCount))
		}
	}

	if models, err := s.ws.Vectors.Models(); err == nil && len(models) > 0 {
		output.Models = models
	}

	if name, ok := s.ws.Index.Backend(); ok {
		output.Backend = name
		output.BackendReady = true
	} else {
		output.Notes = append(output.Notes, "Embedding backend not initialized yet. It starts on the first search or add.")
	}

	if docs, err := s.ws.Documents.List(1); err == nil && len(docs) > 0 {
		uploaded := docs[0].Metadata.UploadedAt
		if !uploaded.IsZero() {
			output.LastUploadedAt = uploaded.UTC().Format(time.RFC3339)
			output.LastUploadAge = formatDuration(time.Since(uploaded))
		}
	}

	return nil, output, nil
}

// contentWindow slices a 1-based line range out of document content,
// capping the window at maxLines.
func contentWindow(content string, startLine, endLine, maxLines int) (window string, actualStart, actualEnd, totalLines int, truncated bool) {
	lines := strings.Split(content, "\n")
	totalLines = len(lines)

	if startLine <= 0 {
		startLine = 1
	}
	if endLine <= 0 || endLine > totalLines {
		endLine = totalLines
	}
	if startLine > totalLines || endLine < startLine {
		return "", startLine, startLine, totalLines, false
	}

	if endLine-startLine+1 > maxLines {
		endLine = startLine + maxLines - 1
		truncated = true
	}

	return strings.Join(lines[startLine-1:endLine], "\n"), startLine, endLine, totalLines, truncated
}

func mapSearchResults(results []retrieval.SearchResult) []SearchResultItem {
	items := make([]SearchResultItem, 0, len(results))
	for _, result := range results {
		if result.Document == nil {
			continue
		}
		doc := result.Document
		item := SearchResultItem{
			ID:        doc.ID,
			Title:     doc.Title,
			Source:    doc.Metadata.Source,
			WordCount: doc.Metadata.WordCount,
			Snippet:   snippet(doc.Content, 240),
			Scores: SearchScores{
				Vector:   result.VectorScore,
				Keyword:  result.KeywordScore,
				Combined: result.CombinedScore,
			},
			Reasons: result.Reasons,
		}
		if !doc.Metadata.UploadedAt.IsZero() {
			item.UploadedAt = doc.Metadata.UploadedAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return items
}

// snippet returns the leading words of content, cut at a word boundary
// near max runes.
func snippet(content string, max int) string {
	text := strings.Join(strings.Fields(content), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	cut := max
	for cut > 0 && runes[cut] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = max
	}
	return strings.TrimSpace(string(runes[:cut])) + "..."
}

// formatBytes formats bytes to human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats duration to human-readable string
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
	return fmt.Sprintf("%.1f days", d.Hours()/24)
}

func ensureSlice[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
