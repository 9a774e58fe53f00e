package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"docdex/internal/embedding"
)

// ResearchOptions configures the research pipeline.
type ResearchOptions struct {
	MaxSources       int // Documents to pull into the report
	SummarySentences int // Length of the generated summary
	ChunkSize        int // Words per passage window
	ChunkOverlap     int // Overlapping words between windows
	Search           SearchOptions
}

// DefaultResearchOptions returns the default pipeline configuration.
func DefaultResearchOptions() ResearchOptions {
	return ResearchOptions{
		MaxSources:       5,
		SummarySentences: 6,
		ChunkSize:        embedding.DefaultChunkSize,
		ChunkOverlap:     embedding.DefaultChunkOverlap,
		Search:           DefaultSearchOptions(),
	}
}

// Report is the outcome of a research run.
type Report struct {
	Topic       string          `json:"topic"`
	GeneratedAt time.Time       `json:"generated_at"`
	Summary     string          `json:"summary"`
	Sources     []SourceFinding `json:"sources"`
	Synonyms    []SynonymMatch  `json:"synonyms,omitempty"`
	Stages      []StageRecord   `json:"stages"`
}

// SourceFinding describes one document that contributed to the report.
type SourceFinding struct {
	DocumentID   string   `json:"document_id"`
	Title        string   `json:"title"`
	Source       string   `json:"source,omitempty"`
	Score        float64  `json:"score"`
	VectorScore  float64  `json:"vector_score"`
	KeywordScore float64  `json:"keyword_score"`
	BestPassage  string   `json:"best_passage,omitempty"`
	PassageScore float64  `json:"passage_score,omitempty"`
	Reasons      []string `json:"reasons,omitempty"`
}

// StageRecord captures the timing of one pipeline stage.
type StageRecord struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Detail     string  `json:"detail,omitempty"`
}

// Researcher runs the research pipeline: expand the topic, gather
// sources with hybrid search, refine each source to its best passage,
// and summarize the collected passages.
type Researcher struct {
	searcher   *Searcher
	index      *embedding.Index
	summarizer *FrequencySummarizer
	opts       ResearchOptions
}

// NewResearcher creates a researcher. Zero option fields fall back to
// defaults.
func NewResearcher(searcher *Searcher, index *embedding.Index, opts ResearchOptions) *Researcher {
	defaults := DefaultResearchOptions()
	if opts.MaxSources <= 0 {
		opts.MaxSources = defaults.MaxSources
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = defaults.SummarySentences
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaults.ChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = defaults.ChunkOverlap
	}

	return &Researcher{
		searcher:   searcher,
		index:      index,
		summarizer: NewFrequencySummarizer(),
		opts:       opts,
	}
}

// Research produces a report for the topic.
func (r *Researcher) Research(ctx context.Context, topic string) (*Report, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("research topic is empty")
	}

	report := &Report{
		Topic:       topic,
		GeneratedAt: time.Now().UTC(),
	}

	// Stage 1: expand the topic through synonym groups
	start := time.Now()
	expanded, matches := r.searcher.synonyms.Expand(topic)
	report.Synonyms = matches
	report.Stages = append(report.Stages, stageRecord("expand", start,
		fmt.Sprintf("%d synonym groups matched", len(matches))))

	// Stage 2: gather sources with hybrid search
	start = time.Now()
	searchOpts := r.opts.Search
	searchOpts.TopK = r.opts.MaxSources
	results, err := r.searcher.Search(ctx, topic, searchOpts)
	if err != nil {
		return nil, fmt.Errorf("research search: %w", err)
	}
	report.Stages = append(report.Stages, stageRecord("search", start,
		fmt.Sprintf("%d sources found", len(results))))

	for _, res := range results {
		report.Sources = append(report.Sources, SourceFinding{
			DocumentID:   res.Document.ID,
			Title:        res.Document.Title,
			Source:       res.Document.Metadata.Source,
			Score:        res.CombinedScore,
			VectorScore:  res.VectorScore,
			KeywordScore: res.KeywordScore,
			Reasons:      res.Reasons,
		})
	}

	if len(results) == 0 {
		return report, nil
	}

	// Stage 3: refine each source down to its best passage
	start = time.Now()
	detail := r.refineSources(ctx, expanded, results, report)
	report.Stages = append(report.Stages, stageRecord("refine", start, detail))

	// Stage 4: summarize the collected passages
	start = time.Now()
	var corpus strings.Builder
	for i, finding := range report.Sources {
		text := finding.BestPassage
		if text == "" {
			text = results[i].Document.Content
		}
		corpus.WriteString(text)
		corpus.WriteString("\n")
	}
	report.Summary = r.summarizer.Summarize(corpus.String(), r.opts.SummarySentences)
	report.Stages = append(report.Stages, stageRecord("summarize", start,
		fmt.Sprintf("%d sentences from %d sources", r.opts.SummarySentences, len(report.Sources))))

	return report, nil
}

// refineSources scores each source's chunks against the topic and
// attaches the best passage. A source that cannot be refined keeps its
// place in the report without a passage.
func (r *Researcher) refineSources(ctx context.Context, topic string, results []SearchResult, report *Report) string {
	queryVector, err := r.index.Generate(ctx, topic)
	if err != nil {
		return fmt.Sprintf("passage scoring skipped: %v", err)
	}

	refined := 0
	for i, res := range results {
		passage, score, err := r.bestPassage(ctx, queryVector, res.Document.Content)
		if err != nil || passage == "" {
			continue
		}
		report.Sources[i].BestPassage = passage
		report.Sources[i].PassageScore = score
		refined++
	}
	return fmt.Sprintf("%d of %d sources refined", refined, len(results))
}

// bestPassage chunks the content and returns the chunk most similar to
// the query vector.
func (r *Researcher) bestPassage(ctx context.Context, queryVector []float32, content string) (string, float64, error) {
	chunks, err := embedding.SplitChunks(content, r.opts.ChunkSize, r.opts.ChunkOverlap)
	if err != nil {
		return "", 0, err
	}
	if len(chunks) == 0 {
		return "", 0, nil
	}

	vectors, err := r.index.GenerateAll(ctx, chunks)
	if err != nil {
		return "", 0, err
	}

	chunkDocs := make([]embedding.Document, len(chunks))
	for i, chunk := range chunks {
		chunkDocs[i] = embedding.Document{
			ID:        fmt.Sprintf("chunk-%d", i),
			Content:   chunk,
			Embedding: vectors[i],
		}
	}

	// No threshold here: the best chunk wins even when similarity is
	// weak. Degenerate zero vectors score NaN and drop out on their own.
	best, err := embedding.FindSimilar(queryVector, chunkDocs, embedding.SearchOptions{
		Threshold: math.Inf(-1),
		Limit:     1,
	})
	if err != nil {
		return "", 0, err
	}
	if len(best) == 0 {
		return "", 0, nil
	}
	return best[0].Document.Content, best[0].Similarity, nil
}

func stageRecord(name string, start time.Time, detail string) StageRecord {
	return StageRecord{
		Name:       name,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000.0,
		Detail:     detail,
	}
}
