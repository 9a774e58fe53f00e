package docdex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docdex/internal/config"
	"docdex/internal/ingest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Backend: config.BackendConfig{
			Provider:   config.ProviderLocal,
			Dimensions: 256,
		},
		Search: config.SearchConfig{
			Threshold:     0.2,
			Limit:         3,
			VectorWeight:  0.7,
			KeywordWeight: 0.3,
		},
		Chunking: config.ChunkingConfig{Size: 40, Overlap: 5},
		Research: config.ResearchConfig{MaxSources: 4, SummarySentences: 2},
	}
}

func TestWorkspaceRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	ws, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	doc, _, err := ws.Ingestor(ingest.Options{}).AddDocument(ctx,
		"Solar Basics", "Solar panels convert sunlight into electricity for homes.", "/notes/solar.md")
	if err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	results, err := ws.Searcher().Search(ctx, "solar panels", ws.SearchOptions())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != doc.ID {
		t.Fatalf("search results = %+v, want the ingested document", results)
	}

	stats, err := ws.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.DocumentCount != 1 || stats.EmbeddingCount != 1 {
		t.Errorf("stats = %+v, want 1 document and 1 embedding", stats)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Everything persists across a reopen.
	ws, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer ws.Close()

	results, err = ws.Searcher().Search(ctx, "solar panels", ws.SearchOptions())
	if err != nil {
		t.Fatalf("Search after reopen failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after reopen, want 1", len(results))
	}
}

func TestWorkspaceRebuildText(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	ws, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ws.Close()

	ing := ws.Ingestor(ingest.Options{})
	if _, _, err := ing.AddDocument(ctx, "Solar Basics", "Solar panels convert sunlight.", "/notes/solar.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if _, _, err := ing.AddDocument(ctx, "Wind Basics", "Wind turbines convert moving air.", "/notes/wind.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	reindexed, err := ws.RebuildText()
	if err != nil {
		t.Fatalf("RebuildText failed: %v", err)
	}
	if reindexed != 2 {
		t.Errorf("reindexed = %d, want 2", reindexed)
	}

	count, err := ws.Text.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("indexed documents = %d, want 2", count)
	}

	// The rebuilt index serves searches through a fresh searcher.
	results, err := ws.Searcher().Search(ctx, "wind turbines", ws.SearchOptions())
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results from the rebuilt index")
	}
}

func TestSearchOptionsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	ws, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ws.Close()

	opts := ws.SearchOptions()
	if opts.TopK != 3 {
		t.Errorf("TopK = %d, want 3", opts.TopK)
	}
	if opts.Threshold != 0.2 {
		t.Errorf("Threshold = %v, want 0.2", opts.Threshold)
	}
	if opts.VectorWeight != 0.7 || opts.KeywordWeight != 0.3 {
		t.Errorf("weights = %v/%v, want 0.7/0.3", opts.VectorWeight, opts.KeywordWeight)
	}
}

func TestResearchOptionsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	ws, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ws.Close()

	opts := ws.ResearchOptions()
	if opts.MaxSources != 4 {
		t.Errorf("MaxSources = %d, want 4", opts.MaxSources)
	}
	if opts.SummarySentences != 2 {
		t.Errorf("SummarySentences = %d, want 2", opts.SummarySentences)
	}
	if opts.ChunkSize != 40 || opts.ChunkOverlap != 5 {
		t.Errorf("chunking = %d/%d, want 40/5", opts.ChunkSize, opts.ChunkOverlap)
	}
	if opts.Search.TopK != 3 {
		t.Errorf("Search.TopK = %d, want 3", opts.Search.TopK)
	}
}

func TestWorkspaceLoadsSynonyms(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.SynonymsFile = "synonyms.yaml"

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}
	path := filepath.Join(cfg.DataDir, "synonyms.yaml")
	if err := os.WriteFile(path, []byte("synonyms:\n  solar: [photovoltaic]\n"), 0o644); err != nil {
		t.Fatalf("failed to write synonyms file: %v", err)
	}

	ws, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ws.Close()

	if ws.Synonyms == nil {
		t.Fatal("synonyms were not loaded")
	}
	expanded, matches := ws.Synonyms.Expand("solar output")
	if len(matches) != 1 {
		t.Fatalf("matches = %+v, want one group", matches)
	}
	if expanded == "solar output" {
		t.Error("query was not expanded")
	}
}

func TestWorkspaceMissingSynonymsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.SynonymsFile = "absent.yaml"

	ws, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ws.Close()

	if ws.Synonyms != nil {
		t.Error("expected no expander for a missing synonyms file")
	}
}
