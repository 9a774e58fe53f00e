package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"docdex/internal/config"
	"docdex/internal/docdex"
	"docdex/internal/ingest"
)

// handleSearch implements the search subcommand
func handleSearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	var topK int
	var threshold float64
	var vectorOnly, keywordOnly, jsonOutput, verbose bool

	fs.IntVar(&topK, "k", 0, "Number of results to return (default from config)")
	fs.Float64Var(&threshold, "threshold", 0, "Minimum similarity for vector matches (default from config)")
	fs.BoolVar(&vectorOnly, "vector-only", false, "Use semantic search only")
	fs.BoolVar(&keywordOnly, "keyword-only", false, "Use keyword search only")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	fs.BoolVar(&verbose, "verbose", false, "Verbose output (show scores and reasons)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex search [options] "<query>"

DESCRIPTION:
    Search ingested documents using natural language queries.
    Supports hybrid search combining semantic similarity and keyword
    matching.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Natural language search
    docdex search "how do solar panels work"

    # Keyword-only search
    docdex search "photovoltaic" -keyword-only

    # Get top 10 results
    docdex search "energy storage" -k 10

    # JSON output for scripting
    docdex search "battery chemistry" -json

    # Verbose output with scores
    docdex search "wind turbines" -verbose
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: search query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	if vectorOnly && keywordOnly {
		log.Fatalf("-vector-only and -keyword-only cannot both be set")
	}

	query := fs.Arg(0)

	ws, err := docdex.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open workspace: %v", err)
	}
	defer ws.Close()

	opts := ws.SearchOptions()
	if topK > 0 {
		opts.TopK = topK
	}
	if threshold > 0 {
		opts.Threshold = threshold
	}
	if vectorOnly {
		opts.VectorWeight = 1.0
		opts.KeywordWeight = 0.0
	} else if keywordOnly {
		opts.VectorWeight = 0.0
		opts.KeywordWeight = 1.0
	}

	stop := ingest.StartSpinner(!jsonOutput && ingest.DefaultProgressEnabled(), "searching")
	results, err := ws.Searcher().Search(context.Background(), query, opts)
	stop()
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"query":   query,
			"count":   len(results),
			"results": results,
		}
		jsonData, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal results: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("Found %d result(s) for: %s\n\n", len(results), query)

	for i, result := range results {
		doc := result.Document
		fmt.Printf("%d. %s\n", i+1, doc.Title)
		fmt.Printf("   ID:      %s\n", doc.ID)
		if doc.Metadata.Source != "" {
			fmt.Printf("   Source:  %s\n", doc.Metadata.Source)
		}
		fmt.Printf("   Words:   %d\n", doc.Metadata.WordCount)

		if verbose {
			if result.VectorScore > 0 {
				fmt.Printf("   Vector:  %.3f\n", result.VectorScore)
			}
			if result.KeywordScore > 0 {
				fmt.Printf("   Keyword: %.3f\n", result.KeywordScore)
			}
			fmt.Printf("   Score:   %.3f\n", result.CombinedScore)

			if len(result.Reasons) > 0 {
				fmt.Printf("   Why:     %v\n", result.Reasons)
			}
		}

		text := strings.Join(strings.Fields(doc.Content), " ")
		if len(text) > 100 {
			text = text[:100] + "..."
		}
		fmt.Printf("   %s\n", text)

		fmt.Println()
	}
}
