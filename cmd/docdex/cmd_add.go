package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"docdex/cmd/docdex/internal"
	"docdex/internal/config"
	"docdex/internal/docdex"
	"docdex/internal/ingest"
)

// handleAdd implements the add subcommand
func handleAdd(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)

	var exclude internal.StringList
	var noEmbed, noProgress, jsonOutput bool

	fs.Var(&exclude, "exclude", "Glob pattern to skip (repeatable)")
	fs.BoolVar(&noEmbed, "no-embed", false, "Store and index without generating embeddings")
	fs.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex add [options] <path|glob>...

DESCRIPTION:
    Add documents to the research corpus. Each file is stored, embedded
    for semantic search and indexed for keyword search. Directories are
    walked recursively; supported file types are .txt, .md and
    .markdown. Re-adding a changed file updates the stored document in
    place; unchanged files are skipped. With -no-embed documents are
    stored and keyword-indexed only, and 'docdex reembed' generates
    the missing vectors later.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Add a single file
    docdex add notes.md

    # Add a directory of notes
    docdex add ~/notes

    # Add markdown files matching a glob
    docdex add "docs/**/*.md"

    # Skip drafts
    docdex add ~/notes -exclude "*draft*"

    # Store now, embed later with 'docdex reembed'
    docdex add ~/notes -no-embed
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one path or glob is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	ws, err := docdex.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open workspace: %v", err)
	}
	defer ws.Close()

	progress := ingest.NewBarProgress(!noProgress && ingest.DefaultProgressEnabled(), "ingesting")
	ing := ws.Ingestor(ingest.Options{
		Exclude:   exclude,
		SkipEmbed: noEmbed,
		Progress:  progress,
	})

	startTime := time.Now()
	result, err := ing.AddPaths(context.Background(), fs.Args())
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}
	duration := time.Since(startTime)

	stats, err := ws.Stats()
	if err != nil {
		log.Fatalf("Failed to read statistics: %v", err)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"added":       result.Added,
			"updated":     result.Updated,
			"skipped":     result.Skipped,
			"failed":      result.Failed,
			"duration_ms": duration.Milliseconds(),
			"documents":   stats.DocumentCount,
			"embeddings":  stats.EmbeddingCount,
			"words":       stats.WordCount,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("✅ Ingest completed successfully!")
	fmt.Printf("\n⏱️  Duration: %v\n", duration)
	fmt.Println("\n📊 Statistics:")
	fmt.Printf("   Added:      %6d\n", result.Added)
	fmt.Printf("   Updated:    %6d\n", result.Updated)
	if result.Skipped > 0 {
		fmt.Printf("   Skipped:    %6d\n", result.Skipped)
	}
	if result.Failed > 0 {
		fmt.Printf("   Failed:     %6d\n", result.Failed)
	}
	fmt.Printf("   Documents:  %6d\n", stats.DocumentCount)
	fmt.Printf("   Embeddings: %6d\n", stats.EmbeddingCount)
	fmt.Printf("   Words:      %6d\n", stats.WordCount)
}
