package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"docdex/internal/config"
	"docdex/internal/docdex"
	"docdex/internal/ingest"
)

// handleReembed implements the reembed subcommand
func handleReembed(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("reembed", flag.ExitOnError)

	var noProgress, jsonOutput, rebuildText bool
	fs.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	fs.BoolVar(&rebuildText, "rebuild-text", false, "Rebuild the keyword index from stored documents first")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex reembed [options]

DESCRIPTION:
    Regenerate embeddings for every stored document with the active
    backend. Documents that already have a current vector are skipped,
    so this is cheap to rerun. Use it after switching embedding
    backends or models.

    With -rebuild-text the keyword index is destroyed and reindexed
    from the document store before embedding, recovering from a lost
    or damaged index directory.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Re-embed after changing backend.model in the config
    docdex reembed

    # Recover the keyword index as well
    docdex reembed -rebuild-text
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	ws, err := docdex.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open workspace: %v", err)
	}
	defer ws.Close()

	var reindexed int
	if rebuildText {
		reindexed, err = ws.RebuildText()
		if err != nil {
			log.Fatalf("Failed to rebuild keyword index: %v", err)
		}
	}

	progress := ingest.NewBarProgress(!noProgress && ingest.DefaultProgressEnabled(), "reembedding")
	ing := ws.Ingestor(ingest.Options{Progress: progress})

	startTime := time.Now()
	result, err := ing.Reembed(context.Background())
	if err != nil {
		log.Fatalf("Re-embedding failed: %v", err)
	}
	duration := time.Since(startTime)

	if jsonOutput {
		output := map[string]interface{}{
			"model":       result.Model,
			"embedded":    result.Embedded,
			"skipped":     result.Skipped,
			"failed":      result.Failed,
			"duration_ms": duration.Milliseconds(),
		}
		if rebuildText {
			output["reindexed"] = reindexed
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("✅ Re-embedding completed!")
	fmt.Printf("\n⏱️  Duration: %v\n", duration)
	fmt.Println("\n📊 Statistics:")
	fmt.Printf("   Model:    %s\n", result.Model)
	fmt.Printf("   Embedded: %6d\n", result.Embedded)
	fmt.Printf("   Skipped:  %6d\n", result.Skipped)
	if result.Failed > 0 {
		fmt.Printf("   Failed:   %6d\n", result.Failed)
	}
	if rebuildText {
		fmt.Printf("   Reindexed: %5d\n", reindexed)
	}
}
