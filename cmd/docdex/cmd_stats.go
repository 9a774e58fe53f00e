package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"docdex/internal/config"
	"docdex/internal/docdex"
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex stats [options]

DESCRIPTION:
    Show statistics about the document corpus.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Show human-readable statistics
    docdex stats

    # JSON output
    docdex stats -json
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

	stats, err := ws.Stats()
	if err != nil {
		log.Fatalf("Failed to read statistics: %v", err)
	}

	models, err := ws.Vectors.Models()
	if err != nil {
		log.Fatalf("Failed to list embedding models: %v", err)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"documents":  stats.DocumentCount,
			"embeddings": stats.EmbeddingCount,
			"words":      stats.WordCount,
			"size_bytes": stats.SizeBytes,
			"models":     models,
			"data_dir":   cfg.DataDir,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("📊 Corpus Statistics")
	fmt.Println()
	fmt.Printf("Documents:  %6d\n", stats.DocumentCount)
	fmt.Printf("Embeddings: %6d\n", stats.EmbeddingCount)
	fmt.Printf("Words:      %6d\n", stats.WordCount)
	fmt.Printf("Size:       %s\n", formatSize(stats.SizeBytes))
	if len(models) > 0 {
		fmt.Printf("Models:     %s\n", strings.Join(models, ", "))
	}
	fmt.Printf("Data dir:   %s\n", cfg.DataDir)
}

// formatSize formats bytes to human-readable string
func formatSize(bytes int64) string {
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
