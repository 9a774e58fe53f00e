package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"docdex/internal/config"
	"docdex/internal/docdex"
	"docdex/internal/ingest"
)

// handleRemove implements the remove subcommand
func handleRemove(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex remove <document-id>...

DESCRIPTION:
    Remove documents from the corpus. Stored embeddings and keyword
    index entries go with them. Use 'docdex list' to find document IDs.

EXAMPLES:
    # Remove one document
    docdex remove 4f6b1c2e-8a3d-4f7b-9c1e-2d5a6b7c8d9e
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one document ID is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	ws, err := docdex.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open workspace: %v", err)
	}
	defer ws.Close()

	ing := ws.Ingestor(ingest.Options{})
	for _, id := range fs.Args() {
		doc, err := ws.Documents.Get(id)
		if err != nil {
			log.Fatalf("Failed to look up %s: %v", id, err)
		}
		if doc == nil {
			log.Fatalf("Document not found: %s", id)
		}
		if err := ing.Remove(id); err != nil {
			log.Fatalf("Failed to remove %s: %v", id, err)
		}
		fmt.Printf("🗑️  Removed %s (%s)\n", doc.Title, id)
	}
}
