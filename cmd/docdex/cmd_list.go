package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"docdex/internal/config"
	"docdex/internal/docdex"
)

// handleList implements the list subcommand
func handleList(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)

	var limit int
	var jsonOutput bool

	fs.IntVar(&limit, "n", 0, "Maximum documents to list (0 = all)")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex list [options]

DESCRIPTION:
    List stored documents, newest first.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # List all documents
    docdex list

    # List the 10 most recent
    docdex list -n 10

    # JSON output
    docdex list -json
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

	docs, err := ws.Documents.List(limit)
	if err != nil {
		log.Fatalf("Failed to list documents: %v", err)
	}

	if jsonOutput {
		type listItem struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			Source     string `json:"source,omitempty"`
			WordCount  int    `json:"word_count"`
			UploadedAt string `json:"uploaded_at,omitempty"`
		}
		items := make([]listItem, 0, len(docs))
		for _, doc := range docs {
			item := listItem{
				ID:        doc.ID,
				Title:     doc.Title,
				Source:    doc.Metadata.Source,
				WordCount: doc.Metadata.WordCount,
			}
			if !doc.Metadata.UploadedAt.IsZero() {
				item.UploadedAt = doc.Metadata.UploadedAt.UTC().Format(time.RFC3339)
			}
			items = append(items, item)
		}
		output := map[string]interface{}{
			"count":     len(items),
			"documents": items,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(docs) == 0 {
		fmt.Println("No documents stored. Add some with 'docdex add'.")
		return
	}

	fmt.Printf("📚 Documents (%d):\n\n", len(docs))
	for i, doc := range docs {
		fmt.Printf("%d. %s\n", i+1, doc.Title)
		fmt.Printf("   ID:       %s\n", doc.ID)
		if doc.Metadata.Source != "" {
			fmt.Printf("   Source:   %s\n", doc.Metadata.Source)
		}
		fmt.Printf("   Words:    %d\n", doc.Metadata.WordCount)
		if !doc.Metadata.UploadedAt.IsZero() {
			fmt.Printf("   Uploaded: %s\n", doc.Metadata.UploadedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}
}
