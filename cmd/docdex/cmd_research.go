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
	"docdex/internal/retrieval"
)

// handleResearch implements the research subcommand
func handleResearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("research", flag.ExitOnError)

	var outputFile string
	var maxSources, summarySentences int
	var jsonOutput bool

	fs.StringVar(&outputFile, "output", "", "Write the JSON report to a file")
	fs.IntVar(&maxSources, "sources", 0, "Maximum documents to consult (default from config)")
	fs.IntVar(&summarySentences, "sentences", 0, "Sentences in the summary (default from config)")
	fs.BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex research [options] "<topic>"

DESCRIPTION:
    Generate a research report for a topic from the ingested corpus.
    The pipeline expands the topic with synonyms, ranks candidate
    documents, picks the best passage from each source and extracts a
    summary.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Research a topic
    docdex research "renewable energy storage"

    # Consult more sources with a longer summary
    docdex research "battery chemistry" -sources 8 -sentences 10

    # Save the report for later
    docdex research "heat pump efficiency" -output report.json

    # JSON output for scripting
    docdex research "grid stability" -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: research topic is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	topic := fs.Arg(0)

	ws, err := docdex.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open workspace: %v", err)
	}
	defer ws.Close()

	opts := ws.ResearchOptions()
	if maxSources > 0 {
		opts.MaxSources = maxSources
	}
	if summarySentences > 0 {
		opts.SummarySentences = summarySentences
	}

	researcher := retrieval.NewResearcher(ws.Searcher(), ws.Index, opts)
	stop := ingest.StartSpinner(!jsonOutput && ingest.DefaultProgressEnabled(), "researching")
	report, err := researcher.Research(context.Background(), topic)
	stop()
	if err != nil {
		log.Fatalf("Research failed: %v", err)
	}

	if outputFile != "" {
		jsonData, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		fmt.Printf("✅ Report written to: %s\n", outputFile)
		fmt.Printf("\n📊 Summary:\n")
		fmt.Printf("   Topic:   %s\n", report.Topic)
		fmt.Printf("   Sources: %d\n", len(report.Sources))
		fmt.Printf("   Stages:  %d\n", len(report.Stages))
		return
	}

	if jsonOutput {
		jsonData, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}

	printReport(report)
}

// printReport renders a research report as human-readable text.
func printReport(report *retrieval.Report) {
	fmt.Printf("🔍 Research: %s\n", report.Topic)

	if len(report.Synonyms) > 0 {
		var terms []string
		for _, match := range report.Synonyms {
			terms = append(terms, match.Terms...)
		}
		fmt.Printf("   Expanded with: %s\n", strings.Join(terms, ", "))
	}
	fmt.Println()

	if len(report.Sources) == 0 {
		fmt.Println("No sources found. Add documents with 'docdex add' first.")
		return
	}

	fmt.Println("📝 Summary:")
	fmt.Printf("   %s\n\n", report.Summary)

	fmt.Printf("📚 Sources (%d):\n", len(report.Sources))
	for i, source := range report.Sources {
		fmt.Printf("%d. %s (score %.3f)\n", i+1, source.Title, source.Score)
		fmt.Printf("   ID:      %s\n", source.DocumentID)
		if source.Source != "" {
			fmt.Printf("   Source:  %s\n", source.Source)
		}
		if source.BestPassage != "" {
			passage := strings.Join(strings.Fields(source.BestPassage), " ")
			if len(passage) > 160 {
				passage = passage[:160] + "..."
			}
			fmt.Printf("   Passage: %s\n", passage)
		}
		fmt.Println()
	}

	fmt.Println("⏱️  Stages:")
	for _, stage := range report.Stages {
		fmt.Printf("   %-10s %8.1fms  %s\n", stage.Name, stage.DurationMS, stage.Detail)
	}
}
