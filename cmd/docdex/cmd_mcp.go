package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"docdex/cmd/docdex/internal"
	"docdex/internal/config"
	"docdex/internal/docdex"
	"docdex/internal/mcpserver"
)

// handleMCP implements the MCP stdio server subcommand
func handleMCP(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex mcp

DESCRIPTION:
    Run an MCP stdio server exposing:
      - docdex_search
      - docdex_research
      - docdex_read
      - docdex_add
      - docdex_status
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

	server := mcpserver.New(ws, internal.Version)
	if err := server.Run(context.Background()); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
