package internal

import (
	"fmt"
	"os"
	"strings"
)

const Version = "0.5.0"

// PrintUsage writes the top-level help text to stderr.
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `docdex - Local Document Research

Version: %s

USAGE:
    docdex [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.docdex/config/docdex.yaml)

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    init
        Create the default configuration file and data directory

    add
        Add documents (files, directories, globs) to the corpus

    search
        Search documents with hybrid semantic and keyword ranking

    research
        Generate a research report for a topic

    list
        List stored documents

    remove
        Remove a document by ID

    reembed
        Regenerate embeddings for the active backend

    stats
        Show corpus statistics

    mcp
        Run MCP stdio server (tools: docdex_search, docdex_research,
        docdex_read, docdex_add, docdex_status)

EXAMPLES:
    # First-time setup
    docdex init

    # Add a directory of notes
    docdex add ~/notes

    # Add markdown files matching a glob
    docdex add "docs/**/*.md"

    # Search the corpus
    docdex search "solar panel efficiency"

    # Build a research report
    docdex research "renewable energy storage"

    # Run MCP server over stdio
    docdex mcp

For detailed help on each command, use:
    docdex <command> -help
`, Version)
}

// StringList is a flag.Value that collects multiple strings
type StringList []string

func (s *StringList) String() string {
	return strings.Join(*s, ",")
}

func (s *StringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}
