package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"docdex/cmd/docdex/internal"
	"docdex/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		internal.PrintUsage()
		os.Exit(1)
	}

	args := os.Args[1:]

	validSubcommands := map[string]bool{
		"init":     true,
		"add":      true,
		"search":   true,
		"research": true,
		"list":     true,
		"remove":   true,
		"reembed":  true,
		"stats":    true,
		"mcp":      true,
	}

	// Find the subcommand: the first bare argument that names one.
	subcommandIndex := -1
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && validSubcommands[arg] {
			subcommandIndex = i
			break
		}
	}

	// Parse global flags (everything before the subcommand).
	globalFlags := args
	if subcommandIndex >= 0 {
		globalFlags = args[:subcommandIndex]
	}

	configPath := ""
	for i := 0; i < len(globalFlags); i++ {
		flag := globalFlags[i]
		switch {
		case flag == "-config" || flag == "--config":
			if i+1 < len(globalFlags) {
				configPath = globalFlags[i+1]
				i++
			}
		case flag == "-h" || flag == "-help" || flag == "--help":
			internal.PrintUsage()
			os.Exit(0)
		case flag == "-v" || flag == "-version" || flag == "--version":
			fmt.Printf("docdex version %s\n", internal.Version)
			os.Exit(0)
		case strings.HasPrefix(flag, "-"):
			fmt.Fprintf(os.Stderr, "Error: Unknown global flag: %s\n\n", flag)
			internal.PrintUsage()
			os.Exit(1)
		}
	}

	if subcommandIndex == -1 {
		fmt.Fprintf(os.Stderr, "Error: No subcommand specified\n\n")
		internal.PrintUsage()
		os.Exit(1)
	}

	subcommand := args[subcommandIndex]
	subcommandArgs := args[subcommandIndex+1:]

	// init runs before config loading so it can create the very file
	// the other commands read.
	if subcommand == "init" {
		handleInit(configPath, subcommandArgs)
		return
	}

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		if config.IsConfigNotFound(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			internal.PrintConfigExample()
			os.Exit(1)
		}
		log.Fatalf("Failed to load config: %v\n", err)
	}

	if err := internal.SetupLogging(subcommand); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize log file: %v\n", err)
	}

	switch subcommand {
	case "add":
		handleAdd(cfg, subcommandArgs)
	case "search":
		handleSearch(cfg, subcommandArgs)
	case "research":
		handleResearch(cfg, subcommandArgs)
	case "list":
		handleList(cfg, subcommandArgs)
	case "remove":
		handleRemove(cfg, subcommandArgs)
	case "reembed":
		handleReembed(cfg, subcommandArgs)
	case "stats":
		handleStats(cfg, subcommandArgs)
	case "mcp":
		handleMCP(cfg, subcommandArgs)
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", subcommand)
		internal.PrintUsage()
		os.Exit(1)
	}
}
