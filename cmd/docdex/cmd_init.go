package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"docdex/cmd/docdex/internal"
	"docdex/internal/config"
	"docdex/internal/docdex"
)

// handleInit implements the init subcommand
func handleInit(configPath string, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    docdex init

DESCRIPTION:
    Create the default configuration file and initialize the data
    directory. Existing files are left untouched.

EXAMPLES:
    # Create ~/.docdex/config/docdex.yaml with defaults
    docdex init

    # Create a config file at a custom location
    docdex -config ./docdex.yaml init
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	path := configPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			log.Fatalf("Failed to determine config path: %v", err)
		}
		path = defaultPath
	}

	created, err := config.WriteDefaultTemplate(path)
	if err != nil {
		log.Fatalf("Failed to create config file: %v", err)
	}
	if created {
		fmt.Printf("✅ Created config at %s\n", path)
	} else {
		fmt.Printf("Config already exists at %s\n", path)
	}

	cfg, err := internal.LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Opening the workspace once materializes the database and the
	// keyword index.
	ws, err := docdex.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize data directory: %v", err)
	}
	if err := ws.Close(); err != nil {
		log.Fatalf("Failed to close workspace: %v", err)
	}
	fmt.Printf("✅ Data directory ready at %s\n", cfg.DataDir)

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Review the config: %s\n", path)
	fmt.Println("  2. Add documents:     docdex add <path|glob>")
	fmt.Println("  3. Search:            docdex search \"your query\"")
}
