package internal

import (
	"fmt"
	"os"

	"docdex/internal/config"
)

// LoadConfig loads the YAML configuration from an explicit path, or
// from the default location when the path is empty.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample writes an annotated configuration example to
// stderr.
func PrintConfigExample() {
	homeDir, _ := os.UserHomeDir()
	configPath := fmt.Sprintf("%s/.docdex/config/docdex.yaml", homeDir)

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s
(or run 'docdex init' to generate one):

# Directory holding the SQLite database and the full-text index.
data_dir: ~/.docdex/data

backend:
  # "auto" tries the embedding server first and falls back to the
  # local hashing model; "server" or "local" force one backend.
  provider: auto
  endpoint: http://localhost:8080/v1
  model: all-MiniLM-L6-v2
  dimensions: 384

search:
  threshold: 0.5
  limit: 5
  vector_weight: 0.7
  keyword_weight: 0.3

Usage:
  1. Create the config file (or rely on the defaults)
  2. Add documents: docdex add ~/notes
  3. Search: docdex search "your query"
`, configPath)
}
