package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Embedding backend providers.
const (
	ProviderAuto   = "auto"
	ProviderServer = "server"
	ProviderLocal  = "local"
)

// Config holds the application configuration
type Config struct {
	// DataDir holds the SQLite database and the full-text index.
	// Defaults to ~/.docdex/data.
	DataDir  string         `yaml:"data_dir,omitempty"`
	Backend  BackendConfig  `yaml:"backend"`
	Search   SearchConfig   `yaml:"search,omitempty"`
	Chunking ChunkingConfig `yaml:"chunking,omitempty"`
	Research ResearchConfig `yaml:"research,omitempty"`
}

// BackendConfig holds embedding backend configuration
type BackendConfig struct {
	Provider string `yaml:"provider"` // "auto" | "server" | "local"

	// Server backend (OpenAI-compatible embeddings endpoint)
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"` // env var holding the bearer token
	Model     string `yaml:"model"`

	// Embedding parameters
	Dimensions     int `yaml:"dimensions"`
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// DegradeToRandom substitutes a random placeholder vector when
	// embedding fails, instead of returning an error.
	DegradeToRandom bool `yaml:"degrade_to_random,omitempty"`
}

// RequestTimeout returns the per-request timeout for the server backend.
func (c *BackendConfig) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SearchConfig holds search-specific configuration
type SearchConfig struct {
	Threshold     float64 `yaml:"threshold,omitempty"`      // Minimum similarity for a match
	Limit         int     `yaml:"limit,omitempty"`          // Maximum number of results
	VectorWeight  float64 `yaml:"vector_weight,omitempty"`  // Vector search weight (0-1)
	KeywordWeight float64 `yaml:"keyword_weight,omitempty"` // Keyword search weight (0-1)
	SynonymsFile  string  `yaml:"synonyms_file,omitempty"`  // Optional synonyms file
}

// ChunkingConfig holds text chunking configuration
type ChunkingConfig struct {
	Size    int `yaml:"size,omitempty"`    // Words per chunk
	Overlap int `yaml:"overlap,omitempty"` // Words shared between neighbors
}

// ResearchConfig holds research report configuration
type ResearchConfig struct {
	MaxSources       int `yaml:"max_sources,omitempty"`       // Documents consulted per report
	SummarySentences int `yaml:"summary_sentences,omitempty"` // Sentences in the report summary
}

// DefaultPath returns the default config file location,
// ~/.docdex/config/docdex.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".docdex", "config", "docdex.yaml"), nil
}

// Load loads configuration from the default config file. A missing file
// is not an error: the built-in defaults are returned so the tool works
// out of the box.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		if IsConfigNotFound(err) {
			return Default()
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			defaultPath, _ := DefaultPath()
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults
	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Run 'docdex init' to create a config file with defaults\n"+
		"  2. Create the config file at the default location\n"+
		"  3. Specify a custom path with -config flag",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
// Supports both:
//
//	~/.docdex/data
//	$HOME/.docdex/data
func expandPath(path string) string {
	// Handle $HOME environment variable
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			// Fallback to UserHomeDir if HOME is not set
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				// If we can't get home dir, return path as-is
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	// Handle ~ shorthand
	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// If we can't get home dir, return path as-is
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() error {
	// Set default data directory
	if c.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.DataDir = filepath.Join(homeDir, ".docdex", "data")
	} else {
		c.DataDir = expandPath(c.DataDir)
	}

	// Set default backend provider
	if c.Backend.Provider == "" {
		c.Backend.Provider = ProviderAuto
	}

	// Set default endpoint
	if c.Backend.Endpoint == "" {
		c.Backend.Endpoint = "http://localhost:8080/v1"
	}

	// Set default model
	if c.Backend.Model == "" {
		c.Backend.Model = "all-MiniLM-L6-v2"
	}

	// Set default dimensions
	if c.Backend.Dimensions == 0 {
		c.Backend.Dimensions = 384
	}

	// Set default request timeout
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 30
	}

	// Set default search options
	if c.Search.Threshold == 0 {
		c.Search.Threshold = 0.5
	}
	if c.Search.Limit == 0 {
		c.Search.Limit = 5
	}
	if c.Search.VectorWeight == 0 && c.Search.KeywordWeight == 0 {
		c.Search.VectorWeight = 0.7
		c.Search.KeywordWeight = 0.3
	}
	if c.Search.SynonymsFile != "" {
		c.Search.SynonymsFile = expandPath(c.Search.SynonymsFile)
	}

	// Set default chunking options
	if c.Chunking.Size == 0 {
		c.Chunking.Size = 500
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 50
	}

	// Set default research options
	if c.Research.MaxSources == 0 {
		c.Research.MaxSources = 5
	}
	if c.Research.SummarySentences == 0 {
		c.Research.SummarySentences = 6
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate backend configuration
	switch c.Backend.Provider {
	case ProviderAuto, ProviderServer:
		if c.Backend.Endpoint == "" {
			return fmt.Errorf("%s provider requires endpoint", c.Backend.Provider)
		}
		if c.Backend.Model == "" {
			return fmt.Errorf("%s provider requires model", c.Backend.Provider)
		}
	case ProviderLocal:
		// Local hashing backend needs only dimensions.
	default:
		return fmt.Errorf("unsupported backend provider: %s", c.Backend.Provider)
	}

	// Validate dimensions
	if c.Backend.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got: %d", c.Backend.Dimensions)
	}

	// Validate search options
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return fmt.Errorf("search threshold must be within [-1, 1], got: %v", c.Search.Threshold)
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search limit must not be negative, got: %d", c.Search.Limit)
	}
	if c.Search.VectorWeight < 0 || c.Search.KeywordWeight < 0 {
		return fmt.Errorf("search weights must not be negative")
	}
	if c.Search.VectorWeight == 0 && c.Search.KeywordWeight == 0 {
		return fmt.Errorf("at least one search weight must be positive")
	}

	// Validate chunking: a step of zero or less would never terminate,
	// so reject it here instead of hanging later.
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got: %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got: %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.Chunking.Overlap, c.Chunking.Size)
	}

	// Validate research options
	if c.Research.MaxSources <= 0 {
		return fmt.Errorf("research max_sources must be positive, got: %d", c.Research.MaxSources)
	}
	if c.Research.SummarySentences <= 0 {
		return fmt.Errorf("research summary_sentences must be positive, got: %d", c.Research.SummarySentences)
	}

	return nil
}

const defaultConfigTemplate = `# docdex configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.docdex/config/docdex.yaml

# Directory holding the SQLite database and the full-text index.
data_dir: ~/.docdex/data

backend:
  # Provider: "auto" tries the server backend first and falls back to
  # the local hashing model; "server" or "local" force one backend.
  provider: auto

  # OpenAI-compatible embeddings endpoint.
  endpoint: http://localhost:8080/v1
  model: all-MiniLM-L6-v2
  dimensions: 384
  timeout_seconds: 30

  # Name of the environment variable holding the API key, if the
  # endpoint requires one.
  # api_key_env: DOCDEX_API_KEY

  # Substitute a random placeholder vector when embedding fails instead
  # of returning an error. Off by default: placeholder vectors make
  # similarity scores meaningless.
  degrade_to_random: false

search:
  threshold: 0.5
  limit: 5
  vector_weight: 0.7
  keyword_weight: 0.3
  # synonyms_file: ~/.docdex/config/synonyms.yaml

chunking:
  size: 500
  overlap: 50

research:
  max_sources: 5
  summary_sentences: 6
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
