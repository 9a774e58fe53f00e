package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ServerConfig configures the HTTP embedding backend.
type ServerConfig struct {
	// Endpoint is the base URL of an OpenAI-compatible embeddings API,
	// for example http://localhost:8080/v1.
	Endpoint string
	// Model is the model identifier sent with each request.
	Model string
	// APIKeyEnv names the environment variable holding the bearer
	// token. Empty means the endpoint is unauthenticated.
	APIKeyEnv string
	// Timeout bounds each request. Defaults to 30 seconds.
	Timeout time.Duration
	// Dimensions is the vector size the model produces.
	Dimensions int
}

// ServerExtractor implements FeatureExtractor against an
// OpenAI-compatible embeddings endpoint, such as a local inference
// server or the hosted API.
type ServerExtractor struct {
	endpoint   string
	model      string
	apiKey     string
	dimensions int
	client     *http.Client
}

// embeddingRequest is the request format for the embeddings endpoint.
type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingResponse is the response from the embeddings endpoint.
type embeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
		Object    string    `json:"object"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewServerExtractor creates the HTTP backend client.
func NewServerExtractor(cfg ServerConfig) (*ServerExtractor, error) {
	if cfg.Endpoint == "" {
		return nil, &ConfigurationError{Reason: "server endpoint is required"}
	}
	if cfg.Model == "" {
		return nil, &ConfigurationError{Reason: "server model is required"}
	}
	if cfg.Dimensions <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("server dimensions must be positive, got %d", cfg.Dimensions)}
	}

	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("environment variable %s is empty", cfg.APIKeyEnv)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ServerExtractor{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     apiKey,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// ExtractFeatures posts the text to the embeddings endpoint. The remote
// model pools token outputs server side, so Pooling is advisory here;
// Normalize is applied client side when requested.
func (e *ServerExtractor) ExtractFeatures(ctx context.Context, text string, opts ExtractOptions) ([]float32, error) {
	req := embeddingRequest{Input: []string{text}, Model: e.model}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp embeddingResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vector := apiResp.Data[0].Embedding
	if len(vector) != e.dimensions {
		return nil, fmt.Errorf("expected %d dimensions, got %d", e.dimensions, len(vector))
	}
	if opts.Normalize {
		NormalizeL2(vector)
	}
	return vector, nil
}

// Probe verifies the endpoint is reachable and serving the configured
// model by requesting one short extraction.
func (e *ServerExtractor) Probe(ctx context.Context) error {
	if _, err := e.ExtractFeatures(ctx, "ping", DefaultExtractOptions()); err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	return nil
}

// Dimensions returns the configured vector size.
func (e *ServerExtractor) Dimensions() int { return e.dimensions }

// Name identifies the backend in logs.
func (e *ServerExtractor) Name() string { return "server" }

// Model returns the configured model identifier.
func (e *ServerExtractor) Model() string { return e.model }

// Close releases idle connections held by the HTTP client.
func (e *ServerExtractor) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
