package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embeddingHandler(t *testing.T, vector []float32, gotAuth *string, gotReq *embeddingRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		*gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]interface{}{
			"object": "list",
			"data": []map[string]interface{}{
				{"embedding": vector, "index": 0, "object": "embedding"},
			},
			"model": gotReq.Model,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestServerExtractorExtractFeatures(t *testing.T) {
	var gotAuth string
	var gotReq embeddingRequest
	srv := httptest.NewServer(embeddingHandler(t, []float32{3, 4}, &gotAuth, &gotReq))
	defer srv.Close()

	t.Setenv("DOCDEX_TEST_KEY", "secret-token")
	e, err := NewServerExtractor(ServerConfig{
		Endpoint:   srv.URL,
		Model:      "test-model",
		APIKeyEnv:  "DOCDEX_TEST_KEY",
		Dimensions: 2,
	})
	if err != nil {
		t.Fatalf("NewServerExtractor() error = %v", err)
	}
	if e.Model() != "test-model" {
		t.Errorf("Model() = %q, want test-model", e.Model())
	}

	vec, err := e.ExtractFeatures(context.Background(), "hello", DefaultExtractOptions())
	if err != nil {
		t.Fatalf("ExtractFeatures() error = %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Input) != 1 || gotReq.Input[0] != "hello" {
		t.Errorf("request = %+v", gotReq)
	}

	// [3, 4] normalized client side becomes [0.6, 0.8].
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Errorf("vector = %v, want normalized [0.6 0.8]", vec)
	}
}

func TestServerExtractorSkipsNormalization(t *testing.T) {
	var gotAuth string
	var gotReq embeddingRequest
	srv := httptest.NewServer(embeddingHandler(t, []float32{3, 4}, &gotAuth, &gotReq))
	defer srv.Close()

	e, err := NewServerExtractor(ServerConfig{Endpoint: srv.URL, Model: "m", Dimensions: 2})
	if err != nil {
		t.Fatalf("NewServerExtractor() error = %v", err)
	}

	vec, err := e.ExtractFeatures(context.Background(), "hello", ExtractOptions{Pooling: PoolingMean})
	if err != nil {
		t.Fatalf("ExtractFeatures() error = %v", err)
	}
	if vec[0] != 3 || vec[1] != 4 {
		t.Errorf("vector = %v, want raw [3 4]", vec)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty for unauthenticated endpoint", gotAuth)
	}
}

func TestServerExtractorErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model loading", http.StatusInternalServerError)
			},
		},
		{
			name: "empty data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": []interface{}{}})
			},
		},
		{
			name: "wrong dimensions",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"object": "list",
					"data":   []map[string]interface{}{{"embedding": []float32{1, 2, 3}, "index": 0}},
				})
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			e, err := NewServerExtractor(ServerConfig{Endpoint: srv.URL, Model: "m", Dimensions: 2})
			if err != nil {
				t.Fatalf("NewServerExtractor() error = %v", err)
			}
			if _, err := e.ExtractFeatures(context.Background(), "hello", DefaultExtractOptions()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestServerExtractorProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, err := NewServerExtractor(ServerConfig{Endpoint: srv.URL, Model: "m", Dimensions: 2})
	if err != nil {
		t.Fatalf("NewServerExtractor() error = %v", err)
	}
	if err := e.Probe(context.Background()); err == nil {
		t.Error("Probe() expected error from unavailable endpoint")
	}
}

func TestNewServerExtractorValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
	}{
		{name: "missing endpoint", cfg: ServerConfig{Model: "m", Dimensions: 2}},
		{name: "missing model", cfg: ServerConfig{Endpoint: "http://localhost:8080/v1", Dimensions: 2}},
		{name: "bad dimensions", cfg: ServerConfig{Endpoint: "http://localhost:8080/v1", Model: "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServerExtractor(tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error = %v, want *ConfigurationError", err)
			}
		})
	}
}

func TestNewServerExtractorMissingKey(t *testing.T) {
	t.Setenv("DOCDEX_TEST_EMPTY_KEY", "")
	_, err := NewServerExtractor(ServerConfig{
		Endpoint:   "http://localhost:8080/v1",
		Model:      "m",
		APIKeyEnv:  "DOCDEX_TEST_EMPTY_KEY",
		Dimensions: 2,
	})
	if err == nil {
		t.Fatal("expected error when the key env var is empty")
	}
}
