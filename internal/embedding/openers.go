package embedding

import (
	"context"
	"fmt"

	"docdex/internal/config"
)

// NewIndexFromConfig wires an Index from backend configuration. With the
// auto provider the accelerated server backend is tried first and the
// local hashing model is the fallback; the server and local providers
// force a single backend.
func NewIndexFromConfig(cfg *config.BackendConfig) (*Index, error) {
	server := Opener{
		Name: "server",
		Open: func(ctx context.Context) (FeatureExtractor, error) {
			extractor, err := NewServerExtractor(ServerConfig{
				Endpoint:   cfg.Endpoint,
				Model:      cfg.Model,
				APIKeyEnv:  cfg.APIKeyEnv,
				Timeout:    cfg.RequestTimeout(),
				Dimensions: cfg.Dimensions,
			})
			if err != nil {
				return nil, err
			}
			if err := extractor.Probe(ctx); err != nil {
				extractor.Close()
				return nil, err
			}
			return extractor, nil
		},
	}
	local := Opener{
		Name: "local",
		Open: func(ctx context.Context) (FeatureExtractor, error) {
			return NewLocalExtractor(cfg.Dimensions)
		},
	}

	var openers []Opener
	switch cfg.Provider {
	case "", config.ProviderAuto:
		openers = []Opener{server, local}
	case config.ProviderServer:
		openers = []Opener{server}
	case config.ProviderLocal:
		openers = []Opener{local}
	default:
		return nil, fmt.Errorf("unsupported backend provider: %s", cfg.Provider)
	}

	return New(Options{
		Openers:         openers,
		DegradeToRandom: cfg.DegradeToRandom,
		FallbackDims:    cfg.Dimensions,
	}), nil
}
