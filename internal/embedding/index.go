package embedding

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FallbackDimensions is the vector size assumed when no backend is
// available to report one, matching all-MiniLM-class sentence models.
const FallbackDimensions = 384

// Options configure an Index.
type Options struct {
	// Openers are tried in order on first use, typically the
	// accelerated server backend first and the local fallback second.
	Openers []Opener

	// DegradeToRandom restores the legacy failure policy: instead of
	// returning an error when initialization or extraction fails,
	// Generate logs the failure and substitutes a pseudo-random vector
	// with components uniform in [-1, 1]. Off by default, because the
	// substituted vectors turn downstream similarity scores into noise.
	DegradeToRandom bool

	// FallbackDims sizes substituted vectors when no backend reported a
	// dimension. Defaults to FallbackDimensions.
	FallbackDims int
}

// Index owns embedding backend initialization and generation. Construct
// with New; the zero value has no openers and can never initialize.
type Index struct {
	openers      []Opener
	degrade      bool
	fallbackDims int

	group singleflight.Group

	mu      sync.RWMutex
	backend FeatureExtractor
}

// New creates an Index with explicit backend wiring.
func New(opts Options) *Index {
	dims := opts.FallbackDims
	if dims <= 0 {
		dims = FallbackDimensions
	}
	return &Index{
		openers:      opts.Openers,
		degrade:      opts.DegradeToRandom,
		fallbackDims: dims,
	}
}

// Ready ensures a backend is initialized. It is idempotent: once a
// backend is held it returns immediately, and concurrent first calls
// share a single acquisition attempt. When every opener fails, the
// returned *InitializationError carries all causes and the index stays
// uninitialized so a later call retries.
func (x *Index) Ready(ctx context.Context) error {
	x.mu.RLock()
	initialized := x.backend != nil
	x.mu.RUnlock()
	if initialized {
		return nil
	}

	_, err, _ := x.group.Do("init", func() (interface{}, error) {
		x.mu.RLock()
		already := x.backend != nil
		x.mu.RUnlock()
		if already {
			return nil, nil
		}

		if len(x.openers) == 0 {
			return nil, &InitializationError{}
		}

		var causes []error
		for _, opener := range x.openers {
			backend, err := opener.Open(ctx)
			if err != nil {
				log.Printf("embedding backend %s unavailable: %v", opener.Name, err)
				causes = append(causes, fmt.Errorf("%s: %w", opener.Name, err))
				continue
			}
			x.mu.Lock()
			x.backend = backend
			x.mu.Unlock()
			log.Printf("embedding backend ready: %s (%d dimensions)", backend.Name(), backend.Dimensions())
			return nil, nil
		}
		return nil, &InitializationError{Causes: causes}
	})
	return err
}

// Backend reports the active backend name, with ok=false while the
// index has not initialized.
func (x *Index) Backend() (name string, ok bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.backend == nil {
		return "", false
	}
	return x.backend.Name(), true
}

// Model returns the active backend's model label, or empty while the
// index has not initialized.
func (x *Index) Model() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.backend == nil {
		return ""
	}
	return x.backend.Model()
}

// Dimensions returns the active backend's vector size, or the fallback
// dimension while uninitialized.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.backend == nil {
		return x.fallbackDims
	}
	return x.backend.Dimensions()
}

// Generate embeds a single text: it ensures the backend is ready,
// preprocesses the input, and requests mean-pooled, L2-normalized
// features. Failures return an error unless the index was constructed
// with DegradeToRandom, in which case a placeholder vector is
// substituted and the failure is only logged.
func (x *Index) Generate(ctx context.Context, text string) ([]float32, error) {
	vector, err := x.generate(ctx, text)
	if err != nil {
		if !x.degrade {
			return nil, err
		}
		log.Printf("embedding generation failed, substituting random vector: %v", err)
		return randomVector(x.Dimensions()), nil
	}
	return vector, nil
}

func (x *Index) generate(ctx context.Context, text string) ([]float32, error) {
	if err := x.Ready(ctx); err != nil {
		return nil, err
	}

	cleaned := Preprocess(text)
	if cleaned == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	x.mu.RLock()
	backend := x.backend
	x.mu.RUnlock()

	vector, err := backend.ExtractFeatures(ctx, cleaned, DefaultExtractOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", backend.Name(), err)
	}
	return vector, nil
}

// GenerateAll embeds each text strictly sequentially, preserving order,
// and returns one vector per input. Only the first element can trigger
// lazy initialization.
func (x *Index) GenerateAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := x.Generate(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// Close releases the backend, if one was acquired.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.backend == nil {
		return nil
	}
	err := x.backend.Close()
	x.backend = nil
	return err
}

// randomVector fills a placeholder embedding with components uniform in
// [-1, 1].
func randomVector(dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = float32(rand.Float64()*2 - 1)
	}
	return v
}
