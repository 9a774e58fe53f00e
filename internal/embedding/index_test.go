package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeExtractor records the texts and options it receives and returns a
// fixed unit vector.
type fakeExtractor struct {
	name  string
	dims  int
	fail  bool
	calls []string
	opts  []ExtractOptions
}

func (f *fakeExtractor) ExtractFeatures(ctx context.Context, text string, opts ExtractOptions) ([]float32, error) {
	if f.fail {
		return nil, errors.New("extraction failed")
	}
	f.calls = append(f.calls, text)
	f.opts = append(f.opts, opts)
	v := make([]float32, f.dims)
	v[0] = 1
	return v, nil
}

func (f *fakeExtractor) Dimensions() int { return f.dims }
func (f *fakeExtractor) Name() string    { return f.name }
func (f *fakeExtractor) Model() string   { return f.name + "-model" }
func (f *fakeExtractor) Close() error    { return nil }

func workingOpener(name string, fake *fakeExtractor) Opener {
	return Opener{Name: name, Open: func(ctx context.Context) (FeatureExtractor, error) {
		return fake, nil
	}}
}

func failingOpener(name string) Opener {
	return Opener{Name: name, Open: func(ctx context.Context) (FeatureExtractor, error) {
		return nil, fmt.Errorf("%s offline", name)
	}}
}

func TestIndexReadyFallsBack(t *testing.T) {
	fake := &fakeExtractor{name: "local", dims: 4}
	idx := New(Options{Openers: []Opener{failingOpener("server"), workingOpener("local", fake)}})

	if err := idx.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}

	name, ok := idx.Backend()
	if !ok || name != "local" {
		t.Errorf("Backend() = %q, %v, want local backend", name, ok)
	}
	if model := idx.Model(); model != "local-model" {
		t.Errorf("Model() = %q, want local-model", model)
	}
}

func TestIndexReadyPrefersFirstOpener(t *testing.T) {
	server := &fakeExtractor{name: "server", dims: 4}
	local := &fakeExtractor{name: "local", dims: 4}
	idx := New(Options{Openers: []Opener{workingOpener("server", server), workingOpener("local", local)}})

	if err := idx.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if name, _ := idx.Backend(); name != "server" {
		t.Errorf("Backend() = %q, want server", name)
	}
}

func TestIndexReadyAllFail(t *testing.T) {
	idx := New(Options{Openers: []Opener{failingOpener("server"), failingOpener("local")}})

	err := idx.Ready(context.Background())
	if err == nil {
		t.Fatal("expected error when every opener fails")
	}
	var initErr *InitializationError
	if !errors.As(err, &initErr) {
		t.Fatalf("error = %v, want *InitializationError", err)
	}
	if len(initErr.Causes) != 2 {
		t.Errorf("got %d causes, want 2", len(initErr.Causes))
	}
	if _, ok := idx.Backend(); ok {
		t.Error("index should stay uninitialized after failure")
	}
	if model := idx.Model(); model != "" {
		t.Errorf("Model() = %q, want empty while uninitialized", model)
	}
}

func TestIndexReadyRetriesAfterFailure(t *testing.T) {
	failing := true
	fake := &fakeExtractor{name: "flaky", dims: 4}
	opener := Opener{Name: "flaky", Open: func(ctx context.Context) (FeatureExtractor, error) {
		if failing {
			return nil, errors.New("backend offline")
		}
		return fake, nil
	}}
	idx := New(Options{Openers: []Opener{opener}})

	if err := idx.Ready(context.Background()); err == nil {
		t.Fatal("expected first Ready to fail")
	}

	failing = false
	if err := idx.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() after recovery error = %v", err)
	}
	if name, ok := idx.Backend(); !ok || name != "flaky" {
		t.Errorf("Backend() = %q, %v after recovery", name, ok)
	}
}

func TestIndexReadyIdempotent(t *testing.T) {
	var opens int32
	fake := &fakeExtractor{name: "counted", dims: 4}
	opener := Opener{Name: "counted", Open: func(ctx context.Context) (FeatureExtractor, error) {
		atomic.AddInt32(&opens, 1)
		return fake, nil
	}}
	idx := New(Options{Openers: []Opener{opener}})

	for i := 0; i < 3; i++ {
		if err := idx.Ready(context.Background()); err != nil {
			t.Fatalf("Ready() call %d error = %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&opens); got != 1 {
		t.Errorf("opener ran %d times, want 1", got)
	}
}

func TestIndexReadySingleFlight(t *testing.T) {
	var opens int32
	fake := &fakeExtractor{name: "slow", dims: 4}
	opener := Opener{Name: "slow", Open: func(ctx context.Context) (FeatureExtractor, error) {
		atomic.AddInt32(&opens, 1)
		time.Sleep(20 * time.Millisecond)
		return fake, nil
	}}
	idx := New(Options{Openers: []Opener{opener}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := idx.Ready(context.Background()); err != nil {
				t.Errorf("Ready() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&opens); got != 1 {
		t.Errorf("opener ran %d times under concurrent first use, want 1", got)
	}
}

func TestIndexGeneratePreprocessesInput(t *testing.T) {
	fake := &fakeExtractor{name: "fake", dims: 4}
	idx := New(Options{Openers: []Opener{workingOpener("fake", fake)}})

	if _, err := idx.Generate(context.Background(), "  Hello   World!!  "); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(fake.calls) != 1 || fake.calls[0] != "Hello World!!" {
		t.Errorf("backend received %v, want preprocessed text", fake.calls)
	}
	if len(fake.opts) != 1 || fake.opts[0].Pooling != PoolingMean || !fake.opts[0].Normalize {
		t.Errorf("backend received options %+v, want mean pooling with normalization", fake.opts)
	}
}

func TestIndexGenerateEmptyText(t *testing.T) {
	fake := &fakeExtractor{name: "fake", dims: 4}
	idx := New(Options{Openers: []Opener{workingOpener("fake", fake)}})

	if _, err := idx.Generate(context.Background(), "@@@"); err == nil {
		t.Fatal("expected error for text that preprocesses to empty")
	}
	if len(fake.calls) != 0 {
		t.Errorf("backend called %d times, want 0", len(fake.calls))
	}
}

func TestIndexGenerateSurfacesInitError(t *testing.T) {
	idx := New(Options{Openers: []Opener{failingOpener("server"), failingOpener("local")}})

	_, err := idx.Generate(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected error when no backend is available")
	}
	var initErr *InitializationError
	if !errors.As(err, &initErr) {
		t.Errorf("error = %v, want *InitializationError", err)
	}
}

func TestIndexGenerateDegradeToRandom(t *testing.T) {
	idx := New(Options{
		Openers:         []Opener{failingOpener("server"), failingOpener("local")},
		DegradeToRandom: true,
	})

	vec, err := idx.Generate(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Generate() error = %v, want degraded result", err)
	}
	if len(vec) != FallbackDimensions {
		t.Fatalf("vector length = %d, want %d", len(vec), FallbackDimensions)
	}
	for i, v := range vec {
		if v < -1 || v > 1 {
			t.Errorf("component %d = %v outside [-1, 1]", i, v)
		}
	}
}

func TestIndexGenerateDegradeOnExtractionFailure(t *testing.T) {
	fake := &fakeExtractor{name: "broken", dims: 8, fail: true}
	idx := New(Options{
		Openers:         []Opener{workingOpener("broken", fake)},
		DegradeToRandom: true,
	})

	vec, err := idx.Generate(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Generate() error = %v, want degraded result", err)
	}
	// The placeholder takes the backend's dimension once one is held.
	if len(vec) != 8 {
		t.Errorf("vector length = %d, want 8", len(vec))
	}
}

func TestIndexGenerateAll(t *testing.T) {
	fake := &fakeExtractor{name: "fake", dims: 4}
	idx := New(Options{Openers: []Opener{workingOpener("fake", fake)}})

	texts := []string{"first text", "second text", "third text"}
	vectors, err := idx.GenerateAll(context.Background(), texts)
	if err != nil {
		t.Fatalf("GenerateAll() error = %v", err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	want := []string{"first text", "second text", "third text"}
	for i, call := range fake.calls {
		if call != want[i] {
			t.Errorf("call %d = %q, want %q (order must be preserved)", i, call, want[i])
		}
	}
}

func TestIndexGenerateAllEmpty(t *testing.T) {
	idx := New(Options{Openers: []Opener{failingOpener("server")}})
	vectors, err := idx.GenerateAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateAll() error = %v", err)
	}
	if vectors != nil {
		t.Errorf("GenerateAll() = %v, want nil", vectors)
	}
}

func TestIndexDimensions(t *testing.T) {
	idx := New(Options{Openers: []Opener{failingOpener("server")}, FallbackDims: 42})
	if idx.Dimensions() != 42 {
		t.Errorf("Dimensions() = %d, want fallback 42", idx.Dimensions())
	}

	fake := &fakeExtractor{name: "fake", dims: 16}
	ready := New(Options{Openers: []Opener{workingOpener("fake", fake)}})
	if err := ready.Ready(context.Background()); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if ready.Dimensions() != 16 {
		t.Errorf("Dimensions() = %d, want 16", ready.Dimensions())
	}
}
