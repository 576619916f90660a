// Package embedder defines the text-to-vector contract and a caching
// wrapper. The embedding model is opaque to the engine: a nil provider
// (or a provider error) degrades semantic scoring to keyword-only, it
// never blocks retrieval.
package embedder

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Embedder converts text to an embedding vector.
// Implementations: mock.Embedder (testing), onnx.Embedder (local,
// build-tagged), or an API-backed provider supplied by the host.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Cached wraps an Embedder with a ristretto cache so that repeated
// retrievals over the same trailing window (and re-scoring of unchanged
// summaries) do not re-invoke the model.
type Cached struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCached creates a caching wrapper. maxEntries bounds the number of
// cached vectors; cost is per-entry.
func NewCached(inner Embedder, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, computing and caching it on
// a miss.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if emb, ok := v.([]float32); ok {
			return emb, nil
		}
	}
	emb, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, emb, 1)
	return emb, nil
}

// Dimensions returns the wrapped embedder's vector size.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// Close releases cache resources.
func (c *Cached) Close() {
	c.cache.Close()
}
