// Package embedding turns text into vectors for similarity metrics.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Config holds configuration for creating an Embedder.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
}

// VectorStore persists vectors by content hash and model.
type VectorStore interface {
	// Get returns (nil, nil) on a miss.
	Get(contentHash, model string) ([]float32, error)
	Put(contentHash, model string, vector []float32) error
}

// ContentHash returns the SHA-256 hex digest of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cached wraps an Embedder with a VectorStore. Store failures are logged
// and never fail the embedding.
type Cached struct {
	inner Embedder
	store VectorStore
}

// NewCached returns inner unchanged when store is nil.
func NewCached(inner Embedder, store VectorStore) Embedder {
	if store == nil {
		return inner
	}
	return &Cached{inner: inner, store: store}
}

func (c *Cached) Model() string { return c.inner.Model() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	h := ContentHash(text)
	if vec, err := c.store.Get(h, c.inner.Model()); err == nil && vec != nil {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if putErr := c.store.Put(h, c.inner.Model(), vec); putErr != nil {
		slog.Error("embedding cache write error", "err", putErr)
	}
	return vec, nil
}
