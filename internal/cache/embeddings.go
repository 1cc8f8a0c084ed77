package cache

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// EmbeddingCache stores embedding vectors keyed by content hash and model.
type EmbeddingCache struct {
	s *Store
}

// Get returns the cached vector, or (nil, nil) on a miss.
func (c *EmbeddingCache) Get(contentHash, model string) ([]float32, error) {
	var blob []byte
	err := c.s.db.QueryRow(
		`SELECT vector FROM embeddings WHERE content_hash = ? AND model = ?`,
		contentHash, model,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	c.s.touch("embeddings", contentHash, model)
	return blobToVector(blob)
}

// Put stores vector and evicts old entries when the store is over size.
func (c *EmbeddingCache) Put(contentHash, model string, vector []float32) error {
	now := time.Now().UnixNano()
	if _, err := c.s.db.Exec(
		`INSERT INTO embeddings(content_hash, model, vector, created_at, accessed_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash, model) DO UPDATE SET vector=excluded.vector, accessed_at=excluded.accessed_at`,
		contentHash, model, vectorToBlob(vector), now, now,
	); err != nil {
		return fmt.Errorf("put embedding: %w", err)
	}
	return c.s.evict("embeddings", "LENGTH(vector)")
}

// vectorToBlob encodes v as little-endian float32s.
func vectorToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
