package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
)

// CompletionStore persists judge replies by request key.
type CompletionStore interface {
	// Get returns ("", false, nil) on a miss.
	Get(key, model string) (string, bool, error)
	Put(key, model, content string) error
}

// CachedProvider serves repeated judge requests from a CompletionStore so
// that re-running an evaluation gives the same verdicts without new calls.
type CachedProvider struct {
	inner  Provider
	store  CompletionStore
	logger *slog.Logger
}

// NewCachedProvider wraps inner with store.
func NewCachedProvider(inner Provider, store CompletionStore, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{inner: inner, store: store, logger: logger}
}

func (c *CachedProvider) Name() string         { return c.inner.Name() }
func (c *CachedProvider) DefaultModel() string { return c.inner.DefaultModel() }

func (c *CachedProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.inner.DefaultModel()
	}
	key := RequestKey(req)

	if content, ok, err := c.store.Get(key, model); err != nil {
		c.logger.Warn("judge cache read error", "err", err)
	} else if ok {
		return &CompletionResponse{Content: content, Model: model}, nil
	}

	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if putErr := c.store.Put(key, model, resp.Content); putErr != nil {
		c.logger.Error("judge cache write error", "err", putErr)
	}
	return resp, nil
}

// RequestKey hashes every field of req that influences the reply.
func RequestKey(req *CompletionRequest) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(req.Model)
	write(req.SystemPrompt)
	for _, m := range req.Messages {
		write(m.Role)
		write(m.Content)
	}
	write(strconv.FormatFloat(req.Temperature, 'f', -1, 64))
	write(strconv.Itoa(req.MaxTokens))
	write(strconv.FormatBool(req.JSONMode))
	if req.Sample != 0 {
		write("sample=" + strconv.Itoa(req.Sample))
	}
	return hex.EncodeToString(h.Sum(nil))
}
