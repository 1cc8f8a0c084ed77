// Package stack assembles the query client, judge, embedder, caches and
// metric registry described by a config.Config.
package stack

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/openshift/lightspeed-eval/internal/cache"
	"github.com/openshift/lightspeed-eval/internal/config"
	"github.com/openshift/lightspeed-eval/internal/embedding"
	"github.com/openshift/lightspeed-eval/internal/harness"
	"github.com/openshift/lightspeed-eval/internal/llm"
	"github.com/openshift/lightspeed-eval/internal/metric"
	"github.com/openshift/lightspeed-eval/internal/query"
)

// Stack holds the wired components of one evaluation run.
type Stack struct {
	Config   config.Config
	RunID    string
	Query    *query.Client
	Registry *metric.Registry

	// Judge and Embedder are nil when no judge credential is configured.
	Judge    llm.Provider
	Embedder embedding.Embedder

	// Cache and History are nil when disabled.
	Cache   *cache.Store
	History *cache.HistoryStore

	logger *slog.Logger
}

// Option customizes New.
type Option func(*options)

type options struct {
	judge    llm.Provider
	embedder embedding.Embedder
	queryOpt []query.Option
}

// WithJudgeProvider replaces the OpenAI judge, e.g. with a mock in tests.
func WithJudgeProvider(p llm.Provider) Option {
	return func(o *options) { o.judge = p }
}

// WithEmbedder replaces the OpenAI embedder.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithQueryOptions passes options to the query client.
func WithQueryOptions(opts ...query.Option) Option {
	return func(o *options) { o.queryOpt = append(o.queryOpt, opts...) }
}

// New wires every component of cfg. Close releases the SQLite handles.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Stack{
		Config: cfg,
		RunID:  uuid.NewString(),
		Query:  query.New(cfg.Query, append([]query.Option{query.WithLogger(logger)}, o.queryOpt...)...),
		logger: logger,
	}

	if !cfg.CacheDisabled {
		c, err := cache.Open(cfg.CachePath(), cache.DefaultMaxMB)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		s.Cache = c
	}
	if cfg.HistoryDB != "" {
		h, err := cache.OpenHistory(cfg.HistoryDB)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		s.History = h
	}

	judge, err := s.buildJudge(o.judge)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Judge = judge

	s.Embedder = o.embedder
	if s.Embedder == nil && cfg.JudgeEnabled() {
		e, err := embedding.NewOpenAIEmbedder(embedding.Config{
			Model:   cfg.EmbeddingModel,
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("embedder: %w", err)
		}
		s.Embedder = e
	}

	var regOpts []metric.RegistryOption
	if s.Judge != nil {
		regOpts = append(regOpts, metric.WithJudge(s.Judge))
	}
	if s.Embedder != nil {
		var store embedding.VectorStore
		if s.Cache != nil {
			store = s.Cache.Embeddings()
		}
		regOpts = append(regOpts, metric.WithEmbedding(s.Embedder, store))
	}
	s.Registry = metric.NewRegistry(regOpts...)

	logger.Debug("evaluation stack ready", "run_id", s.RunID, "endpoint", cfg.Query.Endpoint,
		"judge", s.Judge != nil, "cache", s.Cache != nil, "history", s.History != nil)
	return s, nil
}

// buildJudge layers cache over rate limiting over the base provider.
func (s *Stack) buildJudge(base llm.Provider) (llm.Provider, error) {
	cfg := s.Config
	if base == nil {
		if !cfg.JudgeEnabled() {
			return nil, nil
		}
		p, err := llm.NewOpenAIProviderWithClient(cfg.OpenAIAPIKey, cfg.JudgeModel, cfg.OpenAIBaseURL,
			&http.Client{Timeout: cfg.JudgeTimeout})
		if err != nil {
			return nil, fmt.Errorf("judge: %w", err)
		}
		base = p
	}

	rl := llm.DefaultRateLimiterConfig
	rl.RequestsPerMinute = cfg.JudgeRPM
	rl.MaxRetries = cfg.JudgeRetries
	limited, err := llm.NewRateLimitedProvider(base, rl)
	if err != nil {
		return nil, fmt.Errorf("judge rate limiter: %w", err)
	}

	if s.Cache == nil {
		return limited, nil
	}
	return llm.NewCachedProvider(limited, s.Cache.Judge(), s.logger), nil
}

// Harness returns a harness that records into History when enabled.
func (s *Stack) Harness(opts ...harness.Option) *harness.Harness {
	all := []harness.Option{harness.WithLogger(s.logger)}
	if s.History != nil {
		all = append(all, harness.WithRecorder(s.History, s.RunID))
	}
	return harness.New(append(all, opts...)...)
}

// Close releases the cache and history databases.
func (s *Stack) Close() error {
	var errs *multierror.Error
	if s.Cache != nil {
		errs = multierror.Append(errs, s.Cache.Close())
		s.Cache = nil
	}
	if s.History != nil {
		errs = multierror.Append(errs, s.History.Close())
		s.History = nil
	}
	return errs.ErrorOrNil()
}
