package metric

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/openshift/lightspeed-eval/internal/embedding"
	"github.com/openshift/lightspeed-eval/internal/llm"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

// Metric types understood by the Registry.
const (
	TypeFaithfulness     = "faithfulness"
	TypeGEval            = "geval"
	TypeKeyword          = "keyword"
	TypeAnswerSimilarity = "answer_similarity"
)

// Default thresholds applied when a Spec leaves Threshold unset.
var defaultThresholds = map[string]float64{
	TypeFaithfulness:     0.5,
	TypeGEval:            0.5,
	TypeKeyword:          1.0,
	TypeAnswerSimilarity: 0.8,
}

// Spec is the declarative form of a metric, as found in scenario files.
type Spec struct {
	Type      string   `yaml:"type" json:"type"`
	Name      string   `yaml:"name,omitempty" json:"name,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// faithfulness, geval
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// geval
	Criteria string        `yaml:"criteria,omitempty" json:"criteria,omitempty"`
	Steps    []string      `yaml:"steps,omitempty" json:"steps,omitempty"`
	Params   []types.Param `yaml:"params,omitempty" json:"params,omitempty"`
	Runs     int           `yaml:"runs,omitempty" json:"runs,omitempty"`

	// keyword
	Check         string   `yaml:"check,omitempty" json:"check,omitempty"`
	Value         string   `yaml:"value,omitempty" json:"value,omitempty"`
	Values        []string `yaml:"values,omitempty" json:"values,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

func (s Spec) threshold() float64 {
	if s.Threshold != nil {
		return *s.Threshold
	}
	return defaultThresholds[s.Type]
}

// Factory builds a Metric from a Spec.
type Factory func(Spec) (Metric, error)

// Registry maps metric types to factories.
type Registry struct {
	factories map[string]Factory
}

type registryConfig struct {
	judge    llm.Provider
	embedder embedding.Embedder
}

// RegistryOption enables optional metric families.
type RegistryOption func(*registryConfig)

// WithJudge enables the judge-backed metrics (faithfulness, geval).
func WithJudge(provider llm.Provider) RegistryOption {
	return func(cfg *registryConfig) { cfg.judge = provider }
}

// WithEmbedding enables answer similarity. store may be nil to disable
// vector caching.
func WithEmbedding(embedder embedding.Embedder, store embedding.VectorStore) RegistryOption {
	return func(cfg *registryConfig) {
		if embedder != nil {
			cfg.embedder = embedding.NewCached(embedder, store)
		}
	}
}

// NewRegistry creates a registry. Keyword metrics are always available;
// the others are registered when the matching option is given.
func NewRegistry(opts ...RegistryOption) *Registry {
	var cfg registryConfig
	for _, o := range opts {
		o(&cfg)
	}

	r := &Registry{factories: make(map[string]Factory)}
	r.Register(TypeKeyword, func(s Spec) (Metric, error) {
		return NewKeyword(KeywordConfig{
			Name:          s.Name,
			Check:         s.Check,
			Value:         s.Value,
			Values:        s.Values,
			CaseSensitive: s.CaseSensitive,
			Threshold:     s.threshold(),
		})
	})

	if cfg.judge != nil {
		r.Register(TypeFaithfulness, func(s Spec) (Metric, error) {
			return NewFaithfulness(cfg.judge, FaithfulnessConfig{Name: s.Name, Model: s.Model, Threshold: s.threshold()})
		})
		r.Register(TypeGEval, func(s Spec) (Metric, error) {
			return NewGEval(cfg.judge, GEvalConfig{
				Name:      s.Name,
				Criteria:  s.Criteria,
				Steps:     s.Steps,
				Params:    s.Params,
				Threshold: s.threshold(),
				Runs:      s.Runs,
				Model:     s.Model,
			})
		})
	}
	if cfg.embedder != nil {
		r.Register(TypeAnswerSimilarity, func(s Spec) (Metric, error) {
			return NewAnswerSimilarity(cfg.embedder, s.Name, s.threshold())
		})
	}
	return r
}

// Register adds or replaces the factory for metricType.
func (r *Registry) Register(metricType string, f Factory) {
	r.factories[metricType] = f
}

// Has reports whether metricType can be built.
func (r *Registry) Has(metricType string) bool {
	_, ok := r.factories[metricType]
	return ok
}

// Build creates the metric described by s. Known types whose backing
// service is not configured yield a *types.ConfigurationError.
func (r *Registry) Build(s Spec) (Metric, error) {
	f, ok := r.factories[s.Type]
	if ok {
		return f(s)
	}
	switch s.Type {
	case TypeFaithfulness, TypeGEval:
		return nil, &types.ConfigurationError{Setting: "judge", Message: fmt.Sprintf("metric type %q needs a judge model; set EVAL_OPENAI_API_KEY", s.Type)}
	case TypeAnswerSimilarity:
		return nil, &types.ConfigurationError{Setting: "embedding", Message: fmt.Sprintf("metric type %q needs an embedding model; set EVAL_OPENAI_API_KEY", s.Type)}
	}
	return nil, fmt.Errorf("unknown metric type: %q", s.Type)
}

// BuildAll builds every spec and reports all failures together.
func (r *Registry) BuildAll(specs []Spec) ([]Metric, error) {
	metrics := make([]Metric, 0, len(specs))
	var errs *multierror.Error
	for i, s := range specs {
		m, err := r.Build(s)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("metric %d (%s): %w", i, s.Type, err))
			continue
		}
		metrics = append(metrics, m)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return metrics, nil
}
