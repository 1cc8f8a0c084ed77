package metric_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/openshift/lightspeed-eval/internal/llm"
	"github.com/openshift/lightspeed-eval/internal/metric"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

func ptr(f float64) *float64 { return &f }

func TestRegistry_KeywordAlwaysAvailable(t *testing.T) {
	r := metric.NewRegistry()
	if !r.Has(metric.TypeKeyword) {
		t.Fatal("keyword should always be registered")
	}
	for _, typ := range []string{metric.TypeFaithfulness, metric.TypeGEval, metric.TypeAnswerSimilarity} {
		if r.Has(typ) {
			t.Errorf("%s should not be registered without its backing service", typ)
		}
	}

	m, err := r.Build(metric.Spec{Type: metric.TypeKeyword, Check: "contains", Value: "incident"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Threshold() != 1 {
		t.Errorf("default keyword threshold = %f, want 1", m.Threshold())
	}
}

func TestRegistry_MissingJudgeIsConfigurationError(t *testing.T) {
	r := metric.NewRegistry()
	_, err := r.Build(metric.Spec{Type: metric.TypeFaithfulness})

	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Setting != "judge" {
		t.Errorf("Setting = %q, want judge", cfgErr.Setting)
	}

	_, err = r.Build(metric.Spec{Type: metric.TypeAnswerSimilarity})
	if !errors.As(err, &cfgErr) || cfgErr.Setting != "embedding" {
		t.Errorf("expected embedding ConfigurationError, got %v", err)
	}
}

func TestRegistry_BuildsJudgeMetrics(t *testing.T) {
	r := metric.NewRegistry(
		metric.WithJudge(llm.NewMockProvider(nil, nil)),
		metric.WithEmbedding(&fakeEmbedder{}, nil),
	)

	f, err := r.Build(metric.Spec{Type: metric.TypeFaithfulness, Threshold: ptr(0.7)})
	if err != nil {
		t.Fatalf("Build faithfulness: %v", err)
	}
	if f.Name() != "Faithfulness" || f.Threshold() != 0.7 {
		t.Errorf("faithfulness = %s/%f", f.Name(), f.Threshold())
	}

	g, err := r.Build(metric.Spec{
		Type:     metric.TypeGEval,
		Name:     "Correctness",
		Criteria: "Determine if the 'actual output' is correct based on the 'expected output'.",
		Params:   []types.Param{types.ParamActualOutput, types.ParamExpectedOutput},
	})
	if err != nil {
		t.Fatalf("Build geval: %v", err)
	}
	if g.Threshold() != 0.5 {
		t.Errorf("default geval threshold = %f, want 0.5", g.Threshold())
	}

	s, err := r.Build(metric.Spec{Type: metric.TypeAnswerSimilarity, Threshold: ptr(0)})
	if err != nil {
		t.Fatalf("Build similarity: %v", err)
	}
	if s.Threshold() != 0 {
		t.Errorf("explicit zero threshold should be kept, got %f", s.Threshold())
	}
}

func TestRegistry_BuildAllAggregatesErrors(t *testing.T) {
	r := metric.NewRegistry()
	_, err := r.BuildAll([]metric.Spec{
		{Type: metric.TypeKeyword, Check: "contains", Value: "ok"},
		{Type: "bleu"},
		{Type: metric.TypeKeyword, Check: "nope"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"metric 1 (bleu)", "metric 2 (keyword)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}

	ms, err := r.BuildAll([]metric.Spec{{Type: metric.TypeKeyword, Check: "contains", Value: "ok"}})
	if err != nil || len(ms) != 1 {
		t.Errorf("BuildAll = %v, %v", ms, err)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := metric.NewRegistry()
	r.Register("custom", func(s metric.Spec) (metric.Metric, error) {
		return metric.NewKeyword(metric.KeywordConfig{Name: s.Name, Check: metric.CheckContains, Value: "x", Threshold: 1})
	})
	m, err := r.Build(metric.Spec{Type: "custom", Name: "mine"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Name() != "mine" {
		t.Errorf("Name = %q", m.Name())
	}
}
