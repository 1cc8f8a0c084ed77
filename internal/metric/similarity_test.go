package metric_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openshift/lightspeed-eval/internal/metric"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (f *fakeEmbedder) Model() string { return "fake-embed" }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("no vector for " + text)
	}
	return v, nil
}

func TestAnswerSimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"same":     {1, 0},
		"close":    {0.9, 0.1},
		"opposite": {-1, 0},
	}}

	tests := []struct {
		actual   string
		minScore float64
		maxScore float64
		pass     bool
	}{
		{"same", 1 - 1e-6, 1 + 1e-6, true},
		{"close", 0.99, 1, true},
		{"opposite", 0, 0, false},
	}
	m, err := metric.NewAnswerSimilarity(emb, "", 0.8)
	if err != nil {
		t.Fatalf("NewAnswerSimilarity: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.actual, func(t *testing.T) {
			v, err := m.Measure(context.Background(), &types.TestCase{ActualOutput: tt.actual, ExpectedOutput: "same"})
			if err != nil {
				t.Fatalf("Measure: %v", err)
			}
			if v.Score < tt.minScore || v.Score > tt.maxScore || v.Success != tt.pass {
				t.Errorf("score=%f success=%v", v.Score, v.Success)
			}
			if !strings.Contains(v.Reason, "fake-embed") {
				t.Errorf("reason should name the model: %s", v.Reason)
			}
		})
	}
	if m.Name() != metric.AnswerSimilarityName {
		t.Errorf("Name = %q", m.Name())
	}
}

func TestAnswerSimilarity_Errors(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("quota exceeded")}
	m, err := metric.NewAnswerSimilarity(emb, "sim", 0.8)
	if err != nil {
		t.Fatalf("NewAnswerSimilarity: %v", err)
	}

	if _, err := m.Measure(context.Background(), &types.TestCase{ActualOutput: "a"}); err == nil {
		t.Error("expected error for missing expected output")
	}
	if emb.calls != 0 {
		t.Error("embedder should not be called for an invalid case")
	}
	if _, err := m.Measure(context.Background(), &types.TestCase{ActualOutput: "a", ExpectedOutput: "b"}); err == nil {
		t.Error("expected embedder error to surface")
	}

	if _, err := metric.NewAnswerSimilarity(nil, "", 0.5); err == nil {
		t.Error("expected error without embedder")
	}
}
