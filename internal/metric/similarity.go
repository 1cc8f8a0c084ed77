package metric

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openshift/lightspeed-eval/internal/embedding"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

// AnswerSimilarityName is the default metric name.
const AnswerSimilarityName = "AnswerSimilarity"

// AnswerSimilarity scores the cosine similarity between the embeddings of
// the actual and expected outputs.
type AnswerSimilarity struct {
	embedder  embedding.Embedder
	name      string
	threshold float64
}

// NewAnswerSimilarity creates an AnswerSimilarity metric. An empty name
// selects AnswerSimilarityName.
func NewAnswerSimilarity(embedder embedding.Embedder, name string, threshold float64) (*AnswerSimilarity, error) {
	if embedder == nil {
		return nil, errors.New("answer similarity: embedder is required")
	}
	if err := validThreshold(threshold); err != nil {
		return nil, fmt.Errorf("answer similarity: %w", err)
	}
	if name == "" {
		name = AnswerSimilarityName
	}
	return &AnswerSimilarity{embedder: embedder, name: name, threshold: threshold}, nil
}

func (a *AnswerSimilarity) Name() string       { return a.name }
func (a *AnswerSimilarity) Threshold() float64 { return a.threshold }

func (a *AnswerSimilarity) Measure(ctx context.Context, tc *types.TestCase) (*types.Verdict, error) {
	start := time.Now()
	if err := tc.Require(types.ParamActualOutput, types.ParamExpectedOutput); err != nil {
		return nil, err
	}

	actual, err := a.embedder.Embed(ctx, tc.ActualOutput)
	if err != nil {
		return nil, fmt.Errorf("embed actual output: %w", err)
	}
	expected, err := a.embedder.Embed(ctx, tc.ExpectedOutput)
	if err != nil {
		return nil, fmt.Errorf("embed expected output: %w", err)
	}

	sim, err := embedding.CosineSimilarity(actual, expected)
	if err != nil {
		return nil, fmt.Errorf("cosine similarity: %w", err)
	}
	score := max(sim, 0)

	cmp := ">="
	if score < a.threshold {
		cmp = "<"
	}
	v := types.NewVerdict(a.name, score, a.threshold,
		fmt.Sprintf("cosine similarity %.4f %s threshold %.4f (%s)", sim, cmp, a.threshold, a.embedder.Model()))
	v.DurationMS = time.Since(start).Milliseconds()
	return v, nil
}
