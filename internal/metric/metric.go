// Package metric implements the scoring functions applied to a test case.
package metric

import (
	"context"
	"fmt"
	"sort"

	"github.com/openshift/lightspeed-eval/internal/judge"
	"github.com/openshift/lightspeed-eval/internal/llm"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

// Metric scores a test case. Measure returns an error only when no score
// could be produced; a low score is a normal Verdict.
type Metric interface {
	Name() string
	Threshold() float64
	Measure(ctx context.Context, tc *types.TestCase) (*types.Verdict, error)
}

const judgeMaxTokens = 1024

func validThreshold(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("threshold %.2f out of range [0, 1]", t)
	}
	return nil
}

// ask sends p to the judge in JSON mode.
func ask(ctx context.Context, provider llm.Provider, model string, p *judge.Prompt, temperature float64) (*llm.CompletionResponse, error) {
	return askSample(ctx, provider, model, p, temperature, 0)
}

// askSample is ask for the sample-th independent draw of p.
func askSample(ctx context.Context, provider llm.Provider, model string, p *judge.Prompt, temperature float64, sample int) (*llm.CompletionResponse, error) {
	if model == "" {
		model = provider.DefaultModel()
	}
	resp, err := provider.Complete(ctx, &llm.CompletionRequest{
		Model:        model,
		SystemPrompt: p.System,
		Messages:     []llm.Message{{Role: "user", Content: p.User}},
		Temperature:  temperature,
		MaxTokens:    judgeMaxTokens,
		JSONMode:     true,
		Sample:       sample,
	})
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}
	return resp, nil
}

func median(scores []float64) float64 {
	s := append([]float64(nil), scores...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
