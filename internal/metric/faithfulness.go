package metric

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openshift/lightspeed-eval/internal/judge"
	"github.com/openshift/lightspeed-eval/internal/llm"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

// FaithfulnessName is the default metric name.
const FaithfulnessName = "Faithfulness"

// Faithfulness scores how well the actual output is grounded in the
// retrieval context: the share of its claims the context does not contradict.
type Faithfulness struct {
	judge     llm.Provider
	name      string
	model     string
	threshold float64
}

// FaithfulnessConfig configures a Faithfulness metric. Name defaults to
// FaithfulnessName and Model to the judge's default model.
type FaithfulnessConfig struct {
	Name      string
	Model     string
	Threshold float64
}

// NewFaithfulness creates a Faithfulness metric scored by provider.
func NewFaithfulness(provider llm.Provider, cfg FaithfulnessConfig) (*Faithfulness, error) {
	if provider == nil {
		return nil, fmt.Errorf("faithfulness: judge provider is required")
	}
	if err := validThreshold(cfg.Threshold); err != nil {
		return nil, fmt.Errorf("faithfulness: %w", err)
	}
	name := cfg.Name
	if name == "" {
		name = FaithfulnessName
	}
	return &Faithfulness{judge: provider, name: name, model: cfg.Model, threshold: cfg.Threshold}, nil
}

func (f *Faithfulness) Name() string       { return f.name }
func (f *Faithfulness) Threshold() float64 { return f.threshold }

func (f *Faithfulness) Measure(ctx context.Context, tc *types.TestCase) (*types.Verdict, error) {
	start := time.Now()
	if err := tc.Require(types.ParamActualOutput, types.ParamRetrievalContext); err != nil {
		return nil, err
	}

	p, err := judge.ClaimsPrompt(tc.ActualOutput)
	if err != nil {
		return nil, err
	}
	resp, err := ask(ctx, f.judge, f.model, p, 0)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	cost := resp.Cost

	claims, err := judge.ParseClaims(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}

	if len(claims.Claims) == 0 {
		v := types.NewVerdict(f.name, 1, f.threshold, "The output makes no factual claims to check.")
		v.Cost = cost
		v.DurationMS = time.Since(start).Milliseconds()
		return v, nil
	}

	p, err = judge.VerdictsPrompt(claims.Claims, tc.RetrievalContext)
	if err != nil {
		return nil, err
	}
	resp, err = ask(ctx, f.judge, f.model, p, 0)
	if err != nil {
		return nil, fmt.Errorf("check claims: %w", err)
	}
	cost += resp.Cost

	verdicts, err := judge.ParseVerdicts(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("check claims: %w", err)
	}
	if len(verdicts.Verdicts) != len(claims.Claims) {
		return nil, fmt.Errorf("check claims: judge returned %d verdicts for %d claims", len(verdicts.Verdicts), len(claims.Claims))
	}

	var contradicted []string
	for i, cv := range verdicts.Verdicts {
		if cv.Verdict == "no" {
			item := fmt.Sprintf("%q", claims.Claims[i])
			if cv.Reason != "" {
				item += " (" + cv.Reason + ")"
			}
			contradicted = append(contradicted, item)
		}
	}

	total := len(claims.Claims)
	score := float64(total-len(contradicted)) / float64(total)

	reason := fmt.Sprintf("All %d claims are consistent with the retrieval context.", total)
	if len(contradicted) > 0 {
		reason = fmt.Sprintf("%d of %d claims contradict the retrieval context: %s",
			len(contradicted), total, strings.Join(contradicted, "; "))
	}

	v := types.NewVerdict(f.name, score, f.threshold, reason)
	v.Cost = cost
	v.DurationMS = time.Since(start).Milliseconds()
	return v, nil
}
