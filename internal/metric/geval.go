package metric

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openshift/lightspeed-eval/internal/judge"
	"github.com/openshift/lightspeed-eval/internal/llm"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

const (
	gevalMaxScore       = 10.0
	gevalRunTemperature = 0.3
	// varianceThreshold is the normalised spread above which multi-run
	// scores are flagged.
	varianceThreshold = 0.2
)

// GEvalConfig configures a GEval metric.
type GEvalConfig struct {
	Name     string
	Criteria string
	// Steps are generated once from Criteria when empty.
	Steps     []string
	Params    []types.Param
	Threshold float64
	// Runs > 1 scores concurrently and keeps the median.
	Runs  int
	Model string
}

// GEval scores a test case against a natural-language criterion.
type GEval struct {
	judge llm.Provider
	cfg   GEvalConfig

	mu    sync.Mutex
	steps []string
}

// NewGEval creates a GEval metric scored by provider.
func NewGEval(provider llm.Provider, cfg GEvalConfig) (*GEval, error) {
	if provider == nil {
		return nil, errors.New("geval: judge provider is required")
	}
	if cfg.Name == "" {
		return nil, errors.New("geval: name is required")
	}
	if cfg.Criteria == "" && len(cfg.Steps) == 0 {
		return nil, fmt.Errorf("geval %q: criteria or steps are required", cfg.Name)
	}
	if len(cfg.Params) == 0 {
		return nil, fmt.Errorf("geval %q: at least one evaluation param is required", cfg.Name)
	}
	for _, p := range cfg.Params {
		if !p.Valid() {
			return nil, fmt.Errorf("geval %q: unknown evaluation param %q", cfg.Name, p)
		}
	}
	if err := validThreshold(cfg.Threshold); err != nil {
		return nil, fmt.Errorf("geval %q: %w", cfg.Name, err)
	}
	if cfg.Runs < 1 {
		cfg.Runs = 1
	}
	return &GEval{judge: provider, cfg: cfg, steps: cfg.Steps}, nil
}

func (g *GEval) Name() string       { return g.cfg.Name }
func (g *GEval) Threshold() float64 { return g.cfg.Threshold }

// Steps returns the evaluation steps, generating them on first use.
func (g *GEval) Steps(ctx context.Context) ([]string, float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.steps) > 0 {
		return g.steps, 0, nil
	}

	p, err := judge.StepsPrompt(g.cfg.Criteria, g.cfg.Params)
	if err != nil {
		return nil, 0, err
	}
	resp, err := ask(ctx, g.judge, g.cfg.Model, p, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("generate evaluation steps: %w", err)
	}
	steps, err := judge.ParseSteps(resp.Content)
	if err != nil {
		return nil, 0, fmt.Errorf("generate evaluation steps: %w", err)
	}
	g.steps = steps.Steps
	return g.steps, resp.Cost, nil
}

type gevalRun struct {
	score  float64
	reason string
	cost   float64
	err    error
}

func (g *GEval) Measure(ctx context.Context, tc *types.TestCase) (*types.Verdict, error) {
	start := time.Now()
	if err := tc.Require(g.cfg.Params...); err != nil {
		return nil, err
	}

	steps, cost, err := g.Steps(ctx)
	if err != nil {
		return nil, err
	}
	p, err := judge.ScorePrompt(g.cfg.Name, g.cfg.Criteria, steps, tc, g.cfg.Params)
	if err != nil {
		return nil, err
	}

	if g.cfg.Runs == 1 {
		r := g.score(ctx, p, 0, 0)
		if r.err != nil {
			return nil, r.err
		}
		v := types.NewVerdict(g.cfg.Name, r.score, g.cfg.Threshold, r.reason)
		v.Cost = cost + r.cost
		v.DurationMS = time.Since(start).Milliseconds()
		return v, nil
	}

	runs := make([]gevalRun, g.cfg.Runs)
	var wg sync.WaitGroup
	for i := range runs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			runs[idx] = g.score(ctx, p, gevalRunTemperature, idx+1)
		}(i)
	}
	wg.Wait()

	var scores []float64
	var reasons []string
	var firstErr error
	for i, r := range runs {
		cost += r.cost
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		scores = append(scores, r.score)
		reasons = append(reasons, fmt.Sprintf("Run %d: %s", i+1, r.reason))
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("all %d scoring runs failed: %w", g.cfg.Runs, firstErr)
	}

	score := median(scores)
	lo, hi := scores[0], scores[0]
	for _, s := range scores {
		lo, hi = min(lo, s), max(hi, s)
	}
	spread := hi - lo

	reason := strings.Join(reasons, " | ") + " | Median selected."
	if spread > varianceThreshold {
		reason += fmt.Sprintf(" [HIGH VARIANCE: spread=%.2f across %d runs]", spread, len(scores))
	}

	v := types.NewVerdict(g.cfg.Name, score, g.cfg.Threshold, reason)
	v.Cost = cost
	v.DurationMS = time.Since(start).Milliseconds()
	return v, nil
}

// score draws one judge score. Each run passes its own sample so cached
// replies stay distinct per run.
func (g *GEval) score(ctx context.Context, p *judge.Prompt, temperature float64, sample int) gevalRun {
	resp, err := askSample(ctx, g.judge, g.cfg.Model, p, temperature, sample)
	if err != nil {
		return gevalRun{err: err}
	}
	s, err := judge.ParseScore(resp.Content)
	if err != nil {
		return gevalRun{err: err, cost: resp.Cost}
	}
	return gevalRun{score: s.Score / gevalMaxScore, reason: s.Reason, cost: resp.Cost}
}
