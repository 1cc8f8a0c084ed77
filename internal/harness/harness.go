// Package harness runs metrics against a test case and decides pass or fail.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/openshift/lightspeed-eval/internal/metric"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

// ErrNoMetrics is returned when Evaluate is given no metrics.
var ErrNoMetrics = errors.New("no metrics to evaluate")

// Result is the outcome of evaluating one test case.
type Result struct {
	Case         string          `json:"case"`
	Input        string          `json:"input"`
	ActualOutput string          `json:"actual_output"`
	Verdicts     []types.Verdict `json:"verdicts"`
	// Skipped lists metrics not run because of fail-fast.
	Skipped    []string `json:"skipped,omitempty"`
	Passed     bool     `json:"passed"`
	TotalCost  float64  `json:"total_cost"`
	DurationMS int64    `json:"duration_ms"`
}

// Failures returns the verdicts that did not succeed.
func (r *Result) Failures() []types.Verdict {
	var out []types.Verdict
	for _, v := range r.Verdicts {
		if !v.Success {
			out = append(out, v)
		}
	}
	return out
}

// Recorder persists verdicts, e.g. to a history store.
type Recorder interface {
	Record(runID, scenario string, v types.Verdict) error
}

// Harness evaluates test cases. The zero value is not usable; use New.
type Harness struct {
	failFast bool
	recorder Recorder
	runID    string
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithFailFast stops at the first failing metric. By default every metric
// runs so the report shows every failing criterion.
func WithFailFast() Option {
	return func(h *Harness) { h.failFast = true }
}

// WithRecorder sends every verdict to r under runID.
func WithRecorder(r Recorder, runID string) Option {
	return func(h *Harness) {
		h.recorder = r
		h.runID = runID
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Evaluate runs metrics in order against tc with a default Harness.
func Evaluate(ctx context.Context, tc *types.TestCase, metrics []metric.Metric) (*Result, error) {
	return New().Evaluate(ctx, tc, metrics)
}

// Evaluate runs metrics in order against tc. A metric that fails to score
// yields an error verdict. When any verdict fails, the Result is returned
// together with a *types.EvaluationFailure.
func (h *Harness) Evaluate(ctx context.Context, tc *types.TestCase, metrics []metric.Metric) (*Result, error) {
	if tc == nil {
		return nil, errors.New("nil test case")
	}
	if len(metrics) == 0 {
		return nil, ErrNoMetrics
	}

	start := time.Now()
	res := &Result{
		Case:         tc.Name,
		Input:        tc.Input,
		ActualOutput: tc.ActualOutput,
		Verdicts:     make([]types.Verdict, 0, len(metrics)),
	}

	var metricErrs *multierror.Error
	for i, m := range metrics {
		v, err := h.measure(ctx, m, tc)
		if err != nil {
			metricErrs = multierror.Append(metricErrs, fmt.Errorf("%s: %w", m.Name(), err))
		}
		res.Verdicts = append(res.Verdicts, *v)
		res.TotalCost += v.Cost

		if h.recorder != nil {
			if recErr := h.recorder.Record(h.runID, tc.Name, *v); recErr != nil {
				h.logger.Error("record verdict", "case", tc.Name, "metric", v.Metric, "err", recErr)
			}
		}

		if h.failFast && !v.Success {
			for _, rest := range metrics[i+1:] {
				res.Skipped = append(res.Skipped, rest.Name())
			}
			break
		}
	}
	if err := metricErrs.ErrorOrNil(); err != nil {
		h.logger.Warn("metrics could not score", "case", tc.Name, "err", err)
	}

	res.DurationMS = time.Since(start).Milliseconds()
	failures := res.Failures()
	res.Passed = len(failures) == 0

	for _, v := range res.Verdicts {
		h.logger.Debug("verdict", "case", tc.Name, "metric", v.Metric, "status", v.Status,
			"score", v.Score, "threshold", v.Threshold)
	}

	if !res.Passed {
		return res, &types.EvaluationFailure{Case: tc.Name, Failures: failures}
	}
	return res, nil
}

// measure never returns a nil verdict.
func (h *Harness) measure(ctx context.Context, m metric.Metric, tc *types.TestCase) (*types.Verdict, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return types.ErrorVerdict(m.Name(), m.Threshold(), err.Error()), err
	}

	v, err := m.Measure(ctx, tc)
	if err == nil && v == nil {
		err = errors.New("metric returned no verdict")
	}
	if err != nil {
		ev := types.ErrorVerdict(m.Name(), m.Threshold(), err.Error())
		ev.DurationMS = time.Since(start).Milliseconds()
		return ev, err
	}
	return v, nil
}
