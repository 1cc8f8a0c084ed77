// Package evaltest runs live evaluations from go test. Live evaluations
// call the query service and the judge model, so they only run when the
// -eval flag is given:
//
//	go test ./internal/scenario -eval -num 3
package evaltest

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openshift/lightspeed-eval/internal/config"
	"github.com/openshift/lightspeed-eval/internal/harness"
	"github.com/openshift/lightspeed-eval/internal/metric"
	"github.com/openshift/lightspeed-eval/internal/stack"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

var runEvals = flag.Bool("eval", false, "Run live evaluations against the query service and judge")
var numEvals = flag.Int("num", 1, "Number of times to run each evaluation")

// EvalT carries the test handle and the wired stack into an evaluation.
type EvalT struct {
	*testing.T
	*stack.Stack
}

// NewStack wires a stack from the environment for live evaluations.
func NewStack() (*stack.Stack, error) {
	cfg := config.FromEnv()
	if cfg.Query.Credential == "" {
		return nil, &types.ConfigurationError{Setting: "LS_API_KEY", Message: "missing credential"}
	}
	if !cfg.JudgeEnabled() {
		return nil, errors.New("live evaluations need a judge: set EVAL_OPENAI_API_KEY")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return stack.New(cfg, logger)
}

// SkipWithoutEvalsFlag skips t unless -eval was given.
func SkipWithoutEvalsFlag(t *testing.T) {
	if !*runEvals {
		t.Skip("Skipping evals. Use -eval flag to run.")
	}
}

// Run runs f as subtest name, -num times, against a live stack.
func Run(t *testing.T, name string, f func(e *EvalT)) {
	SkipWithoutEvalsFlag(t)

	s, err := NewStack()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	t.Run(name, func(t *testing.T) {
		for range *numEvals {
			f(&EvalT{T: t, Stack: s})
		}
	})
}

// AssertTest evaluates tc with every metric and fails t with the full
// failure report when any metric misses its threshold.
func AssertTest(t testing.TB, tc *types.TestCase, metrics ...metric.Metric) *harness.Result {
	t.Helper()
	return AssertWith(t, harness.New(), tc, metrics...)
}

// AssertWith is AssertTest with a caller supplied harness.
func AssertWith(t testing.TB, h *harness.Harness, tc *types.TestCase, metrics ...metric.Metric) *harness.Result {
	t.Helper()
	res, err := h.Evaluate(context.Background(), tc, metrics)
	require.NoError(t, err, "evaluation of %q failed", tc.Name)
	return res
}
