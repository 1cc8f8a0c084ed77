package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openshift/lightspeed-eval/internal/harness"
	"github.com/openshift/lightspeed-eval/internal/metric"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

// Asker answers a query. *query.Client implements it.
type Asker interface {
	Ask(ctx context.Context, query string) (string, error)
}

// Outcome is the result of running one scenario. Result is nil when the
// scenario failed before evaluation.
type Outcome struct {
	Scenario   string          `json:"scenario"`
	Result     *harness.Result `json:"result,omitempty"`
	Err        error           `json:"-"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// Passed reports whether the scenario ran and every metric passed.
func (o *Outcome) Passed() bool {
	return o.Err == nil && o.Result != nil && o.Result.Passed
}

// ConfigError reports whether the scenario failed on configuration.
func (o *Outcome) ConfigError() bool {
	var cfgErr *types.ConfigurationError
	return errors.As(o.Err, &cfgErr)
}

// Runner runs scenarios against a query service.
type Runner struct {
	asker    Asker
	registry *metric.Registry
	harness  *harness.Harness
	logger   *slog.Logger
}

// NewRunner creates a Runner. A nil harness selects harness.New().
func NewRunner(asker Asker, registry *metric.Registry, h *harness.Harness, logger *slog.Logger) *Runner {
	if h == nil {
		h = harness.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{asker: asker, registry: registry, harness: h, logger: logger}
}

// Run builds the scenario's metrics, asks its query and evaluates the
// answer. Metrics are built first so configuration problems surface
// before any network call.
func (r *Runner) Run(ctx context.Context, s Scenario) (*harness.Result, error) {
	metrics, err := r.registry.BuildAll(s.Metrics)
	if err != nil {
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &types.ConfigurationError{Setting: "metrics", Message: fmt.Sprintf("scenario %q: %v", s.Name, err)}
	}

	answer, err := r.asker.Ask(ctx, s.Query)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	r.logger.Debug("query answered", "scenario", s.Name, "chars", len(answer))

	return r.harness.Evaluate(ctx, s.TestCase(answer), metrics)
}

// RunAll runs every scenario in order. A failing scenario never stops the
// others.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) []Outcome {
	outcomes := make([]Outcome, 0, len(scenarios))
	for _, s := range scenarios {
		start := time.Now()
		res, err := r.Run(ctx, s)
		o := Outcome{Scenario: s.Name, Result: res, Err: err, DurationMS: time.Since(start).Milliseconds()}
		if err != nil {
			o.Error = err.Error()
			r.logger.Info("scenario failed", "scenario", s.Name, "err", err)
		} else {
			r.logger.Info("scenario passed", "scenario", s.Name, "duration_ms", o.DurationMS)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}
