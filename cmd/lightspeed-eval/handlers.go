package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openshift/lightspeed-eval/internal/cache"
	"github.com/openshift/lightspeed-eval/internal/config"
	"github.com/openshift/lightspeed-eval/internal/harness"
	"github.com/openshift/lightspeed-eval/internal/report"
	"github.com/openshift/lightspeed-eval/internal/scenario"
	"github.com/openshift/lightspeed-eval/internal/stack"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

type logOptions struct {
	level string
	json  bool
}

type runOptions struct {
	scenarioFile string
	only         []string
	failFast     bool
	reportJSON   string
	reportMD     string
}

// setup reads the environment config and builds the logger.
func setup(cmd *cobra.Command, lo logOptions) (config.Config, *slog.Logger, error) {
	cfg := config.FromEnv()
	if lo.level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(lo.level)); err != nil {
			return cfg, nil, configError(&types.ConfigurationError{Setting: "log-level", Message: err.Error()})
		}
	}
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	if lo.json {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	}
	return cfg, slog.New(handler), nil
}

// configError marks err for exit code 2.
func configError(err error) error {
	return &exitError{code: exitConfig, err: err}
}

// runEval handles the run command.
func runEval(cmd *cobra.Command, lo logOptions, opts runOptions) error {
	cfg, logger, err := setup(cmd, lo)
	if err != nil {
		return err
	}

	all := scenario.Canonical()
	if opts.scenarioFile != "" {
		if all, err = scenario.Load(opts.scenarioFile); err != nil {
			return configError(err)
		}
	}
	selected, err := scenario.Select(all, opts.only)
	if err != nil {
		return configError(err)
	}

	s, err := stack.New(cfg, logger)
	if err != nil {
		return configError(err)
	}
	defer s.Close()

	var hopts []harness.Option
	if opts.failFast {
		hopts = append(hopts, harness.WithFailFast())
	}
	runner := scenario.NewRunner(s.Query, s.Registry, s.Harness(hopts...), logger)

	logger.Info("starting evaluation", "run_id", s.RunID, "scenarios", len(selected), "endpoint", s.Query.Endpoint())
	start := time.Now()
	outcomes := runner.RunAll(cmd.Context(), selected)

	out := cmd.OutOrStdout()
	printOutcomes(out, outcomes)
	summary, cost, _ := report.Summarize(outcomes)
	fmt.Fprintf(out, "\n%d scenarios: %d passed, %d failed, %d errored (judge cost $%.4f, %s)\n",
		summary.Total, summary.Passed, summary.Failed, summary.Errored, cost, time.Since(start).Round(time.Millisecond))

	if err := writeReports(s.RunID, outcomes, opts); err != nil {
		return err
	}

	for i := range outcomes {
		if outcomes[i].ConfigError() {
			return configError(fmt.Errorf("scenario %q: %w", outcomes[i].Scenario, outcomes[i].Err))
		}
	}
	if summary.Passed != summary.Total {
		return &exitError{code: exitFailure, err: fmt.Errorf("%d of %d scenarios did not pass", summary.Total-summary.Passed, summary.Total)}
	}
	return nil
}

func printOutcomes(w io.Writer, outcomes []scenario.Outcome) {
	for _, o := range outcomes {
		status := "PASS"
		if !o.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %s (%dms)\n", status, o.Scenario, o.DurationMS)
		if o.Result == nil {
			fmt.Fprintf(w, "      error: %s\n", o.Error)
			continue
		}
		for _, v := range o.Result.Verdicts {
			fmt.Fprintf(w, "      %-24s %-5s score=%.2f threshold=%.2f\n", v.Metric, v.Status, v.Score, v.Threshold)
			if !v.Success && v.Reason != "" {
				fmt.Fprintf(w, "        %s\n", strings.ReplaceAll(v.Reason, "\n", "\n        "))
			}
		}
		for _, name := range o.Result.Skipped {
			fmt.Fprintf(w, "      %-24s skipped\n", name)
		}
	}
}

func writeReports(runID string, outcomes []scenario.Outcome, opts runOptions) error {
	if opts.reportJSON != "" {
		data, err := report.GenerateJSON(runID, outcomes)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.reportJSON, data, 0o644); err != nil {
			return fmt.Errorf("write JSON report: %w", err)
		}
	}
	if opts.reportMD != "" {
		f, err := os.Create(opts.reportMD)
		if err != nil {
			return fmt.Errorf("write Markdown report: %w", err)
		}
		err = report.GenerateMarkdown(f, &report.MarkdownReport{RunID: runID, RunAt: time.Now(), Outcomes: outcomes})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write Markdown report: %w", err)
		}
	}
	return nil
}

// runAsk handles the ask command.
func runAsk(cmd *cobra.Command, lo logOptions, q string) error {
	cfg, logger, err := setup(cmd, lo)
	if err != nil {
		return err
	}
	cfg.CacheDisabled = true
	cfg.HistoryDB = ""
	cfg.OpenAIAPIKey = ""

	s, err := stack.New(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	answer, err := s.Query.Ask(cmd.Context(), q)
	if err != nil {
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			return configError(err)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

func openHistory(cmd *cobra.Command, lo logOptions) (*cache.HistoryStore, error) {
	cfg, _, err := setup(cmd, lo)
	if err != nil {
		return nil, err
	}
	if cfg.HistoryDB == "" {
		return nil, configError(&types.ConfigurationError{Setting: "EVAL_HISTORY_DB", Message: "no history database configured"})
	}
	return cache.OpenHistory(cfg.HistoryDB)
}

// runHistoryRuns handles the history runs command.
func runHistoryRuns(cmd *cobra.Command, lo logOptions, limit int) error {
	h, err := openHistory(cmd, lo)
	if err != nil {
		return err
	}
	defer h.Close()

	runs, err := h.Runs(limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %d verdicts, %d failed\n", r.ID, r.StartedAt.Format(time.RFC3339), r.Verdicts, r.Failed)
	}
	return nil
}

// runHistoryStats handles the history stats command.
func runHistoryStats(cmd *cobra.Command, lo logOptions, scenarioName, metricName string, window int) error {
	h, err := openHistory(cmd, lo)
	if err != nil {
		return err
	}
	defer h.Close()

	mean, stddev, count, err := h.Stats(scenarioName, metricName)
	if err != nil {
		return fmt.Errorf("history stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if count == 0 {
		fmt.Fprintf(out, "No verdicts recorded for %s/%s.\n", scenarioName, metricName)
		return nil
	}
	recent, err := h.QueryWindow(scenarioName, metricName, window)
	if err != nil {
		return fmt.Errorf("history window: %w", err)
	}

	fmt.Fprintf(out, "%s/%s: %d verdicts, mean %.3f, stddev %.3f\n", scenarioName, metricName, count, mean, stddev)
	scores := make([]string, len(recent))
	for i, s := range recent {
		scores[i] = fmt.Sprintf("%.2f", s)
	}
	fmt.Fprintf(out, "recent (newest first): %s\n", strings.Join(scores, " "))
	return nil
}

func openCache(cmd *cobra.Command, lo logOptions) (*cache.Store, error) {
	cfg, _, err := setup(cmd, lo)
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.CachePath(), cache.DefaultMaxMB)
}

// runCacheStats handles the cache stats command.
func runCacheStats(cmd *cobra.Command, lo logOptions) error {
	c, err := openCache(cmd, lo)
	if err != nil {
		return err
	}
	defer c.Close()

	st, err := c.Stats()
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "embeddings: %d\njudge replies: %d\nsize: %d bytes\n", st.Embeddings, st.JudgeReplies, st.TotalBytes)
	return nil
}

// runCacheClear handles the cache clear command.
func runCacheClear(cmd *cobra.Command, lo logOptions) error {
	c, err := openCache(cmd, lo)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}
