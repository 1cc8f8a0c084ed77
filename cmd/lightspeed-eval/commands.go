package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildRunCmd(logOpts func() logOptions) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run evaluation scenarios against the query service",
		Long: `Run evaluation scenarios against the query service.

Without --scenarios the built-in faithfulness and correctness scenarios run.
The exit code is 0 when every scenario passes, 1 when any scenario fails and
2 on configuration errors.`,
		Example: `  # Run the built-in scenarios
  lightspeed-eval run

  # Run one scenario from a file and write a Markdown summary
  lightspeed-eval run --scenarios scenarios.yaml --only correctness --report-md report.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, logOpts(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.scenarioFile, "scenarios", "f", "", "YAML scenario file (default: built-in scenarios)")
	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "Run only the named scenarios")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "Skip the remaining metrics of a scenario after the first failure")
	cmd.Flags().StringVar(&opts.reportJSON, "report-json", "", "Write a JSON report to this path")
	cmd.Flags().StringVar(&opts.reportMD, "report-md", "", "Write a Markdown report to this path")
	return cmd
}

func buildAskCmd(logOpts func() logOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [query]",
		Short: "Send one query to the query service and print the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, logOpts(), args[0])
		},
	}
}

func buildHistoryCmd(logOpts func() logOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded verdicts (requires EVAL_HISTORY_DB)",
	}
	cmd.AddCommand(buildHistoryRunsCmd(logOpts), buildHistoryStatsCmd(logOpts))
	return cmd
}

func buildHistoryRunsCmd(logOpts func() logOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent evaluation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryRuns(cmd, logOpts(), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs")
	return cmd
}

func buildHistoryStatsCmd(logOpts func() logOptions) *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:   "stats [scenario] [metric]",
		Short: "Show score statistics for one scenario metric",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryStats(cmd, logOpts(), args[0], args[1], window)
		},
	}
	cmd.Flags().IntVar(&window, "window", 10, "Number of recent scores to list")
	return cmd
}

func buildCacheCmd(logOpts func() logOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the judge and embedding cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache entry counts and size",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCacheStats(cmd, logOpts())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached judge reply and embedding",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCacheClear(cmd, logOpts())
			},
		},
	)
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lightspeed-eval %s\n", version)
		},
	}
}
