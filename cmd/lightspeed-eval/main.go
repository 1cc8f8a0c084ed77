// Command lightspeed-eval runs response-quality evaluations against an
// OpenShift Lightspeed query service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

const (
	exitFailure = 1
	exitConfig  = 2
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := buildRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	os.Exit(exitFailure)
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	var logLevel string
	var logJSON bool

	rootCmd := &cobra.Command{
		Use:   "lightspeed-eval",
		Short: "Evaluate the response quality of an OpenShift Lightspeed deployment",
		Long: `lightspeed-eval asks a running query service a set of scenario questions and
scores each answer with pluggable metrics: an LLM judge (faithfulness, GEval),
embedding similarity and keyword checks.

The query service is configured with LS_QUERY_URL and LS_API_KEY. The judge
uses EVAL_OPENAI_API_KEY (or OPENAI_API_KEY).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides EVAL_LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")

	logOpts := func() logOptions { return logOptions{level: logLevel, json: logJSON} }
	rootCmd.AddCommand(
		buildRunCmd(logOpts),
		buildAskCmd(logOpts),
		buildHistoryCmd(logOpts),
		buildCacheCmd(logOpts),
		buildVersionCmd(),
	)
	return rootCmd
}
