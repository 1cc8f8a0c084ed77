package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openshift/lightspeed-eval/internal/scenario"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

const maxReasonLen = 100

// MarkdownReport holds data for a Markdown summary, e.g. a PR comment.
type MarkdownReport struct {
	Title    string
	RunID    string
	RunAt    time.Time
	Outcomes []scenario.Outcome
}

// GenerateMarkdown writes a Markdown-formatted report to w.
func GenerateMarkdown(w io.Writer, r *MarkdownReport) error {
	title := r.Title
	if title == "" {
		title = "Response Quality Report"
	}
	if _, err := fmt.Fprintf(w, "## %s\n\n", title); err != nil {
		return err
	}

	if !r.RunAt.IsZero() {
		if _, err := fmt.Fprintf(w, "**Run at:** %s\n\n", r.RunAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	if r.RunID != "" {
		if _, err := fmt.Fprintf(w, "**Run ID:** `%s`\n\n", r.RunID); err != nil {
			return err
		}
	}

	summary, cost, duration := Summarize(r.Outcomes)
	if _, err := fmt.Fprintf(w, "**Scenarios:** %d total, %d passed, %d failed, %d errored\n\n",
		summary.Total, summary.Passed, summary.Failed, summary.Errored); err != nil {
		return err
	}
	if cost > 0 {
		if _, err := fmt.Fprintf(w, "**Judge cost:** $%.6f\n\n", cost); err != nil {
			return err
		}
	}
	if duration > 0 {
		if _, err := fmt.Fprintf(w, "**Duration:** %dms\n\n", duration); err != nil {
			return err
		}
	}

	if len(r.Outcomes) == 0 {
		_, err := fmt.Fprintln(w, "_No scenarios evaluated._")
		return err
	}

	if _, err := fmt.Fprintln(w, "| Scenario | Metric | Status | Score | Threshold | Reason |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|----------|--------|--------|-------|-----------|--------|"); err != nil {
		return err
	}

	for _, o := range r.Outcomes {
		if o.Result == nil {
			if _, err := fmt.Fprintf(w, "| `%s` | | %s error | | | %s |\n",
				o.Scenario, statusIcon(types.StatusError), cell(o.Error)); err != nil {
				return err
			}
			continue
		}
		for _, v := range o.Result.Verdicts {
			if _, err := fmt.Fprintf(w, "| `%s` | %s | %s %s | %.3f | %.2f | %s |\n",
				o.Scenario, v.Metric, statusIcon(v.Status), v.Status, v.Score, v.Threshold, cell(v.Reason)); err != nil {
				return err
			}
		}
		for _, name := range o.Result.Skipped {
			if _, err := fmt.Fprintf(w, "| `%s` | %s | %s skipped | | | |\n",
				o.Scenario, name, statusIcon("")); err != nil {
				return err
			}
		}
	}
	return nil
}

// cell flattens s into a single table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxReasonLen {
		s = s[:maxReasonLen-3] + "..."
	}
	return s
}

func statusIcon(status string) string {
	switch status {
	case types.StatusPass:
		return ":white_check_mark:"
	case types.StatusFail:
		return ":x:"
	case types.StatusError:
		return ":warning:"
	default:
		return ":grey_question:"
	}
}
