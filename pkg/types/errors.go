package types

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a required setting that is missing or invalid.
// It is raised before any network activity.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Message)
}

// RequestError reports a failed call to the query service: a transport
// error, a non-2xx status or a malformed body.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "query request to %s failed", e.Endpoint)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, " (body: %s)", e.Body)
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

// EvaluationFailure reports every verdict of a test case that did not meet
// its threshold.
type EvaluationFailure struct {
	Case     string
	Failures []Verdict
}

func (e *EvaluationFailure) Error() string {
	lines := make([]string, 0, len(e.Failures))
	for _, v := range e.Failures {
		line := fmt.Sprintf("metric %s (score: %.2f, threshold: %.2f, status: %s)", v.Metric, v.Score, v.Threshold, v.Status)
		if v.Reason != "" {
			line += ": " + v.Reason
		}
		lines = append(lines, line)
	}
	name := e.Case
	if name == "" {
		name = "test case"
	}
	return fmt.Sprintf("%s failed %d metric(s):\n  %s", name, len(e.Failures), strings.Join(lines, "\n  "))
}

// Failed reports whether the named metric is among the failures.
func (e *EvaluationFailure) Failed(metric string) bool {
	for _, v := range e.Failures {
		if v.Metric == metric {
			return true
		}
	}
	return false
}
