// Package report renders scenario outcomes as JSON or Markdown.
package report

import (
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/openshift/lightspeed-eval/internal/scenario"
)

// Version is the JSON report format version.
const Version = "1.0"

type JSONReport struct {
	Version       string             `json:"version"`
	RunID         string             `json:"run_id,omitempty"`
	Timestamp     string             `json:"timestamp"`
	Outcomes      []scenario.Outcome `json:"outcomes"`
	Summary       Summary            `json:"summary"`
	TotalCost     float64            `json:"total_cost"`
	TotalDuration int64              `json:"total_duration_ms"`
}

// Summary counts scenarios by result.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// Summarize counts outcomes and sums their judge cost and duration.
func Summarize(outcomes []scenario.Outcome) (Summary, float64, int64) {
	s := Summary{Total: len(outcomes)}
	var cost float64
	var duration int64
	for i := range outcomes {
		o := &outcomes[i]
		duration += o.DurationMS
		if o.Result != nil {
			cost += o.Result.TotalCost
		}
		switch {
		case o.Passed():
			s.Passed++
		case o.Result == nil:
			// Never reached evaluation.
			s.Errored++
		default:
			s.Failed++
		}
	}
	return s, cost, duration
}

// GenerateJSON renders outcomes as an indented JSON document.
func GenerateJSON(runID string, outcomes []scenario.Outcome) ([]byte, error) {
	summary, cost, duration := Summarize(outcomes)
	if outcomes == nil {
		outcomes = []scenario.Outcome{}
	}
	report := JSONReport{
		Version:       Version,
		RunID:         runID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Outcomes:      outcomes,
		Summary:       summary,
		TotalCost:     cost,
		TotalDuration: duration,
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return output, nil
}
