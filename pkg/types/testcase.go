package types

import (
	"fmt"
	"strings"
)

// Param names a TestCase field that a metric may read.
type Param string

const (
	ParamInput            Param = "input"
	ParamActualOutput     Param = "actual_output"
	ParamExpectedOutput   Param = "expected_output"
	ParamContext          Param = "context"
	ParamRetrievalContext Param = "retrieval_context"
)

// Valid reports whether p is one of the known params.
func (p Param) Valid() bool {
	switch p {
	case ParamInput, ParamActualOutput, ParamExpectedOutput, ParamContext, ParamRetrievalContext:
		return true
	}
	return false
}

// Title returns the human-readable label used in judge prompts.
func (p Param) Title() string {
	switch p {
	case ParamInput:
		return "Input"
	case ParamActualOutput:
		return "Actual Output"
	case ParamExpectedOutput:
		return "Expected Output"
	case ParamContext:
		return "Context"
	case ParamRetrievalContext:
		return "Retrieval Context"
	}
	return string(p)
}

// TestCase is a single query/answer pair under evaluation. It is built once
// per run and must not be modified by metrics.
type TestCase struct {
	Name             string   `json:"name,omitempty" yaml:"name,omitempty"`
	Input            string   `json:"input" yaml:"input"`
	ActualOutput     string   `json:"actual_output" yaml:"actual_output"`
	ExpectedOutput   string   `json:"expected_output,omitempty" yaml:"expected_output,omitempty"`
	Context          []string `json:"context,omitempty" yaml:"context,omitempty"`
	RetrievalContext []string `json:"retrieval_context,omitempty" yaml:"retrieval_context,omitempty"`
}

// Value renders the field named by p as text. List fields are joined with
// blank lines. The boolean is false when the field is empty.
func (tc *TestCase) Value(p Param) (string, bool) {
	var v string
	switch p {
	case ParamInput:
		v = tc.Input
	case ParamActualOutput:
		v = tc.ActualOutput
	case ParamExpectedOutput:
		v = tc.ExpectedOutput
	case ParamContext:
		v = joinSnippets(tc.Context)
	case ParamRetrievalContext:
		v = joinSnippets(tc.RetrievalContext)
	}
	return v, strings.TrimSpace(v) != ""
}

// Require returns an error naming every param in params that is empty.
func (tc *TestCase) Require(params ...Param) error {
	var missing []string
	for _, p := range params {
		if _, ok := tc.Value(p); !ok {
			missing = append(missing, string(p))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("test case %q missing required params: %s", tc.Name, strings.Join(missing, ", "))
	}
	return nil
}

func joinSnippets(snippets []string) string {
	trimmed := make([]string, 0, len(snippets))
	for _, s := range snippets {
		if s = strings.TrimSpace(s); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	return strings.Join(trimmed, "\n\n")
}
