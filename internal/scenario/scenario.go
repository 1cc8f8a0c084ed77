// Package scenario defines evaluation scenarios and runs them end to end:
// ask the query service, build a test case, evaluate it.
package scenario

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/openshift/lightspeed-eval/internal/metric"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

// Scenario is one query evaluated with a fixed set of metrics.
type Scenario struct {
	Name             string        `yaml:"name"`
	Query            string        `yaml:"query"`
	ExpectedOutput   string        `yaml:"expected_output,omitempty"`
	Context          []string      `yaml:"context,omitempty"`
	RetrievalContext []string      `yaml:"retrieval_context,omitempty"`
	Metrics          []metric.Spec `yaml:"metrics"`
}

// TestCase builds the case for actualOutput.
func (s *Scenario) TestCase(actualOutput string) *types.TestCase {
	return &types.TestCase{
		Name:             s.Name,
		Input:            s.Query,
		ActualOutput:     actualOutput,
		ExpectedOutput:   s.ExpectedOutput,
		Context:          append([]string(nil), s.Context...),
		RetrievalContext: append([]string(nil), s.RetrievalContext...),
	}
}

// Validate checks the fields every scenario needs.
func (s *Scenario) Validate() error {
	var errs *multierror.Error
	if s.Name == "" {
		errs = multierror.Append(errs, fmt.Errorf("scenario has no name"))
	}
	if s.Query == "" {
		errs = multierror.Append(errs, fmt.Errorf("scenario %q has no query", s.Name))
	}
	if len(s.Metrics) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("scenario %q has no metrics", s.Name))
	}
	return errs.ErrorOrNil()
}

type file struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Parse decodes a scenario file:
//
//	scenarios:
//	  - name: faithfulness
//	    query: What is the status of the cluster?
//	    retrieval_context: [...]
//	    metrics:
//	      - type: faithfulness
//	        threshold: 0.7
func Parse(data []byte) ([]Scenario, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &types.ConfigurationError{Setting: "scenarios", Message: err.Error()}
	}
	if len(f.Scenarios) == 0 {
		return nil, &types.ConfigurationError{Setting: "scenarios", Message: "no scenarios defined"}
	}

	var errs *multierror.Error
	seen := make(map[string]bool, len(f.Scenarios))
	for i := range f.Scenarios {
		s := &f.Scenarios[i]
		if err := s.Validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if s.Name != "" && seen[s.Name] {
			errs = multierror.Append(errs, fmt.Errorf("duplicate scenario name %q", s.Name))
		}
		seen[s.Name] = true
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, &types.ConfigurationError{Setting: "scenarios", Message: err.Error()}
	}
	return f.Scenarios, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigurationError{Setting: "scenarios", Message: err.Error()}
	}
	return Parse(data)
}

// Select returns the scenarios whose names are in names, in file order.
// An empty names selects all.
func Select(all []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Scenario
	for _, s := range all {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	if len(want) > 0 {
		var missing []string
		for _, n := range names {
			if want[n] {
				missing = append(missing, n)
			}
		}
		return nil, &types.ConfigurationError{Setting: "scenario", Message: fmt.Sprintf("unknown scenarios: %v", missing)}
	}
	return out, nil
}
