package scenario

import (
	"github.com/openshift/lightspeed-eval/internal/metric"
	"github.com/openshift/lightspeed-eval/pkg/types"
)

// StatusQuery is the question both canonical scenarios ask.
const StatusQuery = "What is the status of the cluster? Provide a summary of firing incidents if any"

// ExpectedStatusSummary is the reference answer of the correctness scenario.
const ExpectedStatusSummary = "Your cluster has multiple current incidents. Each incident has an UUID identifier " +
	"and includes several alerts affecting one namespace, or more, like openshift-monitoring, " +
	"openshift-cluster-version, and openshift-dns. These incidents indicate issues with cluster components, " +
	"node health, and monitoring systems that require attention."

// CorrectnessCriteria is the GEval criterion of the correctness scenario.
const CorrectnessCriteria = "Determine if the 'actual output' is correct based on the 'expected output'."

const clusterHealthContext = `Cluster Health Status Context:
The cluster health analyzer monitors OpenShift cluster components and generates incidents based on firing alerts.
Current incidents include alerts from namespaces like openshift-monitoring, openshift-cluster-version, and openshift-dns.
Each incident has a unique UUID identifier and groups related alerts that likely stem from the same root cause.
The system provides detailed incident information including alert descriptions and overall cluster health summaries.
Incidents indicate issues with cluster components, node health, and monitoring systems requiring immediate attention.`

const incidentGuidelines = `Incident Response Guidelines:
When queried about cluster status, responses should include:
- Current number of active incidents
- Brief description of affected components/namespaces
- Severity level indicators
- Incident UUID references for tracking
- Summary of required actions or attention areas`

const correctnessContext = `The output must provide detailed incident information, including the incident ID, descriptions of the alerts, and an overall cluster health summary.
The response should mention specific alert types like TargetDown, ClusterOperatorDown, KubeNodeNotReady, and affected namespaces.
It is okay if the output provides more detailed information about active incidents even if this goes beyond the expected output.`

func threshold(t float64) *float64 { return &t }

// Faithfulness checks that the status answer is grounded in the cluster
// health context.
func Faithfulness() Scenario {
	return Scenario{
		Name:             "faithfulness",
		Query:            StatusQuery,
		RetrievalContext: []string{clusterHealthContext, incidentGuidelines},
		Metrics: []metric.Spec{{
			Type:      metric.TypeFaithfulness,
			Threshold: threshold(0.7),
		}},
	}
}

// Correctness checks the status answer against the canonical summary.
func Correctness() Scenario {
	return Scenario{
		Name:             "correctness",
		Query:            StatusQuery,
		ExpectedOutput:   ExpectedStatusSummary,
		RetrievalContext: []string{correctnessContext},
		Metrics: []metric.Spec{{
			Type:      metric.TypeGEval,
			Name:      "Correctness",
			Criteria:  CorrectnessCriteria,
			Params:    []types.Param{types.ParamActualOutput, types.ParamExpectedOutput},
			Threshold: threshold(0.5),
		}},
	}
}

// Canonical returns the built-in scenarios.
func Canonical() []Scenario {
	return []Scenario{Faithfulness(), Correctness()}
}
