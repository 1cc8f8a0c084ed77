package judge

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/openshift/lightspeed-eval/pkg/types"
)

// Prompt is a rendered judge request.
type Prompt struct {
	System string
	User   string
}

var funcs = template.FuncMap{
	"wrap": WrapAgentOutput,
	"inc":  func(i int) int { return i + 1 },
}

var (
	claimsTmpl = template.Must(template.New("claims").Funcs(funcs).Parse(
		`Extract every factual claim made in the output below.
A claim is a single statement that can be checked against a source.
Do not add claims that are not stated.

{{wrap .Output}}`))

	verdictsTmpl = template.Must(template.New("verdicts").Funcs(funcs).Parse(
		`Retrieval context:
{{range $i, $c := .Context}}
[{{inc $i}}] {{$c}}
{{end}}
Claims:
{{range $i, $c := .Claims}}{{inc $i}}. {{wrap $c}}
{{end}}
Return exactly {{len .Claims}} verdicts, in the same order as the claims.`))

	stepsTmpl = template.Must(template.New("steps").Funcs(funcs).Parse(
		`Criteria: {{.Criteria}}

The evaluation will look at: {{.Params}}.
Write 3 to 5 concise evaluation steps that a grader can follow to apply the criteria.`))

	scoreTmpl = template.Must(template.New("score").Funcs(funcs).Parse(
		`Metric: {{.Name}}
Criteria: {{.Criteria}}

Evaluation steps:
{{range $i, $s := .Steps}}{{inc $i}}. {{$s}}
{{end}}
{{range .Fields}}{{.Title}}:
{{if .Wrap}}{{wrap .Value}}{{else}}{{.Value}}{{end}}

{{end}}`))
)

const claimsSystem = `You extract factual claims from text.
Respond with JSON only: {"claims": ["<claim>", ...]}. Use an empty list when the text makes no claims.
`

const verdictsSystem = `You check claims against a retrieval context.
For each claim answer "yes" when the context supports it or is consistent with it,
"no" when the context directly contradicts it, and "idk" when the context does not address it.
Only answer "no" on a direct contradiction. Give a short reason for every "no".
Respond with JSON only: {"verdicts": [{"verdict": "yes|no|idk", "reason": "<reason>"}, ...]}.
`

const stepsSystem = `You design evaluation steps for grading model outputs.
Respond with JSON only: {"steps": ["<step>", ...]}.
`

const scoreSystem = `You grade a model output by following the evaluation steps.
Score from 0 (criteria not met at all) to 10 (criteria fully met).
Respond with JSON only: {"score": <0-10>, "reason": "<one or two sentences>"}.
`

// ClaimsPrompt asks the judge to list the claims in output.
func ClaimsPrompt(output string) (*Prompt, error) {
	return render(claimsSystem, claimsTmpl, struct{ Output string }{output})
}

// VerdictsPrompt asks the judge to check each claim against context.
func VerdictsPrompt(claims, context []string) (*Prompt, error) {
	return render(verdictsSystem, verdictsTmpl, struct {
		Claims  []string
		Context []string
	}{claims, context})
}

// StepsPrompt asks the judge to turn a criterion into evaluation steps.
func StepsPrompt(criteria string, params []types.Param) (*Prompt, error) {
	titles := make([]string, len(params))
	for i, p := range params {
		titles[i] = p.Title()
	}
	return render(stepsSystem, stepsTmpl, struct {
		Criteria string
		Params   string
	}{criteria, strings.Join(titles, ", ")})
}

type field struct {
	Title string
	Value string
	Wrap  bool
}

// ScorePrompt asks the judge to score tc on params under criteria. The
// actual output is delimited; reference fields are not.
func ScorePrompt(name, criteria string, steps []string, tc *types.TestCase, params []types.Param) (*Prompt, error) {
	fields := make([]field, 0, len(params))
	for _, p := range params {
		v, _ := tc.Value(p)
		fields = append(fields, field{Title: p.Title(), Value: v, Wrap: p == types.ParamActualOutput})
	}
	return render(scoreSystem, scoreTmpl, struct {
		Name     string
		Criteria string
		Steps    []string
		Fields   []field
	}{name, criteria, steps, fields})
}

func render(system string, tmpl *template.Template, data any) (*Prompt, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return &Prompt{System: system + dataInstruction, User: b.String()}, nil
}
