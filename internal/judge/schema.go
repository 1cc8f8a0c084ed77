package judge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/segmentio/encoding/json"
)

// Claims is the reply to a ClaimsPrompt.
type Claims struct {
	Claims []string `json:"claims"`
}

// ClaimVerdict is the judge's answer for one claim.
type ClaimVerdict struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

// Verdicts is the reply to a VerdictsPrompt.
type Verdicts struct {
	Verdicts []ClaimVerdict `json:"verdicts"`
}

// Steps is the reply to a StepsPrompt.
type Steps struct {
	Steps []string `json:"steps"`
}

// Score is the reply to a ScorePrompt, on a 0..10 scale.
type Score struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

var schemas = map[string]string{
	"claims.json": `{
		"type": "object",
		"required": ["claims"],
		"properties": {
			"claims": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	"verdicts.json": `{
		"type": "object",
		"required": ["verdicts"],
		"properties": {
			"verdicts": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["verdict"],
					"properties": {
						"verdict": {"enum": ["yes", "no", "idk"]},
						"reason": {"type": "string"}
					}
				}
			}
		}
	}`,
	"steps.json": `{
		"type": "object",
		"required": ["steps"],
		"properties": {
			"steps": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
		}
	}`,
	"score.json": `{
		"type": "object",
		"required": ["score"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 10},
			"reason": {"type": "string"}
		}
	}`,
}

var compiled struct {
	once    sync.Once
	err     error
	schemas map[string]*jsonschema.Schema
}

func schema(name string) (*jsonschema.Schema, error) {
	compiled.once.Do(func() {
		c := jsonschema.NewCompiler()
		for url, src := range schemas {
			doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
			if err != nil {
				compiled.err = fmt.Errorf("parse %s: %w", url, err)
				return
			}
			if err := c.AddResource(url, doc); err != nil {
				compiled.err = fmt.Errorf("add %s: %w", url, err)
				return
			}
		}
		compiled.schemas = make(map[string]*jsonschema.Schema, len(schemas))
		for url := range schemas {
			sch, err := c.Compile(url)
			if err != nil {
				compiled.err = fmt.Errorf("compile %s: %w", url, err)
				return
			}
			compiled.schemas[url] = sch
		}
	})
	if compiled.err != nil {
		return nil, compiled.err
	}
	return compiled.schemas[name], nil
}

// decode extracts the JSON object from reply, validates it against the named
// schema and unmarshals it into out.
func decode(name, reply string, out any) error {
	raw, err := ExtractJSON(reply)
	if err != nil {
		return err
	}
	sch, err := schema(name)
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON in judge reply: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("judge reply does not match %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode judge reply: %w", err)
	}
	return nil
}

// ParseClaims decodes a claims reply.
func ParseClaims(reply string) (*Claims, error) {
	var c Claims
	if err := decode("claims.json", reply, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseVerdicts decodes a verdicts reply.
func ParseVerdicts(reply string) (*Verdicts, error) {
	var v Verdicts
	if err := decode("verdicts.json", reply, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseSteps decodes an evaluation steps reply.
func ParseSteps(reply string) (*Steps, error) {
	var s Steps
	if err := decode("steps.json", reply, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseScore decodes a score reply.
func ParseScore(reply string) (*Score, error) {
	var s Score
	if err := decode("score.json", reply, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
