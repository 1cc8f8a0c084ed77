package metric

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/openshift/lightspeed-eval/pkg/types"
)

// MaxRegexPatternLength bounds regex_match patterns.
const MaxRegexPatternLength = 10000

// Keyword checks supported by the Keyword metric.
const (
	CheckContains    = "contains"
	CheckNotContains = "not_contains"
	CheckRegexMatch  = "regex_match"
	CheckKeywordAll  = "keyword_all"
	CheckKeywordAny  = "keyword_any"
	CheckForbidden   = "forbidden"
)

// KeywordConfig configures a Keyword metric. Value is used by contains,
// not_contains and regex_match; Values by the keyword checks. Every check,
// regex_match included, ignores case unless CaseSensitive is set.
type KeywordConfig struct {
	Name          string
	Check         string
	Value         string
	Values        []string
	CaseSensitive bool
	Threshold     float64
}

// Keyword is a deterministic content check on the actual output.
type Keyword struct {
	cfg KeywordConfig
	re  *regexp.Regexp
}

// NewKeyword validates cfg and returns a Keyword metric.
func NewKeyword(cfg KeywordConfig) (*Keyword, error) {
	if cfg.Name == "" {
		cfg.Name = "Keyword(" + cfg.Check + ")"
	}
	if err := validThreshold(cfg.Threshold); err != nil {
		return nil, fmt.Errorf("keyword %q: %w", cfg.Name, err)
	}

	k := &Keyword{cfg: cfg}
	switch cfg.Check {
	case CheckContains, CheckNotContains:
		if cfg.Value == "" {
			return nil, fmt.Errorf("keyword %q: check %s requires value", cfg.Name, cfg.Check)
		}
	case CheckRegexMatch:
		if len(cfg.Value) > MaxRegexPatternLength {
			return nil, fmt.Errorf("keyword %q: regex pattern exceeds maximum length: %d > %d", cfg.Name, len(cfg.Value), MaxRegexPatternLength)
		}
		pattern := cfg.Value
		if !cfg.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("keyword %q: invalid regex %q: %w", cfg.Name, cfg.Value, err)
		}
		k.re = re
	case CheckKeywordAll, CheckKeywordAny, CheckForbidden:
		if len(cfg.Values) == 0 {
			return nil, fmt.Errorf("keyword %q: check %s requires values", cfg.Name, cfg.Check)
		}
	default:
		return nil, fmt.Errorf("keyword %q: unknown check %q", cfg.Name, cfg.Check)
	}
	return k, nil
}

func (k *Keyword) Name() string       { return k.cfg.Name }
func (k *Keyword) Threshold() float64 { return k.cfg.Threshold }

func (k *Keyword) Measure(_ context.Context, tc *types.TestCase) (*types.Verdict, error) {
	start := time.Now()
	if err := tc.Require(types.ParamActualOutput); err != nil {
		return nil, err
	}

	score, reason := k.check(tc.ActualOutput)
	v := types.NewVerdict(k.cfg.Name, score, k.cfg.Threshold, reason)
	v.DurationMS = time.Since(start).Milliseconds()
	return v, nil
}

func (k *Keyword) fold(s string) string {
	if k.cfg.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

func (k *Keyword) check(output string) (float64, string) {
	target := k.fold(output)

	switch k.cfg.Check {
	case CheckContains:
		if strings.Contains(target, k.fold(k.cfg.Value)) {
			return 1, fmt.Sprintf("output contains '%s'.", k.cfg.Value)
		}
		return 0, fmt.Sprintf("output does not contain '%s'.", k.cfg.Value)

	case CheckNotContains:
		if !strings.Contains(target, k.fold(k.cfg.Value)) {
			return 1, fmt.Sprintf("output does not contain '%s'.", k.cfg.Value)
		}
		return 0, fmt.Sprintf("output contains '%s' but should not.", k.cfg.Value)

	case CheckRegexMatch:
		if k.re.MatchString(output) {
			return 1, fmt.Sprintf("output matches regex '%s'.", k.cfg.Value)
		}
		return 0, fmt.Sprintf("output does not match regex '%s'.", k.cfg.Value)

	case CheckKeywordAll:
		var missing []string
		for _, kw := range k.cfg.Values {
			if !strings.Contains(target, k.fold(kw)) {
				missing = append(missing, kw)
			}
		}
		if len(missing) == 0 {
			return 1, "output contains all keywords."
		}
		return float64(len(k.cfg.Values)-len(missing)) / float64(len(k.cfg.Values)),
			fmt.Sprintf("output missing keywords: %v", missing)

	case CheckKeywordAny:
		for _, kw := range k.cfg.Values {
			if strings.Contains(target, k.fold(kw)) {
				return 1, fmt.Sprintf("output contains keyword '%s'.", kw)
			}
		}
		return 0, fmt.Sprintf("output contains none of keywords: %v", k.cfg.Values)

	default: // CheckForbidden
		var found []string
		for _, kw := range k.cfg.Values {
			if strings.Contains(target, k.fold(kw)) {
				found = append(found, kw)
			}
		}
		if len(found) == 0 {
			return 1, "output contains none of the forbidden terms."
		}
		return 0, fmt.Sprintf("output contains forbidden terms: %v", found)
	}
}
