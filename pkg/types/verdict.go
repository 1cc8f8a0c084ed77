package types

const (
	StatusPass  = "pass"
	StatusFail  = "fail"
	StatusError = "error"
)

// Verdict holds the outcome of scoring one test case with one metric.
type Verdict struct {
	Metric     string  `json:"metric"`
	Status     string  `json:"status"`
	Score      float64 `json:"score"`
	Threshold  float64 `json:"threshold"`
	Success    bool    `json:"success"`
	Reason     string  `json:"reason"`
	Cost       float64 `json:"cost"`
	DurationMS int64   `json:"duration_ms"`
}

// NewVerdict classifies score against threshold.
func NewVerdict(metric string, score, threshold float64, reason string) *Verdict {
	v := &Verdict{
		Metric:    metric,
		Score:     score,
		Threshold: threshold,
		Reason:    reason,
	}
	if score >= threshold {
		v.Status = StatusPass
		v.Success = true
	} else {
		v.Status = StatusFail
	}
	return v
}

// ErrorVerdict records a metric that could not produce a score.
func ErrorVerdict(metric string, threshold float64, reason string) *Verdict {
	return &Verdict{
		Metric:    metric,
		Status:    StatusError,
		Threshold: threshold,
		Reason:    reason,
	}
}
