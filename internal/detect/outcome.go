// Package detect implements the evidence-fusion core: a validated registry
// of signal detectors and an engine that combines their independent verdicts
// into one weighted confidence score with attributable contributing factors.
package detect

import "context"

// Outcome is the result of one detector invocation. When Failed is set,
// Detected and Confidence carry no meaning and are excluded from aggregation.
type Outcome struct {
	Detected      bool           `json:"detected"`
	Confidence    float64        `json:"confidence"`
	Auxiliary     map[string]any `json:"auxiliary,omitempty"`
	Failed        bool           `json:"failed,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

// FailedOutcome builds the outcome for a detector that could not produce a verdict.
func FailedOutcome(reason string) Outcome {
	return Outcome{Failed: true, FailureReason: reason}
}

// DetectorFunc runs one signal extractor against an image file.
// Implementations must not panic; the engine recovers panics at the
// invocation boundary as a safety net, but an Outcome with Failed set
// is the expected way to report trouble.
type DetectorFunc func(ctx context.Context, imagePath string) Outcome

// Factor is one detector's attributed contribution to the final verdict:
// a detector that agreed with the verdict and individually exceeded the
// significance threshold.
type Factor struct {
	Name         string  `json:"factor"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Result is the aggregate of one Detect call. It is constructed fresh per
// request and never mutated after return.
type Result struct {
	Verdict        bool               `json:"is_ai_generated"`
	Confidence     float64            `json:"confidence_score"`
	PerDetector    map[string]Outcome `json:"method_results"`
	Factors        []Factor           `json:"contributing_factors"`
	ProcessingTime float64            `json:"processing_time"`
}
