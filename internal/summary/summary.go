// Package summary renders a deterministic human-readable explanation of a
// fusion result, driven by the contributing-factors list.
package summary

import (
	"fmt"
	"strings"

	"skygate/internal/detect"
)

// Fallback is returned whenever rendering fails. Summary generation must
// never block result delivery.
const Fallback = "Detection completed, but summary generation failed."

// factorPhrases maps detector names to their descriptive clause. An
// unmapped factor name is omitted from the sentence, never an error.
var factorPhrases = map[string]string{
	"metadata_analysis": "suspicious metadata patterns",
	"ela_analysis":      "error level analysis",
	"prnu_analysis":     "photo response non-uniformity",
	"texture_analysis":  "unnatural texture smoothness",
	"vit_model":         "Vision Transformer model detection",
	"resnet_model":      "ResNet model detection",
}

// Render produces the result summary for a fusion result. Rendering is a
// pure function of the result; any internal failure yields Fallback.
func Render(result *detect.Result) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = Fallback
		}
	}()

	if result == nil {
		return Fallback
	}

	if !result.Verdict {
		return fmt.Sprintf(
			"This image appears to be authentic with %.1f%% confidence. No significant indicators of AI generation were detected.",
			(1-result.Confidence)*100)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "This image is likely AI-generated with %.1f%% confidence. ", result.Confidence*100)

	var clauses []string
	for _, f := range result.Factors {
		phrase, ok := factorPhrases[f.Name]
		if !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s (%.1f%% confidence)", phrase, f.Contribution*100))
	}
	if len(clauses) > 0 {
		b.WriteString("Key indicators include: ")
		b.WriteString(strings.Join(clauses, ", "))
		b.WriteString(".")
	}

	return strings.TrimSpace(b.String())
}
