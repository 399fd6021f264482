package format

import "fmt"

// Percent renders a 0-1 confidence as a one-decimal percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// Verdict names a fused verdict for display.
func Verdict(aiGenerated bool) string {
	if aiGenerated {
		return "AI-generated"
	}
	return "authentic"
}

// DetectorMark returns a status glyph for one detector: "✗" if it failed,
// "✓" if it flagged the image, "–" otherwise.
func DetectorMark(detected, failed bool) string {
	switch {
	case failed:
		return "✗"
	case detected:
		return "✓"
	default:
		return "–"
	}
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
