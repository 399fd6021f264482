package analyzer

import (
	"context"
	"os"
	"regexp"

	"github.com/rwcarlsen/goexif/exif"

	"skygate/internal/detect"
)

// aiSoftwarePatterns match Software tags written by known generative tools.
// A hit is a near-certain verdict on its own.
var aiSoftwarePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)stable\s*diffusion`),
	regexp.MustCompile(`(?i)dall\s*[- ]?e`),
	regexp.MustCompile(`(?i)midjourney`),
	regexp.MustCompile(`(?i)generative`),
	regexp.MustCompile(`(?i)gan`),
	regexp.MustCompile(`(?i)neural`),
	regexp.MustCompile(`(?i)deep\s*dream`),
	regexp.MustCompile(`(?i)ai\s*image`),
	regexp.MustCompile(`(?i)openai`),
}

// AnalyzeMetadata inspects EXIF metadata for signs of AI generation. Camera
// photos carry make/model, lens, exposure, and usually GPS blocks; generated
// images tend to carry none of them, or a telltale Software tag.
func AnalyzeMetadata(ctx context.Context, imagePath string) detect.Outcome {
	f, err := os.Open(imagePath)
	if err != nil {
		return detect.FailedOutcome("open image: " + err.Error())
	}
	defer f.Close()

	var anomalies []string

	x, err := exif.Decode(f)
	if err != nil {
		// No EXIF block at all. Moderately suspicious on its own: every
		// camera writes one, most generators do not.
		return detect.Outcome{
			Detected:   true,
			Confidence: 0.7,
			Auxiliary: map[string]any{
				"anomalies": []string{"No EXIF metadata found"},
			},
		}
	}

	if !hasTag(x, exif.Make) && !hasTag(x, exif.Model) {
		anomalies = append(anomalies, "No camera make or model information")
	}
	if !hasTag(x, exif.LensModel) && !hasTag(x, exif.LensMake) {
		anomalies = append(anomalies, "No lens information")
	}
	if !hasTag(x, exif.ExposureTime) || !hasTag(x, exif.FNumber) || !hasTag(x, exif.ISOSpeedRatings) {
		anomalies = append(anomalies, "Incomplete exposure settings")
	}

	if software := tagString(x, exif.Software); software != "" {
		for _, pat := range aiSoftwarePatterns {
			if pat.MatchString(software) {
				anomalies = append(anomalies, "AI software detected: "+software)
				return detect.Outcome{
					Detected:   true,
					Confidence: 0.95,
					Auxiliary:  map[string]any{"anomalies": anomalies},
				}
			}
		}
	}

	original := tagString(x, exif.DateTimeOriginal)
	digitized := tagString(x, exif.DateTimeDigitized)
	if original != "" && digitized != "" && original != digitized {
		anomalies = append(anomalies, "Inconsistent creation dates")
	}

	if _, _, err := x.LatLong(); err != nil {
		anomalies = append(anomalies, "No GPS information")
	}

	detected, confidence := scoreAnomalies(len(anomalies))
	return detect.Outcome{
		Detected:   detected,
		Confidence: confidence,
		Auxiliary:  map[string]any{"anomalies": anomalies},
	}
}

// scoreAnomalies grades the anomaly count into a verdict and confidence.
// Four or more missing/inconsistent fields is strong evidence; two or three
// is moderate; fewer leans authentic.
func scoreAnomalies(count int) (bool, float64) {
	switch {
	case count >= 4:
		return true, min(0.7+float64(count-4)*0.05, 0.9)
	case count >= 2:
		return true, 0.5 + float64(count-2)*0.1
	default:
		return false, max(0.3-float64(count)*0.15, 0.0)
	}
}

func hasTag(x *exif.Exif, name exif.FieldName) bool {
	_, err := x.Get(name)
	return err == nil
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}
