package analyzer

import (
	"context"

	"skygate/internal/detect"
)

// prnuScale maps the residual standard deviation (in 8-bit luma units) onto
// [0,1]. Camera sensor noise typically lands well above generated content.
const prnuScale = 16.0

// AnalyzePRNU estimates photo-response non-uniformity: the sensor noise
// residual left after denoising. A real sensor imprints a persistent noise
// pattern on every frame; generated images carry little or none, so a weak
// residual points at AI generation.
func AnalyzePRNU(ctx context.Context, imagePath string) detect.Outcome {
	img, _, err := loadImage(imagePath)
	if err != nil {
		return detect.FailedOutcome(err.Error())
	}

	gray, w, h := grayPixels(img)
	denoised := boxBlur(gray, w, h)

	residual := make([]float64, len(gray))
	for i := range gray {
		residual[i] = gray[i] - denoised[i]
	}

	patternScore := clamp01(stddev(residual) / prnuScale)

	return detect.Outcome{
		Detected:   patternScore < 0.3,
		Confidence: min(1.0-patternScore, 0.95),
		Auxiliary:  map[string]any{"pattern_score": patternScore},
	}
}

// boxBlur applies a 3x3 mean filter, clamping at the borders. It stands in
// for the heavier denoisers real PRNU pipelines use; only the residual
// statistics matter here.
func boxBlur(px []float64, w, h int) []float64 {
	out := make([]float64, len(px))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			var n int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					yy, xx := y+dy, x+dx
					if yy < 0 || yy >= h || xx < 0 || xx >= w {
						continue
					}
					sum += px[yy*w+xx]
					n++
				}
			}
			out[y*w+x] = sum / float64(n)
		}
	}
	return out
}
