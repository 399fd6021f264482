package analyzer

import (
	"context"
	"math"

	"skygate/internal/detect"
)

// Edge pixels are counted where the Sobel gradient magnitude exceeds this
// threshold (8-bit luma units).
const edgeThreshold = 60.0

// gradientScale normalizes the mean gradient magnitude onto [0,1].
const gradientScale = 100.0

// AnalyzeTexture scores texture smoothness. Generators tend to produce
// unnaturally smooth surfaces: few edges and weak gradients compared to the
// fine-grained texture of photographs.
func AnalyzeTexture(ctx context.Context, imagePath string) detect.Outcome {
	img, _, err := loadImage(imagePath)
	if err != nil {
		return detect.FailedOutcome(err.Error())
	}

	gray, w, h := grayPixels(img)
	if w < 3 || h < 3 {
		return detect.FailedOutcome("image too small for texture analysis")
	}

	edgeDensity, gradientMean := sobelStats(gray, w, h)

	edgeScore := 1.0 - edgeDensity
	gradientScore := 1.0 - min(gradientMean/gradientScale, 1.0)
	smoothness := clamp01(0.5*edgeScore + 0.5*gradientScore)

	return detect.Outcome{
		Detected:   smoothness > 0.6,
		Confidence: min(smoothness, 0.95),
		Auxiliary:  map[string]any{"smoothness_score": smoothness},
	}
}

// sobelStats computes the fraction of edge pixels and the mean gradient
// magnitude over the image interior.
func sobelStats(px []float64, w, h int) (edgeDensity, gradientMean float64) {
	var sum float64
	var edges, total int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -px[(y-1)*w+x-1] + px[(y-1)*w+x+1] +
				-2*px[y*w+x-1] + 2*px[y*w+x+1] +
				-px[(y+1)*w+x-1] + px[(y+1)*w+x+1]
			gy := -px[(y-1)*w+x-1] - 2*px[(y-1)*w+x] - px[(y-1)*w+x+1] +
				px[(y+1)*w+x-1] + 2*px[(y+1)*w+x] + px[(y+1)*w+x+1]
			mag := math.Hypot(gx, gy)
			sum += mag
			if mag > edgeThreshold {
				edges++
			}
			total++
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(edges) / float64(total), sum / float64(total)
}
