package analyzer

import (
	"context"
	"os"
	"strings"
	"time"

	"skygate/internal/detect"
)

// The two learned-model predictors are placeholders keyed on a filename
// heuristic: they exist to exercise the detector contract and the persisted
// model_results shape. A real deployment swaps these for actual inference
// behind the same DetectorFunc signature.

// PredictViT is the Vision-Transformer-style placeholder predictor.
func PredictViT(ctx context.Context, imagePath string) detect.Outcome {
	return modelStub(imagePath, "Vision Transformer", "1.0", 0.85, 0.25)
}

// PredictResNet is the CNN-style (ResNet50 NoDown) placeholder predictor.
func PredictResNet(ctx context.Context, imagePath string) detect.Outcome {
	return modelStub(imagePath, "ResNet50 NoDown", "1.0", 0.9, 0.2)
}

func modelStub(imagePath, modelName, modelVersion string, hitConf, missConf float64) detect.Outcome {
	start := time.Now()

	if _, err := os.Stat(imagePath); err != nil {
		return detect.FailedOutcome("stat image: " + err.Error())
	}

	detected := strings.Contains(strings.ToLower(imagePath), "generated")
	confidence := missConf
	if detected {
		confidence = hitConf
	}

	return detect.Outcome{
		Detected:   detected,
		Confidence: confidence,
		Auxiliary: map[string]any{
			"model_name":      modelName,
			"model_version":   modelVersion,
			"processing_time": time.Since(start).Seconds(),
		},
	}
}
