package analyzer

import "skygate/internal/detect"

// DefaultWeights are the ensemble weights of the built-in detectors. They
// are relative, not normalized, and overridable per deployment.
var DefaultWeights = map[string]float64{
	MetadataAnalysis: 0.15,
	ELAAnalysis:      0.20,
	PRNUAnalysis:     0.20,
	TextureAnalysis:  0.15,
	ViTModel:         0.15,
	ResNetModel:      0.15,
}

// Specs returns the built-in detector specs in canonical order, applying
// any weight overrides by detector name. Overrides for unknown names are
// ignored; registry validation rejects non-positive values.
func Specs(overrides map[string]float64) []detect.Spec {
	specs := []detect.Spec{
		{Name: MetadataAnalysis, Run: AnalyzeMetadata},
		{Name: ELAAnalysis, Run: AnalyzeELA},
		{Name: PRNUAnalysis, Run: AnalyzePRNU},
		{Name: TextureAnalysis, Run: AnalyzeTexture},
		{Name: ViTModel, Run: PredictViT},
		{Name: ResNetModel, Run: PredictResNet},
	}
	for i := range specs {
		specs[i].Weight = DefaultWeights[specs[i].Name]
		if w, ok := overrides[specs[i].Name]; ok {
			specs[i].Weight = w
		}
	}
	return specs
}
