// Package projection shapes a fusion result into the nested metadata
// document consumed by the persistence collaborator. Build is a pure
// transformation; it never touches storage itself.
package projection

import (
	"slices"

	"skygate/internal/analyzer"
	"skygate/internal/detect"
)

// Document is the persisted detection-metadata shape. All confidence fields
// are 0-1 floats, never percentages.
type Document struct {
	ExifData          ExifData      `json:"exif_data"`
	PixelAnalysis     PixelAnalysis `json:"pixel_analysis"`
	ModelResults      []ModelResult `json:"model_results"`
	AggregatedResults Aggregated    `json:"aggregated_results"`
}

// ExifData holds the metadata-analysis projection.
type ExifData struct {
	Exists         bool           `json:"exists"`
	AnalysisResult AnalysisResult `json:"analysis_result"`
}

// AnalysisResult is the common suspicious/confidence pair for the metadata
// detector, with its anomaly descriptions.
type AnalysisResult struct {
	IsSuspicious bool     `json:"is_suspicious"`
	Confidence   float64  `json:"confidence"`
	Anomalies    []string `json:"anomalies"`
}

// PixelAnalysis groups the pixel-level detector projections.
type PixelAnalysis struct {
	PRNUResults     PRNUResults    `json:"prnu_results"`
	ELAResults      ELAResults     `json:"ela_results"`
	TextureAnalysis TextureResults `json:"texture_analysis"`
}

// PRNUResults is the sensor-noise projection. PatternScore is omitted when
// the detector did not report one.
type PRNUResults struct {
	PatternScore *float64 `json:"pattern_score,omitempty"`
	IsSuspicious bool     `json:"is_suspicious"`
	Confidence   float64  `json:"confidence"`
}

// ELAResults is the error-level-analysis projection.
type ELAResults struct {
	ErrorLevelScore *float64 `json:"error_level_score,omitempty"`
	IsSuspicious    bool     `json:"is_suspicious"`
	Confidence      float64  `json:"confidence"`
	ELAImagePath    string   `json:"ela_image_path,omitempty"`
}

// TextureResults is the texture-smoothness projection.
type TextureResults struct {
	SmoothnessScore *float64 `json:"smoothness_score,omitempty"`
	IsSuspicious    bool     `json:"is_suspicious"`
	Confidence      float64  `json:"confidence"`
}

// ModelResult is one learned-model predictor's projection, in registry order.
type ModelResult struct {
	ModelName      string  `json:"model_name"`
	ModelVersion   string  `json:"model_version"`
	IsAIGenerated  bool    `json:"is_ai_generated"`
	Confidence     float64 `json:"confidence"`
	ProcessingTime float64 `json:"processing_time"`
}

// Aggregated mirrors the fusion verdict in the persisted document.
type Aggregated struct {
	IsAIGenerated       bool            `json:"is_ai_generated"`
	ConfidenceScore     float64         `json:"confidence_score"`
	ContributingFactors []detect.Factor `json:"contributing_factors"`
}

// NewDocument returns the pre-detection document with the schema's declared
// zero-valued defaults, as seeded when an upload record is created.
func NewDocument() *Document {
	zero := 0.0
	return &Document{
		ExifData: ExifData{
			AnalysisResult: AnalysisResult{Anomalies: []string{}},
		},
		PixelAnalysis: PixelAnalysis{
			PRNUResults:     PRNUResults{PatternScore: &zero},
			ELAResults:      ELAResults{ErrorLevelScore: &zero},
			TextureAnalysis: TextureResults{SmoothnessScore: &zero},
		},
		ModelResults: []ModelResult{},
		AggregatedResults: Aggregated{
			ContributingFactors: []detect.Factor{},
		},
	}
}

// Build projects a fusion result into the persisted document shape. Failed
// detectors leave their section at the pre-detection defaults; auxiliary
// fields a detector did not report are omitted rather than zeroed.
func Build(result *detect.Result) *Document {
	doc := NewDocument()
	if result == nil {
		return doc
	}

	if out, ok := succeeded(result, analyzer.MetadataAnalysis); ok {
		anomalies := stringsAux(out.Auxiliary, "anomalies")
		doc.ExifData = ExifData{
			Exists: !slices.Contains(anomalies, "No EXIF metadata found"),
			AnalysisResult: AnalysisResult{
				IsSuspicious: out.Detected,
				Confidence:   out.Confidence,
				Anomalies:    anomalies,
			},
		}
	}

	if out, ok := succeeded(result, analyzer.PRNUAnalysis); ok {
		doc.PixelAnalysis.PRNUResults = PRNUResults{
			PatternScore: floatAux(out.Auxiliary, "pattern_score"),
			IsSuspicious: out.Detected,
			Confidence:   out.Confidence,
		}
	}

	if out, ok := succeeded(result, analyzer.ELAAnalysis); ok {
		doc.PixelAnalysis.ELAResults = ELAResults{
			ErrorLevelScore: floatAux(out.Auxiliary, "error_level_score"),
			IsSuspicious:    out.Detected,
			Confidence:      out.Confidence,
			ELAImagePath:    stringAux(out.Auxiliary, "ela_image_path"),
		}
	}

	if out, ok := succeeded(result, analyzer.TextureAnalysis); ok {
		doc.PixelAnalysis.TextureAnalysis = TextureResults{
			SmoothnessScore: floatAux(out.Auxiliary, "smoothness_score"),
			IsSuspicious:    out.Detected,
			Confidence:      out.Confidence,
		}
	}

	for _, name := range []string{analyzer.ViTModel, analyzer.ResNetModel} {
		out, ok := succeeded(result, name)
		if !ok {
			continue
		}
		mr := ModelResult{
			ModelName:     stringAux(out.Auxiliary, "model_name"),
			ModelVersion:  stringAux(out.Auxiliary, "model_version"),
			IsAIGenerated: out.Detected,
			Confidence:    out.Confidence,
		}
		if pt := floatAux(out.Auxiliary, "processing_time"); pt != nil {
			mr.ProcessingTime = *pt
		}
		doc.ModelResults = append(doc.ModelResults, mr)
	}

	factors := result.Factors
	if factors == nil {
		factors = []detect.Factor{}
	}
	doc.AggregatedResults = Aggregated{
		IsAIGenerated:       result.Verdict,
		ConfidenceScore:     result.Confidence,
		ContributingFactors: factors,
	}

	return doc
}

func succeeded(result *detect.Result, name string) (detect.Outcome, bool) {
	out, ok := result.PerDetector[name]
	if !ok || out.Failed {
		return detect.Outcome{}, false
	}
	return out, true
}

func floatAux(aux map[string]any, key string) *float64 {
	switch v := aux[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func stringAux(aux map[string]any, key string) string {
	s, _ := aux[key].(string)
	return s
}

func stringsAux(aux map[string]any, key string) []string {
	switch v := aux[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
