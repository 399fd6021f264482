package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"

	"skygate/internal/analyzer"
	"skygate/internal/config"
	"skygate/internal/detect"
	"skygate/internal/format"
	"skygate/internal/logging"
	"skygate/internal/metrics"
	"skygate/internal/projection"
	"skygate/internal/store"
	"skygate/internal/summary"
)

// setup loads the config file (defaults when missing), initialises logging,
// and assembles the detection engine over the full detector registry.
func setup(configPath string) (config.Config, *detect.Engine, error) {
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return cfg, nil, err
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	reg, err := detect.NewRegistry(analyzer.Specs(cfg.Weights))
	if err != nil {
		return cfg, nil, fmt.Errorf("build registry: %w", err)
	}
	eng, err := detect.NewEngine(reg, detect.Options{
		VerdictThreshold:      cfg.VerdictThreshold,
		SignificanceThreshold: cfg.SignificanceThreshold,
		Parallelism:           cfg.Parallelism,
		Timeout:               cfg.Timeout(),
		Recorder:              metrics.NewRecorder(),
	})
	if err != nil {
		return cfg, nil, fmt.Errorf("build engine: %w", err)
	}
	return cfg, eng, nil
}

// tableMode picks the table rendering mode from the shared --markdown flag.
func tableMode(markdown bool) format.Mode {
	if markdown {
		return format.Markdown
	}
	return format.ASCII
}

// breakdown renders the per-detector table for one result, in registry order.
func breakdown(result *detect.Result, mode format.Mode) string {
	tb := format.NewTable(mode)
	tb.Header("Detector", "Flag", "Confidence", "Note")
	for _, name := range detectorOrder() {
		out, ok := result.PerDetector[name]
		if !ok {
			continue
		}
		note := ""
		if out.Failed {
			note = format.Truncate(out.FailureReason, 48)
		}
		tb.Row(name, format.DetectorMark(out.Detected, out.Failed), format.Percent(out.Confidence), note)
	}
	tb.Footer("VERDICT", "", fmt.Sprintf("%s (%s)", format.Verdict(result.Verdict), format.Percent(result.Confidence)), "")
	tb.Columns(format.ColumnConfig{Number: 3, Align: format.AlignRight})
	return tb.String()
}

// detectorOrder is the canonical registry order used for display.
func detectorOrder() []string {
	return []string{
		analyzer.MetadataAnalysis,
		analyzer.ELAAnalysis,
		analyzer.PRNUAnalysis,
		analyzer.TextureAnalysis,
		analyzer.ViTModel,
		analyzer.ResNetModel,
	}
}

// persist records one detection run: the upload, the metadata document, and
// the result row referencing both. Returns the new result id.
func persist(st store.Store, imagePath string, result *detect.Result, summaryText string) (int64, error) {
	abs, err := filepath.Abs(imagePath)
	if err != nil {
		abs = imagePath
	}
	up := &store.Upload{
		OriginalFileName: filepath.Base(imagePath),
		FilePath:         abs,
	}
	if info, err := os.Stat(imagePath); err == nil {
		up.FileSize = info.Size()
	}
	if ft, err := filetype.MatchFile(imagePath); err == nil && ft != filetype.Unknown {
		up.FileType = ft.MIME.Value
	}
	upID, err := st.CreateUpload(up)
	if err != nil {
		return 0, fmt.Errorf("record upload: %w", err)
	}

	metaID, err := st.CreateMetadata(projection.Build(result))
	if err != nil {
		return 0, fmt.Errorf("record metadata: %w", err)
	}

	resID, err := st.CreateResult(&store.DetectionResult{
		UploadID:        upID,
		IsAIGenerated:   result.Verdict,
		ConfidenceScore: result.Confidence,
		ProcessingTime:  result.ProcessingTime,
		ResultSummary:   summaryText,
		MetadataID:      metaID,
	})
	if err != nil {
		return 0, fmt.Errorf("record result: %w", err)
	}
	if err := st.MarkProcessed(upID); err != nil {
		return 0, fmt.Errorf("mark processed: %w", err)
	}
	return resID, nil
}

// detectOne runs the engine against a single image and renders its summary.
func detectOne(ctx context.Context, eng *detect.Engine, imagePath string) (*detect.Result, string) {
	result := eng.Detect(ctx, imagePath)
	return result, summary.Render(result)
}
