// Package analyzer implements the individual signal extractors consumed by
// the fusion engine: metadata inspection, error-level analysis, sensor-noise
// (PRNU) analysis, texture-smoothness analysis, and the two placeholder
// learned-model predictors. Each detector satisfies detect.DetectorFunc and
// reports trouble as a failed outcome rather than an error or panic.
package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// Detector names as registered with the fusion engine.
const (
	MetadataAnalysis = "metadata_analysis"
	ELAAnalysis      = "ela_analysis"
	PRNUAnalysis     = "prnu_analysis"
	TextureAnalysis  = "texture_analysis"
	ViTModel         = "vit_model"
	ResNetModel      = "resnet_model"
)

// loadImage reads and decodes an image file. The content type is sniffed
// from the file bytes, not the extension, so a renamed non-image fails here
// with a clear reason instead of confusing the pixel detectors.
func loadImage(path string) (image.Image, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read image: %w", err)
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return nil, nil, fmt.Errorf("sniff image type: %w", err)
	}
	switch kind {
	case matchers.TypeJpeg, matchers.TypePng, matchers.TypeGif:
	default:
		return nil, nil, fmt.Errorf("unsupported image type %q", kind.Extension)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	return img, data, nil
}

// grayPixels converts an image to a flat float64 luma buffer in [0,255],
// returning the buffer plus width and height.
func grayPixels(img image.Image) ([]float64, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	px := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R BT.601 luma on 16-bit channel values.
			px[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
		}
	}
	return px, w, h
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
