package analyzer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"skygate/internal/detect"
)

// elaQuality is the recompression quality used for error-level analysis.
const elaQuality = 90

// elaGain amplifies the recompression difference for the visualization and
// the score, matching the common x10 ELA convention.
const elaGain = 10

// AnalyzeELA performs error-level analysis: the image is recompressed as
// JPEG and the amplified difference against the original is scored. Evenly
// distributed, low-variance error levels are typical of synthetic images,
// while camera JPEGs show uneven error around real detail.
func AnalyzeELA(ctx context.Context, imagePath string) detect.Outcome {
	img, _, err := loadImage(imagePath)
	if err != nil {
		return detect.FailedOutcome(err.Error())
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: elaQuality}); err != nil {
		return detect.FailedOutcome("recompress: " + err.Error())
	}
	compressed, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return detect.FailedOutcome("decode recompressed: " + err.Error())
	}

	diff, score := elaDifference(img, compressed)

	aux := map[string]any{"error_level_score": score}
	if path, err := writeELAImage(diff); err == nil {
		aux["ela_image_path"] = path
	}

	return detect.Outcome{
		Detected:   score > 0.5,
		Confidence: min(score, 0.95),
		Auxiliary:  aux,
	}
}

// elaDifference builds the amplified per-pixel difference image and returns
// it with the normalized error-level score in [0,1].
func elaDifference(original, compressed image.Image) (*image.RGBA, float64) {
	b := original.Bounds()
	w, h := b.Dx(), b.Dy()
	diff := image.NewRGBA(image.Rect(0, 0, w, h))

	var sum float64
	cb := compressed.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			or, og, ob, _ := original.At(b.Min.X+x, b.Min.Y+y).RGBA()
			cr, cg, cbl, _ := compressed.At(cb.Min.X+x, cb.Min.Y+y).RGBA()

			dr := amplify(or, cr)
			dg := amplify(og, cg)
			db := amplify(ob, cbl)
			diff.SetRGBA(x, y, color.RGBA{R: dr, G: dg, B: db, A: 255})
			sum += float64(dr) + float64(dg) + float64(db)
		}
	}

	score := clamp01(sum / float64(w*h*3) / 255.0)
	return diff, score
}

// amplify converts two 16-bit channel samples into an amplified 8-bit
// absolute difference, clipped at 255.
func amplify(a, b uint32) uint8 {
	d := int64(a>>8) - int64(b>>8)
	if d < 0 {
		d = -d
	}
	d *= elaGain
	if d > 255 {
		d = 255
	}
	return uint8(d)
}

// writeELAImage saves the amplified difference for human review and returns
// its path. Best-effort: callers drop the path on error.
func writeELAImage(diff *image.RGBA) (string, error) {
	dir, err := os.MkdirTemp("", "skygate-ela-")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "ela.png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, diff); err != nil {
		return "", err
	}
	return path, nil
}
