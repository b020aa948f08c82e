// Package quality scores how fit a rectified page is for text recognition.
//
// Analyze measures generic signals on the image itself; Combine blends them
// with the detector's confidence and the rectifier's accuracy:
//
//	textClarity = sharpness*0.6 + contrast*0.4
//	overall     = sharpness*0.20 + contrast*0.15 + (1-noise)*0.15 +
//	              textClarity*0.20 + edgeConfidence*0.15 + accuracy*0.15
//
// A page is recommended for OCR when overall > 0.7, textClarity > 0.6 and
// accuracy > 0.8.
package quality

import (
	"context"
	"image"
	"math"

	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
)

// OCR recommendation thresholds.
const (
	MinOverallConfidence = 0.7
	MinTextClarity       = 0.6
	MinCorrectionAcc     = 0.8
)

// Signals are image-only quality measurements, each in [0,1].
type Signals struct {
	Sharpness   float64 `json:"sharpness"`
	Contrast    float64 `json:"contrast"`
	NoiseLevel  float64 `json:"noise_level"`
	TextClarity float64 `json:"text_clarity"`
}

// Metrics is the blended quality verdict for a processed document.
// NoiseLevel is in [0,1] where higher is worse; every other score is in
// [0,1] where higher is better.
type Metrics struct {
	OverallConfidence             float64 `json:"overall_confidence"`
	SharpnessScore                float64 `json:"sharpness_score"`
	ContrastScore                 float64 `json:"contrast_score"`
	NoiseLevel                    float64 `json:"noise_level"`
	TextClarity                   float64 `json:"text_clarity"`
	EdgeDetectionConfidence       float64 `json:"edge_detection_confidence"`
	PerspectiveCorrectionAccuracy float64 `json:"perspective_correction_accuracy"`
	RecommendedForOCR             bool    `json:"recommended_for_ocr"`
}

// Analyze measures sharpness, contrast, noise and text clarity of img.
//
//   - sharpness: mean Sobel gradient magnitude ×2, capped at 1
//   - contrast: grayscale standard deviation / 0.3, capped at 1
//   - noise: standard deviation of the Laplacian response, capped at 1
func Analyze(ctx context.Context, rc *imaging.RenderContext, img image.Image) (Signals, error) {
	if err := imaging.Validate(img); err != nil {
		return Signals{}, err
	}
	if err := ctx.Err(); err != nil {
		return Signals{}, docerr.FromContext("quality", err)
	}
	if rc == nil {
		rc = imaging.CPUContext()
	}

	gradient, err := rc.GradientMagnitude(img)
	if err != nil {
		return Signals{}, err
	}
	sharpness := math.Min(1, imaging.MeanIntensity(gradient)*2)

	stats, err := rc.Stats(img)
	if err != nil {
		return Signals{}, err
	}
	contrast := math.Min(1, stats.StdDev/0.3)

	if err := ctx.Err(); err != nil {
		return Signals{}, docerr.FromContext("quality", err)
	}

	highPass, err := rc.HighPass(img)
	if err != nil {
		return Signals{}, err
	}
	noise := math.Min(1, imaging.FieldStats(highPass).StdDev)

	return Signals{
		Sharpness:   sharpness,
		Contrast:    contrast,
		NoiseLevel:  noise,
		TextClarity: TextClarity(sharpness, contrast),
	}, nil
}

// TextClarity blends sharpness and contrast.
func TextClarity(sharpness, contrast float64) float64 {
	return sharpness*0.6 + contrast*0.4
}

// Combine blends image signals with the per-stage scores.
func Combine(s Signals, edgeConfidence, correctionAccuracy float64) Metrics {
	overall := s.Sharpness*0.20 +
		s.Contrast*0.15 +
		(1-s.NoiseLevel)*0.15 +
		s.TextClarity*0.20 +
		edgeConfidence*0.15 +
		correctionAccuracy*0.15

	return Metrics{
		OverallConfidence:             overall,
		SharpnessScore:                s.Sharpness,
		ContrastScore:                 s.Contrast,
		NoiseLevel:                    s.NoiseLevel,
		TextClarity:                   s.TextClarity,
		EdgeDetectionConfidence:       edgeConfidence,
		PerspectiveCorrectionAccuracy: correctionAccuracy,
		RecommendedForOCR: overall > MinOverallConfidence &&
			s.TextClarity > MinTextClarity &&
			correctionAccuracy > MinCorrectionAcc,
	}
}
