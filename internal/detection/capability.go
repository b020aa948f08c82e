package detection

import (
	"context"
	"image"

	"github.com/ironsheep/document-rectify-mcp/internal/config"
	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
)

// RectangleOptions constrains a rectangle-detection request.
type RectangleOptions struct {
	// MinConfidence drops candidates scoring below it.
	MinConfidence float64

	// MinAspectRatio and MaxAspectRatio bound width/height of the candidate.
	MinAspectRatio float64
	MaxAspectRatio float64

	// MinSize is the smallest candidate side as a fraction of the shorter
	// image dimension.
	MinSize float64

	// MaxObservations limits how many candidates are ranked. Only the best
	// one is returned.
	MaxObservations int
}

// OptionsFromConfig builds request options from detector configuration.
func OptionsFromConfig(cfg config.RectangleConfig) RectangleOptions {
	return RectangleOptions{
		MinConfidence:   cfg.MinConfidence,
		MinAspectRatio:  cfg.MinAspectRatio,
		MaxAspectRatio:  cfg.MaxAspectRatio,
		MinSize:         cfg.MinSize,
		MaxObservations: cfg.MaxObservations,
	}
}

// RectangleObservation is a detected quadrilateral in normalized [0,1]
// coordinates with the origin at the bottom-left of the image.
type RectangleObservation struct {
	TopLeft     geometry.Point `json:"top_left"`
	TopRight    geometry.Point `json:"top_right"`
	BottomRight geometry.Point `json:"bottom_right"`
	BottomLeft  geometry.Point `json:"bottom_left"`
	Confidence  float64        `json:"confidence"`
}

// RectangleDetector finds the best document-like quadrilateral in an image.
// How candidates are ranked is up to the implementation; ContourRectangleDetector
// prefers the largest outline and uses confidence to break ties. A nil
// observation with a nil error means no candidate.
type RectangleDetector interface {
	DetectRectangle(ctx context.Context, img image.Image, opts RectangleOptions) (*RectangleObservation, error)
}

// PixelCorners converts the observation into top-left-origin pixel
// coordinates for an image of the given size, ordered TL, TR, BR, BL.
func (o *RectangleObservation) PixelCorners(width, height int) geometry.Quadrilateral {
	w, h := float64(width), float64(height)
	conv := func(p geometry.Point) geometry.Point {
		return geometry.Point{X: p.X * w, Y: (1 - p.Y) * h}
	}
	return geometry.Quadrilateral{
		conv(o.TopLeft),
		conv(o.TopRight),
		conv(o.BottomRight),
		conv(o.BottomLeft),
	}
}

// observationFromPixels is the inverse of PixelCorners.
func observationFromPixels(q geometry.Quadrilateral, width, height int, confidence float64) *RectangleObservation {
	w, h := float64(width), float64(height)
	conv := func(p geometry.Point) geometry.Point {
		return geometry.Point{X: p.X / w, Y: 1 - p.Y/h}
	}
	return &RectangleObservation{
		TopLeft:     conv(q[0]),
		TopRight:    conv(q[1]),
		BottomRight: conv(q[2]),
		BottomLeft:  conv(q[3]),
		Confidence:  confidence,
	}
}

// StaticRectangleDetector always reports the same observation. It is useful
// when corners come from somewhere other than the image, such as a capture
// UI, and as a stand-in for platform detectors.
type StaticRectangleDetector struct {
	Observation *RectangleObservation
	Err         error
}

// DetectRectangle returns the configured observation.
func (s StaticRectangleDetector) DetectRectangle(ctx context.Context, _ image.Image, _ RectangleOptions) (*RectangleObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Observation, s.Err
}
