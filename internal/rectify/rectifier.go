package rectify

import (
	"context"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/document-rectify-mcp/internal/config"
	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
	"github.com/ironsheep/document-rectify-mcp/internal/logging"
)

const stageName = "perspective_correction"

// ProgressFunc receives stage completion in [0,1].
type ProgressFunc func(progress float64)

// PerspectiveCorrectionResult is the output of CorrectPerspective.
type PerspectiveCorrectionResult struct {
	// CorrectedImage is the fronto-parallel page, cropped to the target
	// rectangle and lightly sharpened.
	CorrectedImage *image.NRGBA `json:"-"`

	// CorrectionAccuracy blends geometric and quality accuracy, in [0,1].
	CorrectionAccuracy float64 `json:"correction_accuracy"`
	GeometricAccuracy  float64 `json:"geometric_accuracy"`
	QualityAccuracy    float64 `json:"quality_accuracy"`

	ProcessingTime time.Duration `json:"processing_time_ns"`

	// SourceCorners are the clamped, ordered and refined input corners.
	SourceCorners geometry.Quadrilateral `json:"source_corners"`

	// TargetCorners are the corners of the target rectangle, TL first.
	TargetCorners geometry.Quadrilateral `json:"target_corners"`

	PageFormat PageFormat `json:"page_format"`

	// Transform maps source coordinates onto target coordinates.
	Transform geometry.Homography `json:"transform"`

	// RefinedCorners counts corners moved by sub-pixel refinement.
	RefinedCorners int `json:"refined_corners"`
}

// Rectifier maps a detected document quadrilateral onto an upright page.
// It holds no per-call state and is safe for concurrent use.
type Rectifier struct {
	rc  *imaging.RenderContext
	cfg config.RectificationConfig
	log logrus.FieldLogger
}

// NewRectifier creates a Rectifier.
func NewRectifier(rc *imaging.RenderContext, cfg config.RectificationConfig, log logrus.FieldLogger) *Rectifier {
	if rc == nil {
		rc = imaging.CPUContext()
	}
	return &Rectifier{
		rc:  rc,
		cfg: cfg,
		log: logging.OrDiscard(log).WithField("stage", stageName),
	}
}

// CorrectPerspective rectifies the document bounded by corners.
//
// Corners are pixel coordinates relative to the image's top-left. They are
// clamped into the frame, ordered clockwise from the top-left and, when
// enabled, refined to sub-pixel precision within bounds (if given). The
// page is then warped onto a centred target rectangle, cropped and
// sharpened.
//
// Progress is reported at 0.25 after refinement, 0.5 after the target is
// chosen, 0.9 after the warp and 1.0 after scoring. progress may be nil.
//
// Errors:
//   - InvalidCorners when corners does not hold exactly four points; no
//     other work is done
//   - InvalidInput for a nil or zero-size image
//   - TransformFailed when the corners do not define a transform
//   - ProcessingFailed when a filter produces no output
//   - Cancelled when ctx ends first
func (r *Rectifier) CorrectPerspective(ctx context.Context, img image.Image, corners geometry.Quadrilateral, bounds *geometry.Rect, progress ProgressFunc) (*PerspectiveCorrectionResult, error) {
	start := time.Now()
	report := func(p float64) {
		if progress != nil {
			progress(p)
		}
	}
	checkpoint := func() error {
		if err := ctx.Err(); err != nil {
			return docerr.FromContext(stageName, err)
		}
		return nil
	}

	if err := corners.Validate(); err != nil {
		return nil, docerr.InvalidCornersf(stageName, "%v", err)
	}
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if err := checkpoint(); err != nil {
		return nil, err
	}

	if img.Bounds().Min != (image.Point{}) {
		rebased, err := r.rc.Crop(img, img.Bounds())
		if err != nil {
			return nil, err
		}
		img = rebased
	}
	width := float64(img.Bounds().Dx())
	height := float64(img.Bounds().Dy())

	// Step 1: clamp, order and refine
	source := corners.Clamp(width, height).SortClockwise()
	if err := checkpoint(); err != nil {
		return nil, err
	}

	refined := 0
	if r.cfg.RefineCorners {
		source, refined = r.refineCorners(img, source, bounds)
		if err := checkpoint(); err != nil {
			return nil, err
		}
	}
	report(0.25)

	// Step 2: target rectangle
	targetRect, format := TargetRect(source, width, height, r.cfg.FitFraction, r.cfg.SnapTolerance)
	target := targetRect.Corners()
	report(0.5)
	if err := checkpoint(); err != nil {
		return nil, err
	}

	// Step 3: warp, crop and sharpen
	forward, err := geometry.ComputeHomography(source, target)
	if err != nil {
		return nil, docerr.TransformFailedf(stageName, err, "failed to compute perspective transform")
	}
	inverse, err := geometry.ComputeHomography(target, source)
	if err != nil {
		return nil, docerr.TransformFailedf(stageName, err, "failed to compute inverse transform")
	}

	warped, err := r.rc.Warp(ctx, img, inverse, img.Bounds().Dx(), img.Bounds().Dy())
	if err != nil {
		if docerr.CodeOf(err) == docerr.Cancelled {
			return nil, docerr.FromContext(stageName, ctx.Err())
		}
		return nil, docerr.TransformFailedf(stageName, err, "failed to apply perspective transform")
	}
	if err := checkpoint(); err != nil {
		return nil, err
	}

	cropped, err := r.rc.Crop(warped, targetRect.ImageRect())
	if err != nil {
		return nil, docerr.TransformFailedf(stageName, err, "failed to crop to target rectangle")
	}
	corrected, err := r.rc.Sharpen(cropped, r.cfg.SharpenSigma)
	if err != nil {
		return nil, err
	}
	report(0.9)
	if err := checkpoint(); err != nil {
		return nil, err
	}

	// Step 4: accuracy
	stats, err := r.rc.Stats(corrected)
	if err != nil {
		return nil, err
	}
	geometric := GeometricAccuracy(source, target)
	quality := QualityAccuracy(stats)

	result := &PerspectiveCorrectionResult{
		CorrectedImage:     corrected,
		CorrectionAccuracy: CorrectionAccuracy(geometric, quality),
		GeometricAccuracy:  geometric,
		QualityAccuracy:    quality,
		SourceCorners:      source,
		TargetCorners:      target,
		PageFormat:         format,
		Transform:          forward,
		RefinedCorners:     refined,
		ProcessingTime:     time.Since(start),
	}
	report(1.0)

	r.log.WithFields(logrus.Fields{
		"accuracy":    result.CorrectionAccuracy,
		"page_format": format,
		"refined":     refined,
		"duration_ms": result.ProcessingTime.Milliseconds(),
	}).Debug("Perspective correction complete")

	return result, nil
}
