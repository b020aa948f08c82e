package detection

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/document-rectify-mcp/internal/config"
	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
	"github.com/ironsheep/document-rectify-mcp/internal/logging"
)

const stageName = "edge_detection"

// CornerSource records which path produced the document corners.
type CornerSource string

const (
	// SourceCapability means the rectangle detector found the document.
	SourceCapability CornerSource = "capability"
	// SourceEdgeMap means the corners came from the largest edge-map outline.
	SourceEdgeMap CornerSource = "edge_map"
	// SourceInset means no outline was found and a fixed inset was used.
	SourceInset CornerSource = "inset"
)

// Corner-quality multipliers for the fallback paths.
const (
	edgeMapQualityFactor = 0.75
	insetQualityFactor   = 0.5
)

// aspectFloor is the enclosing-box aspect ratio at and below which the
// aspect score falls off linearly.
const aspectFloor = 0.3

// ProgressFunc receives stage completion in [0,1].
type ProgressFunc func(progress float64)

// EdgeDetectionResult is the output of DetectEdges.
type EdgeDetectionResult struct {
	// EdgeMap is the binarized gradient magnitude (0 or 255).
	EdgeMap *image.Gray `json:"-"`

	// Corners are ordered TL, TR, BR, BL in pixel coordinates.
	Corners geometry.Quadrilateral `json:"corners"`

	// Confidence blends edge density and corner quality, in [0,1].
	Confidence float64 `json:"confidence"`

	ProcessingTime time.Duration `json:"processing_time_ns"`

	// DocumentBounds is the axis-aligned box around a detected outline.
	// It is nil when the inset fallback was used.
	DocumentBounds *geometry.Rect `json:"document_bounds,omitempty"`

	CornerSource CornerSource `json:"corner_source"`

	// EdgeDensity and CornerQuality are the two confidence inputs.
	EdgeDensity   float64 `json:"edge_density"`
	CornerQuality float64 `json:"corner_quality"`

	// RectangleConfidence is the capability's own score, when it was used.
	RectangleConfidence float64 `json:"rectangle_confidence,omitempty"`
}

// Detector locates a document's corners in a photograph.
// It holds no per-call state and is safe for concurrent use.
type Detector struct {
	rc         *imaging.RenderContext
	cfg        config.DetectionConfig
	rectangles RectangleDetector
	log        logrus.FieldLogger
}

// NewDetector creates a Detector. rectangles may be nil, in which case only
// the fallback search runs.
func NewDetector(rc *imaging.RenderContext, cfg config.DetectionConfig, rectangles RectangleDetector, log logrus.FieldLogger) *Detector {
	if rc == nil {
		rc = imaging.CPUContext()
	}
	return &Detector{
		rc:         rc,
		cfg:        cfg,
		rectangles: rectangles,
		log:        logging.OrDiscard(log).WithField("stage", stageName),
	}
}

// DetectEdges produces an edge map, four ordered corners and a confidence
// score for img.
//
// Progress is reported at 0.2 after preprocessing, 0.6 after the edge map,
// 0.9 after corner detection and 1.0 on completion. progress may be nil.
//
// Errors:
//   - InvalidInput for a nil or zero-size image
//   - ProcessingFailed when a filter produces no output
//   - Cancelled when ctx ends first
//
// A failing rectangle detector is not an error: the fallback search runs
// instead.
func (d *Detector) DetectEdges(ctx context.Context, img image.Image, progress ProgressFunc) (*EdgeDetectionResult, error) {
	start := time.Now()
	report := func(p float64) {
		if progress != nil {
			progress(p)
		}
	}

	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, docerr.FromContext(stageName, err)
	}

	prepared, err := d.preprocess(img)
	if err != nil {
		return nil, err
	}
	report(0.2)

	edgeMap, err := d.edgeMap(prepared)
	if err != nil {
		return nil, err
	}
	report(0.6)

	if err := ctx.Err(); err != nil {
		return nil, docerr.FromContext(stageName, err)
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	result := &EdgeDetectionResult{EdgeMap: edgeMap}
	qualityFactor := 1.0

	obs, err := d.detectRectangle(ctx, img)
	if err != nil {
		return nil, err
	}
	switch {
	case obs != nil:
		result.Corners = obs.PixelCorners(width, height)
		result.CornerSource = SourceCapability
		result.RectangleConfidence = obs.Confidence
		bounds := result.Corners.BoundingRect()
		result.DocumentBounds = &bounds
	default:
		if quad, ok := d.largestEdgeQuad(edgeMap); ok {
			result.Corners = quad
			result.CornerSource = SourceEdgeMap
			bounds := quad.BoundingRect()
			result.DocumentBounds = &bounds
			qualityFactor = edgeMapQualityFactor
		} else {
			result.Corners = insetCorners(width, height, d.cfg.FallbackInset)
			result.CornerSource = SourceInset
			qualityFactor = insetQualityFactor
		}
	}
	report(0.9)

	result.EdgeDensity = math.Min(1, imaging.MeanIntensity(edgeMap)*4)
	result.CornerQuality = CornerQuality(result.Corners, d.referenceArea()) * qualityFactor
	result.Confidence = clamp01(result.EdgeDensity*0.6 + result.CornerQuality*0.4)
	result.ProcessingTime = time.Since(start)
	report(1.0)

	d.log.WithFields(logrus.Fields{
		"corner_source": result.CornerSource,
		"confidence":    result.Confidence,
		"duration_ms":   result.ProcessingTime.Milliseconds(),
	}).Debug("Edge detection complete")

	return result, nil
}

// preprocess desaturates, boosts contrast and blurs img.
func (d *Detector) preprocess(img image.Image) (image.Image, error) {
	gray, err := d.rc.Desaturate(img)
	if err != nil {
		return nil, err
	}
	contrasted, err := d.rc.AdjustContrast(gray, d.cfg.ContrastPercent)
	if err != nil {
		return nil, err
	}
	return d.rc.Blur(contrasted, d.cfg.BlurSigma)
}

// edgeMap computes the Sobel magnitude, thins it and binarizes it.
func (d *Detector) edgeMap(img image.Image) (*image.Gray, error) {
	magnitude, err := d.rc.GradientMagnitude(img)
	if err != nil {
		return nil, err
	}
	eroded, err := d.rc.Erode(magnitude, d.cfg.ErodeRadius)
	if err != nil {
		return nil, err
	}
	return d.rc.Threshold(eroded, d.cfg.EdgeThreshold)
}

// detectRectangle asks the capability for a candidate. Only cancellation is
// returned as an error; any other failure is logged and treated as no
// candidate.
func (d *Detector) detectRectangle(ctx context.Context, img image.Image) (*RectangleObservation, error) {
	if d.rectangles == nil {
		return nil, nil
	}
	obs, err := d.rectangles.DetectRectangle(ctx, img, OptionsFromConfig(d.cfg.Rectangle))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, docerr.FromContext(stageName, ctxErr)
	}
	if err != nil {
		d.log.WithError(err).Warn("Rectangle detection failed, using fallback corners")
		return nil, nil
	}
	if obs == nil {
		d.log.Debug("No rectangle candidate, using fallback corners")
	}
	return obs, nil
}

func (d *Detector) referenceArea() float64 {
	if d.cfg.ReferenceArea > 0 {
		return d.cfg.ReferenceArea
	}
	return config.DefaultConfig().Detection.ReferenceArea
}

// CornerQuality scores a TL-first clockwise quadrilateral by its area
// relative to referenceArea and by the aspect ratio of its enclosing box.
func CornerQuality(q geometry.Quadrilateral, referenceArea float64) float64 {
	areaScore := 0.0
	if referenceArea > 0 {
		areaScore = math.Min(1, q.Area()/referenceArea)
	}

	width, height := q.EnclosingSize()
	aspect := 0.0
	if width > 0 && height > 0 {
		aspect = math.Min(width, height) / math.Max(width, height)
	}
	aspectScore := 1.0
	if aspect <= aspectFloor {
		aspectScore = aspect / aspectFloor
	}

	return areaScore*0.5 + aspectScore*0.5
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
