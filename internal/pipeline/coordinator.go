package pipeline

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/document-rectify-mcp/internal/config"
	"github.com/ironsheep/document-rectify-mcp/internal/detection"
	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
	"github.com/ironsheep/document-rectify-mcp/internal/logging"
	"github.com/ironsheep/document-rectify-mcp/internal/quality"
	"github.com/ironsheep/document-rectify-mcp/internal/rectify"
)

const stageName = "pipeline"

// Progress bands of the two stages.
const (
	edgeBandEnd = 0.4
)

// EdgeSuccessConfidence is the detector confidence at and above which edge
// detection counts as a success in the performance metrics.
const EdgeSuccessConfidence = 0.95

// Options are per-call processing options. OptimizeForOCR and
// PreserveColors are not used by the coordinator itself; they are carried
// for the enhancement stages that run on its output.
type Options struct {
	ProgressCallback ProgressFunc
	OptimizeForOCR   bool
	PreserveColors   bool
}

// PerformanceMetrics describe one processing run.
type PerformanceMetrics struct {
	EdgeDetectionTime         time.Duration `json:"edge_detection_time_ns"`
	PerspectiveCorrectionTime time.Duration `json:"perspective_correction_time_ns"`
	TotalProcessingTime       time.Duration `json:"total_processing_time_ns"`

	// GPUUtilizationEstimate is the share of wall time spent in the two
	// filter stages, scaled by 0.9. It is not measured on a device.
	GPUUtilizationEstimate float64 `json:"gpu_utilization_estimate"`

	EdgeDetectionSuccess bool `json:"edge_detection_success"`

	// MemoryEstimateBytes is a configured estimate, never a measurement.
	// MemoryEstimated is always true to make that explicit.
	MemoryEstimateBytes int64 `json:"memory_estimate_bytes"`
	MemoryEstimated     bool  `json:"memory_estimated"`

	MeetsEdgeTarget       bool `json:"meets_edge_target"`
	MeetsCorrectionTarget bool `json:"meets_correction_target"`
}

// DocumentProcessingResult is the output of Process.
type DocumentProcessingResult struct {
	RunID string `json:"run_id"`

	// ProcessedImage is the rectified page.
	ProcessedImage *image.NRGBA `json:"-"`

	EdgeDetection         *detection.EdgeDetectionResult       `json:"edge_detection,omitempty"`
	PerspectiveCorrection *rectify.PerspectiveCorrectionResult `json:"perspective_correction,omitempty"`
	Performance           PerformanceMetrics                   `json:"performance"`
	Quality               quality.Metrics                      `json:"quality"`
}

// Coordinator runs detection, rectification and quality analysis in order.
// It holds no per-call state and is safe for concurrent use.
type Coordinator struct {
	rc        *imaging.RenderContext
	detector  *detection.Detector
	rectifier *rectify.Rectifier
	cfg       config.PipelineConfig
	log       logrus.FieldLogger
}

// NewCoordinator assembles a Coordinator from its stages.
func NewCoordinator(rc *imaging.RenderContext, detector *detection.Detector, rectifier *rectify.Rectifier, cfg config.PipelineConfig, log logrus.FieldLogger) *Coordinator {
	if rc == nil {
		rc = imaging.CPUContext()
	}
	return &Coordinator{
		rc:        rc,
		detector:  detector,
		rectifier: rectifier,
		cfg:       cfg,
		log:       logging.OrDiscard(log),
	}
}

// New builds a Coordinator and its stages from cfg. rectangles is the
// rectangle-detection capability; nil selects the contour detector.
//
// A GPU request that cannot be honoured is logged and processing continues
// on the CPU.
func New(cfg *config.Config, rectangles detection.RectangleDetector, log logrus.FieldLogger) *Coordinator {
	log = logging.OrDiscard(log)

	rc, err := imaging.NewRenderContext(cfg.Pipeline.PreferGPU)
	if err != nil {
		log.WithError(err).WithField("backend", rc.Backend()).Warn("GPU context unavailable, continuing on CPU")
	}
	if rectangles == nil {
		rectangles = detection.NewContourRectangleDetector()
	}

	detector := detection.NewDetector(rc, cfg.Detection, rectangles, log)
	rectifier := rectify.NewRectifier(rc, cfg.Rectification, log)
	return NewCoordinator(rc, detector, rectifier, cfg.Pipeline, log)
}

// RenderContext returns the context shared by the stages.
func (c *Coordinator) RenderContext() *imaging.RenderContext {
	return c.rc
}

// Detector returns the edge/corner detection stage.
func (c *Coordinator) Detector() *detection.Detector {
	return c.detector
}

// Rectifier returns the perspective correction stage.
func (c *Coordinator) Rectifier() *rectify.Rectifier {
	return c.rectifier
}

// run tracks one Process call.
type run struct {
	id    string
	state State
	log   logrus.FieldLogger
}

func (r *run) advance(next State) {
	if !r.state.canAdvance(next) {
		r.log.WithFields(logrus.Fields{"from": r.state, "to": next}).Warn("ignoring invalid state transition")
		return
	}
	r.state = next
	r.log.WithField("state", next).Debug("pipeline state changed")
}

func (r *run) fail(err error) error {
	r.advance(StateFailed)
	r.log.WithError(err).WithField("code", docerr.CodeOf(err)).Warn("document processing failed")
	return err
}

// Process detects the document in img, rectifies it and scores the result.
//
// Overall progress runs 0 to 0.4 during edge detection and 0.4 to 1.0
// during perspective correction, followed by a final qualityAnalysis event
// at 1.0. Events are delivered synchronously on the calling goroutine.
//
// Any stage error aborts the run and is returned unmodified; no partial
// result is produced. A context that is already done fails with Cancelled
// before any progress is reported.
func (c *Coordinator) Process(ctx context.Context, img image.Image, opts Options) (*DocumentProcessingResult, error) {
	start := time.Now()
	r := &run{id: uuid.NewString(), state: StateIdle}
	r.log = c.log.WithFields(logrus.Fields{"run_id": r.id, "stage": stageName})

	if err := ctx.Err(); err != nil {
		return nil, r.fail(docerr.FromContext(stageName, err))
	}
	if err := imaging.Validate(img); err != nil {
		return nil, r.fail(err)
	}

	progress := NewProgressReporter(opts.ProgressCallback)

	r.advance(StateEdgeDetecting)
	progress.Report(StepEdgeDetection, 0, 0)
	edgeStart := time.Now()
	edges, err := c.detector.DetectEdges(ctx, img, progress.Band(StepEdgeDetection, 0, edgeBandEnd))
	if err != nil {
		return nil, r.fail(err)
	}
	edgeTime := time.Since(edgeStart)

	if err := ctx.Err(); err != nil {
		return nil, r.fail(docerr.FromContext(stageName, err))
	}

	r.advance(StatePerspectiveCorrecting)
	progress.Report(StepPerspectiveCorrection, 0, edgeBandEnd)
	correctionStart := time.Now()
	correction, err := c.rectifier.CorrectPerspective(ctx, img, edges.Corners, edges.DocumentBounds,
		progress.Band(StepPerspectiveCorrection, edgeBandEnd, 1))
	if err != nil {
		return nil, r.fail(err)
	}
	correctionTime := time.Since(correctionStart)

	r.advance(StateQualityAnalyzing)
	signals, err := quality.Analyze(ctx, c.rc, correction.CorrectedImage)
	if err != nil {
		return nil, r.fail(err)
	}
	metrics := quality.Combine(signals, edges.Confidence, correction.CorrectionAccuracy)

	total := time.Since(start)
	perf := c.performance(edgeTime, correctionTime, total, edges.Confidence)

	r.advance(StateDone)
	progress.Finish(StepQualityAnalysis)

	r.log.WithFields(logrus.Fields{
		"duration_ms":        total.Milliseconds(),
		"confidence":         edges.Confidence,
		"corner_source":      edges.CornerSource,
		"accuracy":           correction.CorrectionAccuracy,
		"overall_confidence": metrics.OverallConfidence,
		"recommended_ocr":    metrics.RecommendedForOCR,
	}).Info("document processed")

	return &DocumentProcessingResult{
		RunID:                 r.id,
		ProcessedImage:        correction.CorrectedImage,
		EdgeDetection:         edges,
		PerspectiveCorrection: correction,
		Performance:           perf,
		Quality:               metrics,
	}, nil
}

func (c *Coordinator) performance(edgeTime, correctionTime, total time.Duration, edgeConfidence float64) PerformanceMetrics {
	return PerformanceMetrics{
		EdgeDetectionTime:         edgeTime,
		PerspectiveCorrectionTime: correctionTime,
		TotalProcessingTime:       total,
		GPUUtilizationEstimate:    UtilizationEstimate(edgeTime, correctionTime, total),
		EdgeDetectionSuccess:      edgeConfidence >= EdgeSuccessConfidence,
		MemoryEstimateBytes:       c.cfg.MemoryEstimateBytes,
		MemoryEstimated:           true,
		MeetsEdgeTarget:           c.cfg.EdgeTarget <= 0 || edgeTime <= c.cfg.EdgeTarget,
		MeetsCorrectionTarget:     c.cfg.CorrectionTarget <= 0 || correctionTime <= c.cfg.CorrectionTarget,
	}
}

// UtilizationEstimate is min(1, (edge+correction)/total × 0.9). A zero
// total yields 0.
func UtilizationEstimate(edge, correction, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(1, float64(edge+correction)/float64(total)*0.9)
}
