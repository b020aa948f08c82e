package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"
	"time"

	"github.com/ironsheep/document-rectify-mcp/internal/config"
	"github.com/ironsheep/document-rectify-mcp/internal/detection"
	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
	"github.com/ironsheep/document-rectify-mcp/internal/logging"
)

// skewedPage is a slightly skewed page in a 1000x1400 frame.
var skewedPage = geometry.Quadrilateral{
	{X: 100, Y: 150},
	{X: 900, Y: 140},
	{X: 910, Y: 1300},
	{X: 90, Y: 1310},
}

func createPageImage(width, height int, page geometry.Quadrilateral) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{40, 40, 40, 255}}, image.Point{}, draw.Src)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			inside := true
			for i := range page {
				a, b := page[i], page[(i+1)%len(page)]
				if (b.X-a.X)*(float64(y)-a.Y)-(b.Y-a.Y)*(float64(x)-a.X) < 0 {
					inside = false
					break
				}
			}
			if inside {
				img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

// observation converts pixel corners to a normalized, bottom-left-origin
// rectangle observation.
func observation(q geometry.Quadrilateral, width, height int, confidence float64) *detection.RectangleObservation {
	conv := func(p geometry.Point) geometry.Point {
		return geometry.Pt(p.X/float64(width), 1-p.Y/float64(height))
	}
	return &detection.RectangleObservation{
		TopLeft:     conv(q[0]),
		TopRight:    conv(q[1]),
		BottomRight: conv(q[2]),
		BottomLeft:  conv(q[3]),
		Confidence:  confidence,
	}
}

func newTestCoordinator(rectangles detection.RectangleDetector) *Coordinator {
	return New(config.DefaultConfig(), rectangles, nil)
}

func TestProcess_EndToEnd(t *testing.T) {
	img := createPageImage(1000, 1400, skewedPage)
	coord := newTestCoordinator(detection.StaticRectangleDetector{
		Observation: observation(skewedPage, 1000, 1400, 0.92),
	})

	var events []Progress
	result, err := coord.Process(context.Background(), img, Options{
		ProgressCallback: func(p Progress) { events = append(events, p) },
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if result.EdgeDetection.CornerSource != detection.SourceCapability {
		t.Errorf("CornerSource = %q, want capability", result.EdgeDetection.CornerSource)
	}
	if result.PerspectiveCorrection.CorrectionAccuracy <= 0.6 {
		t.Errorf("CorrectionAccuracy = %v, want > 0.6", result.PerspectiveCorrection.CorrectionAccuracy)
	}
	if result.ProcessedImage != result.PerspectiveCorrection.CorrectedImage {
		t.Error("ProcessedImage should be the rectified page")
	}

	q := result.Quality
	if q.EdgeDetectionConfidence != result.EdgeDetection.Confidence {
		t.Errorf("quality edge confidence = %v, want %v", q.EdgeDetectionConfidence, result.EdgeDetection.Confidence)
	}
	if q.PerspectiveCorrectionAccuracy != result.PerspectiveCorrection.CorrectionAccuracy {
		t.Errorf("quality accuracy = %v, want %v", q.PerspectiveCorrectionAccuracy, result.PerspectiveCorrection.CorrectionAccuracy)
	}
	for name, v := range map[string]float64{
		"overall": q.OverallConfidence, "sharpness": q.SharpnessScore,
		"contrast": q.ContrastScore, "noise": q.NoiseLevel, "clarity": q.TextClarity,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, out of [0,1]", name, v)
		}
	}

	perf := result.Performance
	if perf.TotalProcessingTime < perf.EdgeDetectionTime+perf.PerspectiveCorrectionTime {
		t.Errorf("total time %v shorter than its stages", perf.TotalProcessingTime)
	}
	if !perf.MemoryEstimated || perf.MemoryEstimateBytes != 50*1024*1024 {
		t.Errorf("unexpected memory estimate: %+v", perf)
	}
	if perf.EdgeDetectionSuccess != (result.EdgeDetection.Confidence >= EdgeSuccessConfidence) {
		t.Errorf("EdgeDetectionSuccess = %v for confidence %v", perf.EdgeDetectionSuccess, result.EdgeDetection.Confidence)
	}

	assertProgress(t, events)
}

func assertProgress(t *testing.T, events []Progress) {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no progress reported")
	}
	if events[0].CurrentStep != StepEdgeDetection || events[0].OverallProgress != 0 {
		t.Errorf("first event = %+v, want edgeDetection at 0", events[0])
	}

	sawCorrectionStart := false
	last := -1.0
	for i, e := range events {
		if e.OverallProgress < last {
			t.Errorf("event %d: overall progress went from %v to %v", i, last, e.OverallProgress)
		}
		last = e.OverallProgress
		if e.CurrentStep == StepEdgeDetection && e.OverallProgress > edgeBandEnd+1e-9 {
			t.Errorf("event %d: edge detection at %v, beyond its band", i, e.OverallProgress)
		}
		if e.CurrentStep == StepPerspectiveCorrection {
			if e.OverallProgress < edgeBandEnd-1e-9 {
				t.Errorf("event %d: correction at %v, below its band", i, e.OverallProgress)
			}
			if e.StepProgress == 0 && math.Abs(e.OverallProgress-edgeBandEnd) < 1e-9 {
				sawCorrectionStart = true
			}
		}
	}
	if !sawCorrectionStart {
		t.Error("expected a perspectiveCorrection event at 0.4")
	}

	final := events[len(events)-1]
	if final.CurrentStep != StepQualityAnalysis || final.OverallProgress != 1 {
		t.Errorf("final event = %+v, want qualityAnalysis at 1.0", final)
	}
	if final.EstimatedTimeRemaining == nil || *final.EstimatedTimeRemaining != 0 {
		t.Errorf("final event should carry a zero ETA, got %v", final.EstimatedTimeRemaining)
	}
}

func TestProcess_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := newTestCoordinator(nil).Process(ctx, createPageImage(50, 50, skewedPage), Options{
		ProgressCallback: func(Progress) { calls++ },
	})
	if !errors.Is(err, docerr.ErrCancelled) {
		t.Errorf("expected Cancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in the chain, got %v", err)
	}
	if calls != 0 {
		t.Errorf("progress reported %d times after cancellation", calls)
	}
}

func TestProcess_CancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	img := createPageImage(300, 400, geometry.Rect{X: 30, Y: 40, Width: 240, Height: 320}.Corners())
	_, err := newTestCoordinator(nil).Process(ctx, img, Options{
		ProgressCallback: func(p Progress) {
			if p.CurrentStep == StepPerspectiveCorrection {
				cancel()
			}
		},
	})
	if !errors.Is(err, docerr.ErrCancelled) {
		t.Errorf("expected Cancelled, got %v", err)
	}
}

func TestProcess_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil", nil},
		{"empty", image.NewRGBA(image.Rect(0, 0, 0, 10))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestCoordinator(nil).Process(context.Background(), tt.img, Options{})
			if !errors.Is(err, docerr.ErrInvalidInput) {
				t.Errorf("expected InvalidInput, got %v", err)
			}
		})
	}
}

func TestRunFail_PropagatesStageError(t *testing.T) {
	stageErr := docerr.ProcessingFailedf("quality", nil, "analyze: no input image")

	for _, from := range []State{StateIdle, StateEdgeDetecting, StatePerspectiveCorrecting, StateQualityAnalyzing} {
		t.Run(from.String(), func(t *testing.T) {
			r := &run{id: "test", state: from, log: logging.Discard()}
			err := r.fail(stageErr)
			if err != error(stageErr) {
				t.Errorf("fail() = %v, want the stage error unmodified", err)
			}
			if r.state != StateFailed {
				t.Errorf("state = %v, want failed", r.state)
			}

			var de *docerr.Error
			if !errors.As(err, &de) || de.Stage != "quality" {
				t.Errorf("stage lost: %v", err)
			}
		})
	}
}

func TestProcess_BlankImageUsesInset(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 260))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	result, err := newTestCoordinator(nil).Process(context.Background(), img, Options{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.EdgeDetection.CornerSource != detection.SourceInset {
		t.Errorf("CornerSource = %q, want inset", result.EdgeDetection.CornerSource)
	}
	if result.Performance.EdgeDetectionSuccess {
		t.Error("an inset fallback should not count as a successful detection")
	}
}

func TestUtilizationEstimate(t *testing.T) {
	tests := []struct {
		name                     string
		edge, correction, total time.Duration
		want                     float64
	}{
		{"half the run", 250 * time.Millisecond, 250 * time.Millisecond, time.Second, 0.45},
		{"whole run", time.Second, time.Second, 2 * time.Second, 0.9},
		{"capped", 2 * time.Second, 2 * time.Second, time.Second, 1},
		{"zero total", time.Second, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UtilizationEstimate(tt.edge, tt.correction, tt.total); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("UtilizationEstimate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPerformance_Targets(t *testing.T) {
	cfg := config.DefaultConfig().Pipeline
	c := &Coordinator{cfg: cfg}

	fast := c.performance(100*time.Millisecond, 200*time.Millisecond, 400*time.Millisecond, 0.96)
	if !fast.MeetsEdgeTarget || !fast.MeetsCorrectionTarget || !fast.EdgeDetectionSuccess {
		t.Errorf("expected targets met and success, got %+v", fast)
	}

	slow := c.performance(3*time.Second, 3*time.Second, 7*time.Second, 0.95)
	if slow.MeetsEdgeTarget || slow.MeetsCorrectionTarget {
		t.Errorf("expected targets missed, got %+v", slow)
	}
	if !slow.EdgeDetectionSuccess {
		t.Error("confidence 0.95 should count as success")
	}
}
