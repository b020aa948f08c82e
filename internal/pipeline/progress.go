package pipeline

import (
	"math"
	"time"
)

// Step identifies the processing step a progress event belongs to.
type Step string

const (
	StepEdgeDetection         Step = "edgeDetection"
	StepPerspectiveCorrection Step = "perspectiveCorrection"
	StepEnhancement           Step = "enhancement"
	StepDenoising             Step = "denoising"
	StepSharpening            Step = "sharpening"
	StepOptimization          Step = "optimization"
	StepQualityAnalysis       Step = "qualityAnalysis"
)

// Progress is a transient progress event.
type Progress struct {
	CurrentStep     Step    `json:"current_step"`
	StepProgress    float64 `json:"step_progress"`
	OverallProgress float64 `json:"overall_progress"`

	// EstimatedTimeRemaining is nil while too little work has been done to
	// extrapolate.
	EstimatedTimeRemaining *time.Duration `json:"estimated_time_remaining_ns,omitempty"`
}

// ProgressFunc receives progress events synchronously.
type ProgressFunc func(Progress)

// etaThreshold is the overall progress below which no estimate is given.
const etaThreshold = 0.1

// ProgressReporter forwards progress events with overall progress clamped
// to [0,1] and never decreasing. It is not safe for concurrent use; one
// reporter serves one processing call.
type ProgressReporter struct {
	fn    ProgressFunc
	start time.Time
	last  float64
	now   func() time.Time
}

// NewProgressReporter returns a reporter for fn. A nil fn discards events.
func NewProgressReporter(fn ProgressFunc) *ProgressReporter {
	return &ProgressReporter{fn: fn, start: time.Now(), now: time.Now}
}

// Report emits an event for step.
func (r *ProgressReporter) Report(step Step, stepProgress, overall float64) {
	if r == nil || r.fn == nil {
		return
	}
	overall = math.Max(r.last, clamp01(overall))
	r.last = overall

	p := Progress{
		CurrentStep:     step,
		StepProgress:    clamp01(stepProgress),
		OverallProgress: overall,
	}
	if overall > etaThreshold {
		elapsed := r.now().Sub(r.start)
		eta := time.Duration(float64(elapsed)/overall) - elapsed
		if eta < 0 {
			eta = 0
		}
		p.EstimatedTimeRemaining = &eta
	}
	r.fn(p)
}

// Finish emits the final event for step: complete, with nothing remaining.
func (r *ProgressReporter) Finish(step Step) {
	if r == nil || r.fn == nil {
		return
	}
	r.last = 1
	var zero time.Duration
	r.fn(Progress{
		CurrentStep:            step,
		StepProgress:           1,
		OverallProgress:        1,
		EstimatedTimeRemaining: &zero,
	})
}

// Band returns a stage-local progress function that maps [0,1] onto
// [from, to] of overall progress.
func (r *ProgressReporter) Band(step Step, from, to float64) func(float64) {
	return func(p float64) {
		r.Report(step, p, from+(to-from)*p)
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
