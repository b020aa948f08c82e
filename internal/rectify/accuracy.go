package rectify

import (
	"math"

	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
)

// GeometricAccuracy scores how closely the source quadrilateral already
// matches the target rectangle: interior angles weigh 0.6, bounding-box
// aspect ratio 0.4.
func GeometricAccuracy(source, target geometry.Quadrilateral) float64 {
	if len(source) != 4 || len(target) != 4 {
		return 0
	}

	srcAngles := source.InteriorAngles()
	dstAngles := target.InteriorAngles()
	angleAccuracy := 0.0
	for i := 0; i < 4; i++ {
		diff := math.Abs(srcAngles[i] - dstAngles[i])
		angleAccuracy += 1 - math.Min(1, diff/(math.Pi/2))
	}
	angleAccuracy /= 4

	srcAspect := source.BoundingRect().AspectRatio()
	dstAspect := target.BoundingRect().AspectRatio()
	aspectAccuracy := 0.0
	if larger := math.Max(srcAspect, dstAspect); larger > 0 {
		aspectAccuracy = math.Max(0, 1-math.Abs(srcAspect-dstAspect)/larger)
	}

	return angleAccuracy*0.6 + aspectAccuracy*0.4
}

// QualityAccuracy scores the corrected image from its grayscale statistics.
// Resampling that washes out contrast or darkens the page lowers it.
func QualityAccuracy(stats imaging.GrayStats) float64 {
	contrastScore := math.Min(1, stats.StdDev*3)
	clarityScore := math.Min(1, stats.Mean*2)
	return contrastScore*0.6 + clarityScore*0.4
}

// CorrectionAccuracy blends geometric and quality accuracy, clamped to [0,1].
func CorrectionAccuracy(geometric, quality float64) float64 {
	v := geometric*0.7 + quality*0.3
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
