package rectify

import (
	"math"

	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
)

// PageFormat names the aspect ratio chosen for the corrected page.
type PageFormat string

const (
	FormatLetter PageFormat = "letter"
	FormatA4     PageFormat = "a4"
	FormatSource PageFormat = "source"
)

// Standard page aspect ratios (width / height).
const (
	LetterAspect = 8.5 / 11.0
	A4Aspect     = 210.0 / 297.0
)

// SnapAspect returns the standard page ratio within tolerance of ratio,
// trying US Letter before A4, or ratio itself when neither is close.
func SnapAspect(ratio, tolerance float64) (float64, PageFormat) {
	switch {
	case math.Abs(ratio-LetterAspect) < tolerance:
		return LetterAspect, FormatLetter
	case math.Abs(ratio-A4Aspect) < tolerance:
		return A4Aspect, FormatA4
	default:
		return ratio, FormatSource
	}
}

// FitRect returns the largest rectangle with the given aspect ratio that
// fits within fraction of a width x height frame, centred in the frame.
func FitRect(aspect, width, height, fraction float64) geometry.Rect {
	maxW := width * fraction
	maxH := height * fraction

	var w, h float64
	if aspect <= 0 {
		return geometry.Rect{X: width / 2, Y: height / 2}
	}
	if maxW/maxH > aspect {
		// Height constrained
		h = maxH
		w = h * aspect
	} else {
		w = maxW
		h = w / aspect
	}

	return geometry.Rect{
		X:      width/2 - w/2,
		Y:      height/2 - h/2,
		Width:  w,
		Height: h,
	}
}

// TargetRect derives the rectangle the source corners are mapped onto.
func TargetRect(source geometry.Quadrilateral, width, height, fraction, tolerance float64) (geometry.Rect, PageFormat) {
	aspect, format := SnapAspect(source.BoundingRect().AspectRatio(), tolerance)
	return FitRect(aspect, width, height, fraction), format
}
