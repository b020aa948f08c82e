package detection

import (
	"image"

	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
)

// largestEdgeQuad searches the binarized edge map for the largest convex
// outline covering at least MinSize² of the frame. Its extreme points are
// returned as TL, TR, BR, BL corners.
func (d *Detector) largestEdgeQuad(edgeMap *image.Gray) (geometry.Quadrilateral, bool) {
	b := edgeMap.Bounds()
	minArea := d.cfg.Rectangle.MinSize * d.cfg.Rectangle.MinSize * float64(b.Dx()*b.Dy())

	var best geometry.Quadrilateral
	bestArea := 0.0
	for _, contour := range findContours(maskFromGray(edgeMap), minContourPixels) {
		quad := extremeQuad(contour)
		if !quad.IsConvex() {
			continue
		}
		area := quad.Area()
		if area < minArea || area <= bestArea {
			continue
		}
		best, bestArea = quad, area
	}
	return best, best != nil
}

// insetCorners returns the corners of the frame shrunk by fraction of each
// dimension on every side.
func insetCorners(width, height int, fraction float64) geometry.Quadrilateral {
	if fraction < 0 || fraction >= 0.5 {
		fraction = 0.05
	}
	dx := float64(width) * fraction
	dy := float64(height) * fraction
	r := geometry.Rect{
		X:      dx,
		Y:      dy,
		Width:  float64(width) - 2*dx,
		Height: float64(height) - 2*dy,
	}
	return r.Corners()
}
