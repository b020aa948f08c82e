package rectify

import (
	"image"
	"math"

	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
)

const (
	// refineSharpen is the unsharp sigma applied to each window before the
	// corner response is taken.
	refineSharpen = 0.8

	// minPeakResponse is 1% of the corner response range; weaker peaks are
	// treated as flat.
	minPeakResponse = 0.005
)

// refineCorners moves each corner to the strongest corner response in a
// window around it. Corners whose window gives no usable peak are kept.
// limit, when non-nil, restricts the windows. It returns the refined
// corners and how many of them moved.
func (r *Rectifier) refineCorners(img image.Image, corners geometry.Quadrilateral, limit *geometry.Rect) (geometry.Quadrilateral, int) {
	out := corners.Clone()
	moved := 0
	for i, c := range corners {
		if p, ok := r.refineCorner(img, c, limit); ok {
			out[i] = p
			if p != c {
				moved++
			}
		}
	}
	return out, moved
}

func (r *Rectifier) refineCorner(img image.Image, corner geometry.Point, limit *geometry.Rect) (geometry.Point, bool) {
	size := r.cfg.RefineWindow
	if size < 4 {
		return corner, false
	}

	half := size / 2
	cx, cy := int(math.Round(corner.X)), int(math.Round(corner.Y))
	window := image.Rect(cx-half, cy-half, cx-half+size, cy-half+size).Intersect(img.Bounds())
	if limit != nil {
		allowed := image.Rect(
			int(math.Floor(limit.X))-half,
			int(math.Floor(limit.Y))-half,
			int(math.Ceil(limit.MaxX()))+half,
			int(math.Ceil(limit.MaxY()))+half,
		)
		window = window.Intersect(allowed)
	}
	if window.Dx() < 3 || window.Dy() < 3 {
		return corner, false
	}

	patch, err := r.rc.Crop(img, window)
	if err != nil {
		return corner, false
	}
	sharpened, err := r.rc.Sharpen(patch, refineSharpen)
	if err != nil {
		return corner, false
	}
	response, err := r.rc.CornerResponse(sharpened)
	if err != nil {
		return corner, false
	}

	local := geometry.Point{X: corner.X - float64(window.Min.X), Y: corner.Y - float64(window.Min.Y)}
	px, py, peak := strongestResponse(response, local)
	if peak < minPeakResponse {
		return corner, false
	}

	centre := math.Abs(response.At(px, py))
	dx := parabolicOffset(
		math.Abs(response.At(px-1, py)), centre, math.Abs(response.At(px+1, py)))
	dy := parabolicOffset(
		math.Abs(response.At(px, py-1)), centre, math.Abs(response.At(px, py+1)))

	refined := geometry.Point{
		X: float64(window.Min.X+px) + dx,
		Y: float64(window.Min.Y+py) + dy,
	}
	if refined.X < float64(window.Min.X) || refined.X >= float64(window.Max.X) ||
		refined.Y < float64(window.Min.Y) || refined.Y >= float64(window.Max.Y) {
		return corner, false
	}
	return refined, true
}

// strongestResponse finds the largest absolute response, skipping the
// one-pixel border where clamped sampling produces false responses. The
// response saturates on hard edges, so among pixels within 10% of the peak
// the one nearest to near wins.
func strongestResponse(f *imaging.Field, near geometry.Point) (x, y int, peak float64) {
	for j := 1; j < f.Height-1; j++ {
		for i := 1; i < f.Width-1; i++ {
			if v := math.Abs(f.Values[j*f.Width+i]); v > peak {
				peak = v
			}
		}
	}
	if peak == 0 {
		return 0, 0, 0
	}

	best := math.Inf(1)
	for j := 1; j < f.Height-1; j++ {
		for i := 1; i < f.Width-1; i++ {
			if math.Abs(f.Values[j*f.Width+i]) < 0.9*peak {
				continue
			}
			if d := math.Hypot(float64(i)-near.X, float64(j)-near.Y); d < best {
				x, y, best = i, j, d
			}
		}
	}
	return x, y, peak
}

// parabolicOffset returns the sub-pixel position of the vertex of the
// parabola through (-1, left), (0, centre), (1, right), limited to half a
// pixel.
func parabolicOffset(left, centre, right float64) float64 {
	denom := left - 2*centre + right
	if denom == 0 {
		return 0
	}
	off := 0.5 * (left - right) / denom
	return math.Max(-0.5, math.Min(0.5, off))
}
