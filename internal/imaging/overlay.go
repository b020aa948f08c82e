package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
)

const defaultOverlayColor = "#ff0000"

// OverlayOptions controls how a quadrilateral is drawn over an image.
type OverlayOptions struct {
	// Color is a "#rrggbb" hex string. Invalid values fall back to red.
	Color string

	// Opacity of the stroke in [0,1].
	Opacity float64

	// Thickness of the stroke in pixels.
	Thickness int
}

// DefaultOverlayOptions returns a 3px semi-opaque red stroke.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{Color: defaultOverlayColor, Opacity: 0.8, Thickness: 3}
}

// DrawQuadrilateral returns a copy of img with the closed polygon quad
// stroked over it and a filled marker on each corner. The stroke is blended
// with the underlying pixels in RGB space.
func (rc *RenderContext) DrawQuadrilateral(img image.Image, quad geometry.Quadrilateral, opts OverlayOptions) (*image.NRGBA, error) {
	if err := checkInput("overlay", img); err != nil {
		return nil, err
	}

	stroke, err := colorful.Hex(opts.Color)
	if err != nil {
		stroke, _ = colorful.Hex(defaultOverlayColor)
	}
	if opts.Thickness < 1 {
		opts.Thickness = 1
	}
	opacity := math.Max(0, math.Min(1, opts.Opacity))

	origin := img.Bounds().Min
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	mask := make([]bool, w*h)

	offset := geometry.Pt(float64(origin.X), float64(origin.Y))
	n := len(quad)
	for i := 0; i < n; i++ {
		a := quad[i].Sub(offset)
		b := quad[(i+1)%n].Sub(offset)
		markSegment(mask, w, h, a, b, opts.Thickness)
	}
	for _, p := range quad {
		markSquare(mask, w, h, p.Sub(offset), opts.Thickness*2+1)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			under, ok := colorful.MakeColor(out.NRGBAAt(x, y))
			if !ok {
				under = stroke
			}
			r, g, b := under.BlendRgb(stroke, opacity).Clamped().RGB255()
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out, nil
}

func markSegment(mask []bool, w, h int, a, b geometry.Point, thickness int) {
	steps := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
	if steps == 0 {
		markSquare(mask, w, h, a, thickness)
		return
	}
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		p := geometry.Pt(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t)
		markSquare(mask, w, h, p, thickness)
	}
}

func markSquare(mask []bool, w, h int, c geometry.Point, size int) {
	half := size / 2
	cx, cy := int(math.Round(c.X)), int(math.Round(c.Y))
	for y := cy - half; y <= cy-half+size-1; y++ {
		if y < 0 || y >= h {
			continue
		}
		for x := cx - half; x <= cx-half+size-1; x++ {
			if x < 0 || x >= w {
				continue
			}
			mask[y*w+x] = true
		}
	}
}
