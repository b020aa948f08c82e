package imaging

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
)

// Warp resamples img into a width x height canvas. inverse maps canvas
// coordinates back into img; each canvas pixel is filled by bilinear
// interpolation at that source position. Positions outside img stay
// transparent.
//
// ctx is checked every few rows so a long warp can be abandoned.
func (rc *RenderContext) Warp(ctx context.Context, img image.Image, inverse geometry.Homography, width, height int) (*image.NRGBA, error) {
	if err := checkInput("warp", img); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, docerr.ProcessingFailedf("imaging", nil, "warp: invalid canvas %dx%d", width, height)
	}

	src := imaging.Clone(img)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, docerr.FromContext("imaging", err)
			}
		}
		for x := 0; x < width; x++ {
			p, ok := inverse.Apply(geometry.Point{X: float64(x), Y: float64(y)})
			if !ok {
				continue
			}
			i := y*out.Stride + x*4
			sampleBilinear(src, p.X, p.Y, out.Pix[i:i+4])
		}
	}
	return out, nil
}

// sampleBilinear writes the interpolated colour of src at (fx, fy) into
// dst. Positions more than half a pixel outside src leave dst untouched.
func sampleBilinear(src *image.NRGBA, fx, fy float64, dst []uint8) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if fx < -0.5 || fy < -0.5 || fx > float64(w)-0.5 || fy > float64(h)-0.5 {
		return
	}

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	x1 := clamp(x0+1, 0, w-1)
	y1 := clamp(y0+1, 0, h-1)
	x0 = clamp(x0, 0, w-1)
	y0 = clamp(y0, 0, h-1)

	p00 := src.Pix[y0*src.Stride+x0*4:]
	p10 := src.Pix[y0*src.Stride+x1*4:]
	p01 := src.Pix[y1*src.Stride+x0*4:]
	p11 := src.Pix[y1*src.Stride+x1*4:]

	for c := 0; c < 4; c++ {
		top := float64(p00[c])*(1-tx) + float64(p10[c])*tx
		bottom := float64(p01[c])*(1-tx) + float64(p11[c])*tx
		v := top*(1-ty) + bottom*ty
		dst[c] = uint8(math.Max(0, math.Min(255, v+0.5)))
	}
}
