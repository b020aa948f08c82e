package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// 3x3 kernels, row-major.
var (
	sobelX = [9]float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}
	sobelY = [9]float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	}
	laplacian = []float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}
	cornerKernel = []float64{
		1, -2, 1,
		-2, 4, -2,
		1, -2, 1,
	}
)

// signedBias shifts signed convolution output into the 8-bit range so the
// sign survives clamping.
const signedBias = 128

// Field is a per-pixel scalar response, row-major.
type Field struct {
	Width  int
	Height int
	Values []float64
}

// At returns the value at (x, y). Coordinates are clamped to the field.
func (f *Field) At(x, y int) float64 {
	x = clamp(x, 0, f.Width-1)
	y = clamp(y, 0, f.Height-1)
	return f.Values[y*f.Width+x]
}

// Desaturate returns a grayscale copy of img.
func (rc *RenderContext) Desaturate(img image.Image) (*image.NRGBA, error) {
	if err := checkInput("desaturate", img); err != nil {
		return nil, err
	}
	return imaging.Grayscale(img), nil
}

// AdjustContrast changes contrast by percent in the range (-100, 100).
func (rc *RenderContext) AdjustContrast(img image.Image, percent float64) (*image.NRGBA, error) {
	if err := checkInput("contrast", img); err != nil {
		return nil, err
	}
	return imaging.AdjustContrast(img, percent), nil
}

// Blur applies a Gaussian blur with the given sigma.
func (rc *RenderContext) Blur(img image.Image, sigma float64) (*image.NRGBA, error) {
	if err := checkInput("blur", img); err != nil {
		return nil, err
	}
	return imaging.Blur(img, sigma), nil
}

// Sharpen applies an unsharp mask with the given sigma. A non-positive
// sigma returns an unmodified copy.
func (rc *RenderContext) Sharpen(img image.Image, sigma float64) (*image.NRGBA, error) {
	if err := checkInput("sharpen", img); err != nil {
		return nil, err
	}
	if sigma <= 0 {
		return imaging.Clone(img), nil
	}
	return imaging.Sharpen(img, sigma), nil
}

// Clone returns an NRGBA copy of img with its origin at (0,0).
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// GradientMagnitude computes the Sobel gradient magnitude of img.
//
// Each kernel is normalized by the sum of its positive weights, so a full
// black-to-white step produces 255 (1.0 on the normalized scale). The
// magnitude sqrt(gx² + gy²) is capped at 255.
func (rc *RenderContext) GradientMagnitude(img image.Image) (*image.Gray, error) {
	if err := checkInput("gradient", img); err != nil {
		return nil, err
	}

	gray := imaging.Grayscale(img)
	opts := &imaging.ConvolveOptions{Normalize: true, Abs: true}
	gx := imaging.Convolve3x3(gray, sobelX, opts)
	gy := imaging.Convolve3x3(gray, sobelY, opts)

	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*gx.Stride + x*4
			m := math.Hypot(float64(gx.Pix[i]), float64(gy.Pix[i]))
			if m > 255 {
				m = 255
			}
			out.Pix[y*out.Stride+x] = uint8(m + 0.5)
		}
	}
	return out, nil
}

// Erode applies a morphological minimum with the given radius. Radius 0.5
// uses a 2x2 window.
func (rc *RenderContext) Erode(img image.Image, radius float64) (*image.Gray, error) {
	if err := checkInput("erode", img); err != nil {
		return nil, err
	}
	return redChannel(effect.Erode(rebase(img), radius)), nil
}

// Threshold binarizes img at level on a [0,1] scale: pixels at or above
// the level become 255, the rest 0.
func (rc *RenderContext) Threshold(img image.Image, level float64) (*image.Gray, error) {
	if err := checkInput("threshold", img); err != nil {
		return nil, err
	}
	level = math.Max(0, math.Min(1, level))
	return segment.Threshold(rebase(img), uint8(math.Round(level*255))), nil
}

// HighPass returns the signed Laplacian response of the grayscale image,
// scaled so one intensity unit is 1/255.
func (rc *RenderContext) HighPass(img image.Image) (*Field, error) {
	if err := checkInput("highpass", img); err != nil {
		return nil, err
	}
	return signedResponse(img, laplacian), nil
}

// CornerResponse returns the signed response of a Harris-style corner
// kernel over the grayscale image.
func (rc *RenderContext) CornerResponse(img image.Image) (*Field, error) {
	if err := checkInput("corner response", img); err != nil {
		return nil, err
	}
	return signedResponse(img, cornerKernel), nil
}

func signedResponse(img image.Image, kernel []float64) *Field {
	gray := imaging.Grayscale(img)
	k := &convolution.Kernel{Matrix: kernel, Width: 3, Height: 3}
	res := convolution.Convolve(gray, k, &convolution.Options{Bias: signedBias, KeepAlpha: true})

	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	f := &Field{Width: w, Height: h, Values: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(res.Pix[y*res.Stride+x*4])
			f.Values[y*w+x] = (v - signedBias) / 255
		}
	}
	return f
}

// MeanIntensity returns the mean of a gray image on a [0,1] scale.
func MeanIntensity(g *image.Gray) float64 {
	b := g.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, v := range row {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(n) / 255
}

// rebase returns img with its origin at (0,0). bild filters index pixel
// buffers from zero, so sub-images must be copied first.
func rebase(img image.Image) image.Image {
	if img.Bounds().Min == (image.Point{}) {
		return img
	}
	return imaging.Clone(img)
}

func redChannel(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = src.Pix[y*src.Stride+x*4]
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
