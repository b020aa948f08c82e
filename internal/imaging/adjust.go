package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
)

// Brightness scales every channel by (1 + change); change is in [-1, 1].
func (rc *RenderContext) Brightness(img image.Image, change float64) (*image.RGBA, error) {
	if err := checkInput("brightness", img); err != nil {
		return nil, err
	}
	return adjust.Brightness(rebase(img), change), nil
}

// Saturation multiplies HSL saturation by factor. 0 removes all colour,
// 1 leaves the image unchanged.
func (rc *RenderContext) Saturation(img image.Image, factor float64) (*image.RGBA, error) {
	if err := checkInput("saturation", img); err != nil {
		return nil, err
	}
	return adjust.Saturation(rebase(img), factor-1), nil
}

// Gamma raises normalized channel values to power. Powers below 1 brighten
// mid-tones.
func (rc *RenderContext) Gamma(img image.Image, power float64) (*image.RGBA, error) {
	if err := checkInput("gamma", img); err != nil {
		return nil, err
	}
	if power <= 0 {
		power = 1
	}
	return adjust.Gamma(rebase(img), 1/power), nil
}

// Median replaces each pixel with the median of its (2r+1)² neighbourhood.
func (rc *RenderContext) Median(img image.Image, radius float64) (*image.RGBA, error) {
	if err := checkInput("median", img); err != nil {
		return nil, err
	}
	return effect.Median(rebase(img), radius), nil
}

// Posterize quantizes each channel to the given number of levels.
func (rc *RenderContext) Posterize(img image.Image, levels int) (*image.RGBA, error) {
	if err := checkInput("posterize", img); err != nil {
		return nil, err
	}
	if levels < 2 {
		levels = 2
	}
	step := 255 / float64(levels-1)
	q := func(v uint8) uint8 {
		return uint8(math.Round(math.Round(float64(v)/step) * step))
	}
	return adjust.Apply(rebase(img), func(c color.RGBA) color.RGBA {
		return color.RGBA{R: q(c.R), G: q(c.G), B: q(c.B), A: c.A}
	}), nil
}
