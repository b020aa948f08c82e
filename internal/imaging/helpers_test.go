package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// solidImage returns a width x height image filled with c.
func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// documentImage returns a dark frame with a white axis-aligned page in r.
func documentImage(width, height int, r image.Rectangle) *image.RGBA {
	img := solidImage(width, height, color.RGBA{40, 40, 40, 255})
	draw.Draw(img, r, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}
