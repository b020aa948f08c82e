package detection

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
)

var background = color.RGBA{40, 40, 40, 255}

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// createPageImage draws a white convex quadrilateral, ordered clockwise from
// top-left, on a dark background.
func createPageImage(width, height int, page geometry.Quadrilateral) *image.RGBA {
	img := createTestImage(width, height, background)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if insideClockwise(page, float64(x), float64(y)) {
				img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func insideClockwise(q geometry.Quadrilateral, x, y float64) bool {
	for i := range q {
		a, b := q[i], q[(i+1)%len(q)]
		if (b.X-a.X)*(y-a.Y)-(b.Y-a.Y)*(x-a.X) < 0 {
			return false
		}
	}
	return true
}

// skewedPage is a slightly skewed page in a 1000x1400 frame.
var skewedPage = geometry.Quadrilateral{
	{X: 100, Y: 150},
	{X: 900, Y: 140},
	{X: 910, Y: 1300},
	{X: 90, Y: 1310},
}

func closeTo(a, b geometry.Point, tol float64) bool {
	return a.Dist(b) <= tol
}
