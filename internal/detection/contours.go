package detection

import (
	"image"
	"image/draw"
	"math"

	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
)

// minContourPixels discards contours smaller than this as noise.
const minContourPixels = 10

// pixel is an integer position in a mask.
type pixel struct {
	X, Y int
}

// mask is a row-major binary image.
type mask struct {
	width, height int
	on            []bool
}

func newMask(width, height int) *mask {
	return &mask{width: width, height: height, on: make([]bool, width*height)}
}

func (m *mask) at(x, y int) bool {
	return m.on[y*m.width+x]
}

func (m *mask) count() int {
	n := 0
	for _, v := range m.on {
		if v {
			n++
		}
	}
	return n
}

// maskFromGray marks every non-zero pixel of g.
func maskFromGray(g *image.Gray) *mask {
	b := g.Bounds()
	m := newMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for x, v := range row {
			m.on[y*m.width+x] = v > 0
		}
	}
	return m
}

// lumaPlane converts img to 8-bit luminance using ITU-R BT.601 weights.
// The result is indexed from (0,0) regardless of img's origin.
func lumaPlane(img image.Image) (plane []uint8, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()

	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	plane = make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*rgba.Stride + x*4
			plane[y*width+x] = uint8(float64(rgba.Pix[i])*0.299 + float64(rgba.Pix[i+1])*0.587 + float64(rgba.Pix[i+2])*0.114)
		}
	}
	return plane, width, height
}

// detectEdges performs simple gradient-based edge detection.
//
// A pixel is an edge when its luminance differs from its right or bottom
// neighbour by more than step. Border pixels are never edges, so a contour
// traced around a bright page on a dark background is one pixel wide and
// its length approximates the page perimeter.
func detectEdges(img image.Image, step float64) *mask {
	luma, width, height := lumaPlane(img)
	m := newMask(width, height)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			c := float64(luma[y*width+x])
			dx := math.Abs(c - float64(luma[y*width+x+1]))
			dy := math.Abs(c - float64(luma[(y+1)*width+x]))
			if dx > step || dy > step {
				m.on[y*width+x] = true
			}
		}
	}
	return m
}

// findContours groups set mask pixels into 8-connected components.
// Components smaller than minPixels are discarded.
func findContours(m *mask, minPixels int) [][]pixel {
	visited := make([]bool, len(m.on))
	contours := make([][]pixel, 0)

	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.at(x, y) && !visited[y*m.width+x] {
				contour := floodFill(m, visited, x, y)
				if len(contour) >= minPixels {
					contours = append(contours, contour)
				}
			}
		}
	}
	return contours
}

// floodFill collects the component containing (startX, startY). It is
// iterative so large page outlines cannot overflow the goroutine stack.
func floodFill(m *mask, visited []bool, startX, startY int) []pixel {
	contour := make([]pixel, 0, 64)
	stack := []pixel{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= m.width || p.Y < 0 || p.Y >= m.height {
			continue
		}
		i := p.Y*m.width + p.X
		if visited[i] || !m.on[i] {
			continue
		}

		visited[i] = true
		contour = append(contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, pixel{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return contour
}

// extremeQuad approximates a contour by its four extreme points: the
// minimum and maximum of x+y (top-left, bottom-right) and of x-y
// (bottom-left, top-right). The result is ordered TL, TR, BR, BL, which
// holds for any outline rotated less than 45 degrees.
func extremeQuad(contour []pixel) geometry.Quadrilateral {
	if len(contour) == 0 {
		return nil
	}
	tl, tr, br, bl := contour[0], contour[0], contour[0], contour[0]
	for _, p := range contour[1:] {
		sum, diff := p.X+p.Y, p.X-p.Y
		if sum < tl.X+tl.Y {
			tl = p
		}
		if sum > br.X+br.Y {
			br = p
		}
		if diff > tr.X-tr.Y {
			tr = p
		}
		if diff < bl.X-bl.Y {
			bl = p
		}
	}
	toPoint := func(p pixel) geometry.Point {
		return geometry.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return geometry.Quadrilateral{toPoint(tl), toPoint(tr), toPoint(br), toPoint(bl)}
}

// rectangularity compares a contour's pixel count to the perimeter of the
// quadrilateral fitted to it. A one-pixel outline of a true quadrilateral
// scores close to 1; blobs, curves and open strokes score lower.
func rectangularity(contourPixels int, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	score := 1 - math.Abs(float64(contourPixels)-perimeter)/perimeter
	return math.Max(0, math.Min(1, score))
}
