// Package geometry provides the planar primitives used by detection and
// rectification: pixel-space points, axis-aligned rectangles, quadrilaterals
// and the 3x3 homography that maps one quadrilateral onto another.
//
// All coordinates are image pixels with the origin at the top-left corner
// and Y growing downward.
package geometry

import (
	"image"
	"math"
)

// Point is a location in image-pixel coordinates (not normalized).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Clamp restricts p to [0,width]x[0,height].
func (p Point) Clamp(width, height float64) Point {
	return Point{
		X: math.Max(0, math.Min(width, p.X)),
		Y: math.Max(0, math.Min(height, p.Y)),
	}
}

// Rect is an axis-aligned rectangle in pixel coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// AspectRatio returns width/height, or 0 for a degenerate rectangle.
func (r Rect) AspectRatio() float64 {
	if r.Height <= 0 {
		return 0
	}
	return r.Width / r.Height
}

// Corners returns the rectangle's corners clockwise from top-left.
func (r Rect) Corners() Quadrilateral {
	return Quadrilateral{
		{X: r.X, Y: r.Y},
		{X: r.MaxX(), Y: r.Y},
		{X: r.MaxX(), Y: r.MaxY()},
		{X: r.X, Y: r.MaxY()},
	}
}

// ImageRect rounds the rectangle outward-to-nearest into integer pixel bounds.
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.MaxX())),
		int(math.Round(r.MaxY())),
	)
}

// RectFromImage converts integer image bounds to a Rect.
func RectFromImage(b image.Rectangle) Rect {
	return Rect{
		X:      float64(b.Min.X),
		Y:      float64(b.Min.Y),
		Width:  float64(b.Dx()),
		Height: float64(b.Dy()),
	}
}
