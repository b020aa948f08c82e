package geometry

import (
	"fmt"
	"math"
	"sort"
)

// Quadrilateral is an ordered corner set. Rectification requires exactly
// four points ordered clockwise from the top-left-most corner; the slice
// form lets callers hand in malformed sets that Validate rejects.
type Quadrilateral []Point

// Validate checks that q has exactly four points.
func (q Quadrilateral) Validate() error {
	if len(q) != 4 {
		return fmt.Errorf("quadrilateral needs exactly 4 points, got %d", len(q))
	}
	return nil
}

// Clone returns a copy of q.
func (q Quadrilateral) Clone() Quadrilateral {
	out := make(Quadrilateral, len(q))
	copy(out, q)
	return out
}

// Area returns the polygon area using the shoelace formula.
func (q Quadrilateral) Area() float64 {
	n := len(q)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the closed polygon perimeter.
func (q Quadrilateral) Perimeter() float64 {
	n := len(q)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += q[i].Dist(q[(i+1)%n])
	}
	return sum
}

// Centroid returns the mean of the vertices.
func (q Quadrilateral) Centroid() Point {
	if len(q) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(q))
	return Point{X: c.X / n, Y: c.Y / n}
}

// BoundingRect returns the axis-aligned rectangle enclosing q.
func (q Quadrilateral) BoundingRect() Rect {
	if len(q) == 0 {
		return Rect{}
	}
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := q[0].X, q[0].Y
	for _, p := range q[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Clamp returns a copy of q with every point restricted to the image frame.
func (q Quadrilateral) Clamp(width, height float64) Quadrilateral {
	out := make(Quadrilateral, len(q))
	for i, p := range q {
		out[i] = p.Clamp(width, height)
	}
	return out
}

// SortClockwise orders the points by polar angle around the centroid and
// rotates the result so the point with the smallest X+Y comes first. With
// Y pointing down, ascending atan2 angles run clockwise on screen, giving
// top-left, top-right, bottom-right, bottom-left for a document-like shape.
func (q Quadrilateral) SortClockwise() Quadrilateral {
	if len(q) == 0 {
		return Quadrilateral{}
	}
	c := q.Centroid()
	out := q.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		return polarAngle(out[i], c) < polarAngle(out[j], c)
	})

	first := 0
	for i, p := range out {
		if p.X+p.Y < out[first].X+out[first].Y {
			first = i
		}
	}
	return append(out[first:], out[:first]...)
}

func polarAngle(p, c Point) float64 {
	return math.Atan2(p.Y-c.Y, p.X-c.X)
}

// InteriorAngles returns the angle at each vertex in radians, in [0, π].
// The angle is taken between the two edge vectors leaving the vertex, so it
// never wraps around ±π the way differences of atan2 headings can.
func (q Quadrilateral) InteriorAngles() []float64 {
	n := len(q)
	angles := make([]float64, n)
	if n < 3 {
		return angles
	}
	for i := 0; i < n; i++ {
		prev := q[(i+n-1)%n].Sub(q[i])
		next := q[(i+1)%n].Sub(q[i])
		la := math.Hypot(prev.X, prev.Y)
		lb := math.Hypot(next.X, next.Y)
		if la == 0 || lb == 0 {
			continue
		}
		cos := (prev.X*next.X + prev.Y*next.Y) / (la * lb)
		angles[i] = math.Acos(math.Max(-1, math.Min(1, cos)))
	}
	return angles
}

// IsConvex reports whether q is a strictly convex polygon.
func (q Quadrilateral) IsConvex() bool {
	n := len(q)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		a := q[i]
		b := q[(i+1)%n]
		c := q[(i+2)%n]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		switch {
		case cross > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		default:
			return false
		}
	}
	return true
}

// EnclosingSize returns the width and height used for corner-quality
// scoring: the longer of the two horizontal edges and the longer of the two
// vertical edges of a top-left-first clockwise quadrilateral.
func (q Quadrilateral) EnclosingSize() (width, height float64) {
	if len(q) != 4 {
		r := q.BoundingRect()
		return r.Width, r.Height
	}
	width = math.Max(q[1].X-q[0].X, q[2].X-q[3].X)
	height = math.Max(q[3].Y-q[0].Y, q[2].Y-q[1].Y)
	return width, height
}
