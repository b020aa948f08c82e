package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform in row-major order with H[8]
// normalized to 1.
type Homography [9]float64

// ErrDegenerate is returned when four correspondences do not define a
// projective transform (collinear or coincident points).
var ErrDegenerate = errors.New("degenerate point correspondence")

// ComputeHomography returns the transform mapping each src[i] onto dst[i].
//
// The 8x8 linear system is solved with gonum after scaling both point sets
// into roughly unit range; pixel-sized coefficients otherwise leave the
// system badly conditioned.
func ComputeHomography(src, dst Quadrilateral) (Homography, error) {
	if len(src) != 4 || len(dst) != 4 {
		return Homography{}, fmt.Errorf("homography needs 4 correspondences, got %d and %d", len(src), len(dst))
	}

	ss := pointScale(src)
	sd := pointScale(dst)

	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X/ss, src[i].Y/ss
		u, v := dst[i].X/sd, dst[i].Y/sd

		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		b.SetVec(2*i, u)
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	// Undo the scaling: H = diag(sd,sd,1) * Hn * diag(1/ss,1/ss,1).
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			idx := r*3 + c
			val := 1.0
			if idx < 8 {
				val = h.AtVec(idx)
			}
			if r < 2 {
				val *= sd
			}
			if c < 2 {
				val /= ss
			}
			out[idx] = val
		}
	}

	if out[8] == 0 || math.IsNaN(out[8]) {
		return Homography{}, ErrDegenerate
	}
	for i := range out {
		out[i] /= out[8]
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return Homography{}, ErrDegenerate
		}
	}
	return out, nil
}

// Apply maps p through the transform. ok is false when p lands on the
// line at infinity.
func (h Homography) Apply(p Point) (q Point, ok bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

func pointScale(q Quadrilateral) float64 {
	s := 0.0
	for _, p := range q {
		s = math.Max(s, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	if s == 0 {
		return 1
	}
	return s
}
