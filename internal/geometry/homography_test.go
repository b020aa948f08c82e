package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestComputeHomography_MapsCorrespondences(t *testing.T) {
	tests := []struct {
		name     string
		src, dst Quadrilateral
	}{
		{
			name: "identity",
			src:  Quadrilateral{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
			dst:  Quadrilateral{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
		},
		{
			name: "skewed document",
			src:  Quadrilateral{{50, 117.6}, {950, 117.6}, {950, 1282.4}, {50, 1282.4}},
			dst:  Quadrilateral{{100, 150}, {900, 140}, {910, 1300}, {90, 1310}},
		},
		{
			name: "strong perspective",
			src:  Quadrilateral{{0, 0}, {640, 0}, {640, 480}, {0, 480}},
			dst:  Quadrilateral{{120, 40}, {510, 15}, {630, 470}, {10, 420}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ComputeHomography(tt.src, tt.dst)
			if err != nil {
				t.Fatalf("ComputeHomography failed: %v", err)
			}
			for i := range tt.src {
				got, ok := h.Apply(tt.src[i])
				if !ok {
					t.Fatalf("point %d mapped to infinity", i)
				}
				if math.Abs(got.X-tt.dst[i].X) > 1e-6 || math.Abs(got.Y-tt.dst[i].Y) > 1e-6 {
					t.Errorf("point %d: got %v, want %v", i, got, tt.dst[i])
				}
			}
		})
	}
}

func TestComputeHomography_Degenerate(t *testing.T) {
	src := Quadrilateral{{0, 0}, {10, 0}, {20, 0}, {30, 0}}
	dst := Quadrilateral{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	if _, err := ComputeHomography(src, dst); !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
}

func TestComputeHomography_WrongCount(t *testing.T) {
	if _, err := ComputeHomography(Quadrilateral{{0, 0}, {1, 0}, {1, 1}}, make(Quadrilateral, 4)); err == nil {
		t.Error("expected error for 3 source points")
	}
}
