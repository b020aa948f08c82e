package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestStats(t *testing.T) {
	rc := CPUContext()

	half := solidImage(64, 64, color.Black)
	for y := 0; y < 64; y++ {
		for x := 32; x < 64; x++ {
			half.Set(x, y, color.White)
		}
	}

	tests := []struct {
		name     string
		img      image.Image
		wantMean float64
		wantStd  float64
	}{
		{"mid gray", solidImage(32, 32, color.Gray{Y: 128}), 128.0 / 255, 0},
		{"half black half white", half, 0.5, 0.5},
		{"large white frame is sampled", solidImage(1024, 1024, color.White), 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := rc.Stats(tt.img)
			if err != nil {
				t.Fatalf("Stats failed: %v", err)
			}
			if math.Abs(s.Mean-tt.wantMean) > 1e-3 {
				t.Errorf("Mean = %v, want %v", s.Mean, tt.wantMean)
			}
			if math.Abs(s.StdDev-tt.wantStd) > 1e-3 {
				t.Errorf("StdDev = %v, want %v", s.StdDev, tt.wantStd)
			}
		})
	}
}

func TestStats_SubImageUsesItsOwnBounds(t *testing.T) {
	rc := CPUContext()
	img := documentImage(100, 100, image.Rect(50, 0, 100, 100))
	sub := img.SubImage(image.Rect(60, 10, 90, 40))

	s, err := rc.Stats(sub)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if math.Abs(s.Mean-1) > 1e-3 {
		t.Errorf("sub-image mean = %v, want 1", s.Mean)
	}
}

func TestSampleStep(t *testing.T) {
	tests := []struct {
		w, h, want int
	}{
		{100, 100, 1},
		{512, 512, 1},
		{1024, 1024, 2},
		{4000, 3000, 7},
	}
	for _, tt := range tests {
		if got := sampleStep(tt.w, tt.h); got != tt.want {
			t.Errorf("sampleStep(%d,%d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestFieldStats(t *testing.T) {
	if s := FieldStats(nil); s.Mean != 0 || s.StdDev != 0 {
		t.Errorf("nil field: %+v", s)
	}
	f := &Field{Width: 2, Height: 1, Values: []float64{-0.5, 0.5}}
	s := FieldStats(f)
	if math.Abs(s.Mean) > 1e-12 || math.Abs(s.StdDev-0.5) > 1e-12 {
		t.Errorf("FieldStats = %+v, want mean 0 std 0.5", s)
	}
}
