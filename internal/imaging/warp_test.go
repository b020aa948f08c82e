package imaging

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
)

var identity = geometry.Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

func TestWarp_Identity(t *testing.T) {
	rc := CPUContext()
	src := documentImage(40, 30, image.Rect(10, 5, 30, 25))

	out, err := rc.Warp(context.Background(), src, identity, 40, 30)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	for _, p := range []image.Point{{0, 0}, {10, 5}, {29, 24}, {30, 25}, {39, 29}} {
		want := src.RGBAAt(p.X, p.Y)
		got := out.NRGBAAt(p.X, p.Y)
		if got.R != want.R || got.A != 255 {
			t.Errorf("pixel %v = %v, want %v", p, got, want)
		}
	}
}

func TestWarp_TranslationLeavesOutsideTransparent(t *testing.T) {
	rc := CPUContext()
	src := solidImage(20, 20, color.White)
	// canvas (x, y) samples source (x-10, y)
	shift := geometry.Homography{1, 0, -10, 0, 1, 0, 0, 0, 1}

	out, err := rc.Warp(context.Background(), src, shift, 40, 20)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	if c := out.NRGBAAt(2, 10); c.A != 0 {
		t.Errorf("left of source should be transparent, got %v", c)
	}
	if c := out.NRGBAAt(15, 10); c.A != 255 || c.R != 255 {
		t.Errorf("inside source should be white, got %v", c)
	}
	if c := out.NRGBAAt(35, 10); c.A != 0 {
		t.Errorf("right of source should be transparent, got %v", c)
	}
}

func TestWarp_InterpolatesBetweenPixels(t *testing.T) {
	rc := CPUContext()
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 255})
	src.SetNRGBA(1, 0, color.NRGBA{200, 200, 200, 255})
	half := geometry.Homography{1, 0, 0.5, 0, 1, 0, 0, 0, 1}

	out, err := rc.Warp(context.Background(), src, half, 1, 1)
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	if c := out.NRGBAAt(0, 0); c.R != 100 {
		t.Errorf("R = %d, want 100", c.R)
	}
}

func TestWarp_Errors(t *testing.T) {
	rc := CPUContext()
	src := solidImage(8, 8, color.White)

	if _, err := rc.Warp(context.Background(), src, identity, 0, 8); !errors.Is(err, docerr.ErrProcessingFailed) {
		t.Errorf("zero canvas: expected ProcessingFailed, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rc.Warp(ctx, src, identity, 8, 8); !errors.Is(err, docerr.ErrCancelled) {
		t.Errorf("cancelled: expected Cancelled, got %v", err)
	}
}
