package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
)

// writeTestImage writes a solid PNG into dir and returns its path.
func writeTestImage(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, solidImage(width, height, c)); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache(4)
	path := writeTestImage(t, t.TempDir(), "doc.png", 100, 80, color.White)

	img1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img1.Bounds(); b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x80", b.Dx(), b.Dy())
	}

	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache(4)
	if _, err := cache.Load("/nonexistent/path/to/image.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	cache := NewImageCache(4)
	path := filepath.Join(t.TempDir(), "invalid.png")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := cache.Load(path)
	if !errors.Is(err, docerr.ErrInvalidInput) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
}

func TestImageCache_ReloadsChangedFile(t *testing.T) {
	cache := NewImageCache(4)
	dir := t.TempDir()
	path := writeTestImage(t, dir, "doc.png", 40, 40, color.White)

	if _, err := cache.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	writeTestImage(t, dir, "doc.png", 60, 30, color.Black)
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 60 {
		t.Errorf("expected reloaded image width 60, got %d", img.Bounds().Dx())
	}
}

func TestImageCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewImageCache(2)
	dir := t.TempDir()
	a := writeTestImage(t, dir, "a.png", 10, 10, color.White)
	b := writeTestImage(t, dir, "b.png", 10, 10, color.White)
	c := writeTestImage(t, dir, "c.png", 10, 10, color.White)

	imgA, _ := cache.Load(a)
	if _, err := cache.Load(b); err != nil {
		t.Fatal(err)
	}
	// Touch a so b becomes the eviction candidate.
	if _, err := cache.Load(a); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(c); err != nil {
		t.Fatal(err)
	}

	if cache.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cache.Len())
	}
	again, _ := cache.Load(a)
	if again != imgA {
		t.Error("a should still be cached")
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache(4)
	dir := t.TempDir()
	a := writeTestImage(t, dir, "a.png", 10, 10, color.White)
	b := writeTestImage(t, dir, "b.png", 10, 10, color.White)

	cache.Load(a)
	cache.Load(b)

	cache.Evict(a)
	cache.Evict("/not/cached.png")
	if cache.Len() != 1 {
		t.Errorf("after Evict Len() = %d, want 1", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("after Clear Len() = %d, want 0", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache(4)
	path := writeTestImage(t, t.TempDir(), "doc.png", 50, 50, color.Gray{Y: 128})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		wantErr bool
	}{
		{"nil", nil, true},
		{"zero width", image.NewRGBA(image.Rect(0, 0, 0, 10)), true},
		{"valid", image.NewRGBA(image.Rect(0, 0, 1, 1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.img)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, docerr.ErrInvalidInput) {
				t.Errorf("expected InvalidInput, got %v", err)
			}
		})
	}
}
