package imaging

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// maxStatSamples bounds the number of pixels read by Stats. Larger images
// are sampled on a regular grid covering the whole frame.
const maxStatSamples = 512 * 512

// GrayStats holds the population mean and standard deviation of grayscale
// intensity on a [0,1] scale.
type GrayStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Stats computes grayscale statistics over the whole image using ITU-R
// BT.601 luminance weights.
func (rc *RenderContext) Stats(img image.Image) (GrayStats, error) {
	if err := checkInput("stats", img); err != nil {
		return GrayStats{}, err
	}

	b := img.Bounds()
	step := sampleStep(b.Dx(), b.Dy())
	samples := make([]float64, 0, (b.Dx()/step+1)*(b.Dy()/step+1))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			samples = append(samples, luminance(img, x, y))
		}
	}

	mean, std := stat.PopMeanStdDev(samples, nil)
	return GrayStats{Mean: mean, StdDev: std}, nil
}

// FieldStats computes the population mean and standard deviation of a
// filter response.
func FieldStats(f *Field) GrayStats {
	if f == nil || len(f.Values) == 0 {
		return GrayStats{}
	}
	mean, std := stat.PopMeanStdDev(f.Values, nil)
	return GrayStats{Mean: mean, StdDev: std}
}

func sampleStep(w, h int) int {
	n := w * h
	if n <= maxStatSamples {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(n) / maxStatSamples)))
}

// luminance returns the BT.601 luminance of the pixel at (x, y) in [0,1].
func luminance(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535
}
