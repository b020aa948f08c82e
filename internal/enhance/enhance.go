// Package enhance prepares a rectified page for display or text
// recognition. It runs after the pipeline and consumes its processing
// options.
package enhance

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
	"github.com/ironsheep/document-rectify-mcp/internal/pipeline"
)

const stageName = "enhancement"

// Enhancement parameters.
const (
	contrastPercent    = 30
	brightnessChange   = 0.1
	mutedSaturation    = 0.8
	gammaPower         = 0.9
	denoiseRadius      = 1
	ocrSharpenSigma    = 0.6
	photoSharpenSigma  = 0.4
	ocrContrastPercent = 50
	ocrBrightness      = 0.05
	ocrLevels          = 6
)

// Options select the enhancement variant.
type Options struct {
	// OptimizeForOCR adds a grayscale, high-contrast, posterized pass.
	OptimizeForOCR bool

	// PreserveColors keeps full saturation in the enhancement step.
	PreserveColors bool
}

// FromPipeline extracts the enhancement options from pipeline options.
func FromPipeline(o pipeline.Options) Options {
	return Options{OptimizeForOCR: o.OptimizeForOCR, PreserveColors: o.PreserveColors}
}

// ProgressFunc receives completion of each enhancement step in [0,1].
type ProgressFunc func(step pipeline.Step, progress float64)

// Steps lists the steps Apply runs for opts, in order.
func Steps(opts Options) []pipeline.Step {
	steps := []pipeline.Step{pipeline.StepEnhancement, pipeline.StepDenoising, pipeline.StepSharpening}
	if opts.OptimizeForOCR {
		steps = append(steps, pipeline.StepOptimization)
	}
	return steps
}

// Apply enhances img. Each step reports 0 when it starts and 1 when it
// finishes; progress may be nil. img is not modified.
func Apply(ctx context.Context, rc *imaging.RenderContext, img image.Image, opts Options, progress ProgressFunc) (*image.NRGBA, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if rc == nil {
		rc = imaging.CPUContext()
	}
	report := func(step pipeline.Step, p float64) {
		if progress != nil {
			progress(step, p)
		}
	}

	stages := map[pipeline.Step]func(image.Image) (image.Image, error){
		pipeline.StepEnhancement:  func(in image.Image) (image.Image, error) { return enhanceTone(rc, in, opts) },
		pipeline.StepDenoising:    func(in image.Image) (image.Image, error) { return rc.Median(in, denoiseRadius) },
		pipeline.StepSharpening:   func(in image.Image) (image.Image, error) { return sharpen(rc, in, opts) },
		pipeline.StepOptimization: func(in image.Image) (image.Image, error) { return optimizeForOCR(rc, in) },
	}

	current := img
	for _, step := range Steps(opts) {
		if err := ctx.Err(); err != nil {
			return nil, docerr.FromContext(stageName, err)
		}
		report(step, 0)
		out, err := stages[step](current)
		if err != nil {
			return nil, fmt.Errorf("failed to run %s: %w", step, err)
		}
		current = out
		report(step, 1)
	}

	return imaging.Clone(current), nil
}

func enhanceTone(rc *imaging.RenderContext, img image.Image, opts Options) (image.Image, error) {
	out, err := rc.AdjustContrast(img, contrastPercent)
	if err != nil {
		return nil, err
	}
	bright, err := rc.Brightness(out, brightnessChange)
	if err != nil {
		return nil, err
	}
	var toned image.Image = bright
	if !opts.PreserveColors {
		if toned, err = rc.Saturation(bright, mutedSaturation); err != nil {
			return nil, err
		}
	}
	return rc.Gamma(toned, gammaPower)
}

func sharpen(rc *imaging.RenderContext, img image.Image, opts Options) (image.Image, error) {
	sigma := photoSharpenSigma
	if opts.OptimizeForOCR {
		sigma = ocrSharpenSigma
	}
	return rc.Sharpen(img, sigma)
}

func optimizeForOCR(rc *imaging.RenderContext, img image.Image) (image.Image, error) {
	gray, err := rc.Desaturate(img)
	if err != nil {
		return nil, err
	}
	contrasted, err := rc.AdjustContrast(gray, ocrContrastPercent)
	if err != nil {
		return nil, err
	}
	bright, err := rc.Brightness(contrasted, ocrBrightness)
	if err != nil {
		return nil, err
	}
	return rc.Posterize(bright, ocrLevels)
}
