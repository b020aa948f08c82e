package imaging

import (
	"image"

	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
)

// RenderContext evaluates filter graphs for the rectification stages.
//
// Whether the context is accelerated is resolved once, at construction.
// Filters produce identical output shapes either way; only timing differs.
// A RenderContext holds no mutable state and is safe for concurrent use.
type RenderContext struct {
	accelerated bool
	backend     string
}

// NewRenderContext creates a rendering context.
//
// The filters in this package run on the CPU. When preferGPU is set the
// returned context is still usable, and the accompanying GPUNotAvailable
// error tells the caller the request was downgraded. Callers are expected to
// log that error and carry on.
func NewRenderContext(preferGPU bool) (*RenderContext, error) {
	rc := CPUContext()
	if preferGPU {
		return rc, docerr.GPUNotAvailablef("no GPU-backed image context available, using %s", rc.backend)
	}
	return rc, nil
}

// CPUContext returns a context that evaluates filters on the CPU.
func CPUContext() *RenderContext {
	return &RenderContext{backend: "cpu"}
}

// Accelerated reports whether filters run on an accelerator.
func (rc *RenderContext) Accelerated() bool {
	return rc.accelerated
}

// Backend names the filter backend.
func (rc *RenderContext) Backend() string {
	return rc.backend
}

// Validate returns InvalidInput for a nil or zero-size image.
func Validate(img image.Image) error {
	if img == nil {
		return docerr.InvalidInputf("imaging", "image is nil")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return docerr.InvalidInputf("imaging", "image has zero size (%dx%d)", b.Dx(), b.Dy())
	}
	return nil
}

// checkInput guards every filter: a filter stage handed nothing to work on
// cannot produce output.
func checkInput(op string, img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return docerr.ProcessingFailedf("imaging", nil, "%s: no input image", op)
	}
	return nil
}
