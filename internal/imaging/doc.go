// Package imaging provides the rendering context and image primitives used by
// the rectification stages.
//
// A RenderContext evaluates the filters the detector, rectifier and quality
// analyzer are built from: desaturation, contrast, Gaussian blur, Sobel
// gradient magnitude, morphological erosion, thresholding, unsharp
// sharpening, signed high-pass and corner responses, and grayscale
// statistics. Filters never modify their input; each returns a new image
// whose origin is (0,0).
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X growing
// rightward and Y growing downward. Regions are half-open: Min is inclusive,
// Max is exclusive.
//
// # Normalized Scales
//
// Gray images produced by filters use 0-255 for [0,1]. Signed responses are
// returned as a Field of float64 values where one intensity step is 1/255.
//
// # Thread Safety
//
// RenderContext is immutable and safe for concurrent use. ImageCache is safe
// for concurrent use.
//
// # Error Handling
//
// Validate reports nil or zero-size inputs as InvalidInput. Filters handed an
// empty image fail with ProcessingFailed. Both come from package docerr.
package imaging
