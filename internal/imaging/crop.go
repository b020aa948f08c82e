package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
)

// ImageResult contains an image encoded as base64 PNG
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts r from img. The region is intersected with the image
// bounds; an empty intersection is an error. The result has its origin at
// (0,0).
func (rc *RenderContext) Crop(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	if err := checkInput("crop", img); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	region := r.Intersect(bounds)
	if region.Empty() {
		return nil, docerr.ProcessingFailedf("imaging", nil,
			"crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return imaging.Crop(img, region), nil
}

// EncodePNG encodes img as a base64 PNG result.
func EncodePNG(img image.Image) (*ImageResult, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &ImageResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// PNGBytes encodes img as PNG.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes img to path; the format follows the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
