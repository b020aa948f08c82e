package ocr

import (
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
	"github.com/ironsheep/document-rectify-mcp/internal/quality"
)

// DefaultLanguage is used when no language is given.
const DefaultLanguage = "eng"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized word.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this word in the image.
	Bounds Bounds `json:"bounds"`
}

// Result contains the text recognized on a page.
type Result struct {
	// FullText is all recognized text with original spacing and newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with their bounding boxes.
	// May be empty if bounding box extraction fails (text will still be in FullText).
	Regions []TextRegion `json:"regions"`

	Language string `json:"language"`
}

// ShouldRecognize reports whether text recognition is worth running on a
// page with the given quality. force overrides the recommendation.
func ShouldRecognize(m quality.Metrics, force bool) bool {
	return force || m.RecommendedForOCR
}

// Recognize performs OCR on an in-memory image.
//
// The image is encoded as PNG and handed to Tesseract without touching the
// filesystem. language is a Tesseract language code such as "eng"; the
// matching language data must be installed.
//
// If word-level bounding box extraction fails, the full text is still
// returned with an empty Regions slice.
func Recognize(img image.Image, language string) (*Result, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if language == "" {
		language = DefaultLanguage
	}

	data, err := imaging.PNGBytes(img)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	result := &Result{FullText: text, Regions: []TextRegion{}, Language: language}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, nil
	}
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		result.Regions = append(result.Regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return result, nil
}

// RecognizeRegion performs OCR on region of img. Bounding boxes in the
// result are in img's coordinates, not the region's.
func RecognizeRegion(rc *imaging.RenderContext, img image.Image, region image.Rectangle, language string) (*Result, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if rc == nil {
		rc = imaging.CPUContext()
	}

	cropped, err := rc.Crop(img, region)
	if err != nil {
		return nil, err
	}

	result, err := Recognize(cropped, language)
	if err != nil {
		return nil, err
	}

	offsetRegions(result.Regions, region.Intersect(img.Bounds()).Min)
	return result, nil
}

// offsetRegions shifts every region by d.
func offsetRegions(regions []TextRegion, d image.Point) {
	for i := range regions {
		regions[i].Bounds.X1 += d.X
		regions[i].Bounds.Y1 += d.Y
		regions[i].Bounds.X2 += d.X
		regions[i].Bounds.Y2 += d.Y
	}
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
