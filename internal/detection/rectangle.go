package detection

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
)

// DefaultEdgeStep is the luminance difference, in 0-255 units, that marks
// an edge pixel for contour tracing.
const DefaultEdgeStep = 30.0

// ContourRectangleDetector finds document outlines using edge and contour
// analysis. It is the default RectangleDetector.
//
// # Algorithm
//
//  1. Edge Detection: mark pixels whose luminance steps by more than
//     EdgeStep against the right or bottom neighbour
//  2. Contour Finding: flood-fill connected edge pixels (8-connected)
//  3. Quadrilateral: take the contour's extreme points as its corners
//  4. Rectangularity: Score = 1 - |contour_length - quad_perimeter| / quad_perimeter
//  5. Filtering: drop non-convex shapes and those outside the requested
//     size, aspect and confidence bounds
//  6. Ranking: largest area first, then highest score
//
// # Limitations
//
//   - Outlines rotated 45 degrees or more get their corners mislabelled
//   - Low-contrast page borders produce broken contours and no candidate
//   - Rounded corners reduce the rectangularity score
type ContourRectangleDetector struct {
	// EdgeStep overrides DefaultEdgeStep when positive.
	EdgeStep float64
}

// NewContourRectangleDetector returns a detector with default settings.
func NewContourRectangleDetector() *ContourRectangleDetector {
	return &ContourRectangleDetector{EdgeStep: DefaultEdgeStep}
}

type rectangleCandidate struct {
	quad       geometry.Quadrilateral
	confidence float64
	area       float64
}

// DetectRectangle returns the largest quadrilateral in img that satisfies
// opts, or nil when none does. Among outlines of equal area the most
// confident wins; a large page therefore beats a smaller, cleaner box
// printed on it.
func (d *ContourRectangleDetector) DetectRectangle(ctx context.Context, img image.Image, opts RectangleOptions) (*RectangleObservation, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	step := d.EdgeStep
	if step <= 0 {
		step = DefaultEdgeStep
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	edges := detectEdges(img, step)
	contours := findContours(edges, minContourPixels)

	shortSide := math.Min(float64(width), float64(height))
	candidates := make([]rectangleCandidate, 0)

	for i, contour := range contours {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		quad := extremeQuad(contour)
		if !quad.IsConvex() {
			continue
		}

		qw, qh := quad.EnclosingSize()
		if qw <= 0 || qh <= 0 {
			continue
		}
		if math.Min(qw, qh) < opts.MinSize*shortSide {
			continue
		}

		aspect := qw / qh
		if opts.MinAspectRatio > 0 && aspect < opts.MinAspectRatio {
			continue
		}
		if opts.MaxAspectRatio > 0 && aspect > opts.MaxAspectRatio {
			continue
		}

		confidence := rectangularity(len(contour), quad.Perimeter())
		if confidence < opts.MinConfidence {
			continue
		}

		candidates = append(candidates, rectangleCandidate{
			quad:       quad,
			confidence: confidence,
			area:       quad.Area(),
		})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// Sort by area descending; the page is the largest outline in frame
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].area != candidates[j].area {
			return candidates[i].area > candidates[j].area
		}
		return candidates[i].confidence > candidates[j].confidence
	})

	limit := opts.MaxObservations
	if limit < 1 {
		limit = 1
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	best := candidates[0]
	return observationFromPixels(best.quad, width, height, best.confidence), nil
}
