// Package detection locates the four corners of a document in a photograph.
//
// A Detector turns a raw image into a binarized edge map, an ordered
// quadrilateral approximating the page boundary, and a confidence score.
//
// # Algorithm Overview
//
//  1. Preprocess: desaturate, raise contrast, blur lightly
//  2. Edge Map: Sobel gradient magnitude, morphological minimum, fixed
//     threshold
//  3. Corners: ask the RectangleDetector for the page outline
//  4. Fallback: when no outline is reported, take the largest convex
//     outline in the edge map, or failing that a fixed inset from the frame
//  5. Confidence: blend edge density with corner quality
//
// # Rectangle Detection
//
// RectangleDetector abstracts whatever quadrilateral detector is available.
// Observations use normalized coordinates with a bottom-left origin and are
// converted to pixel coordinates with a top-left origin. The default
// implementation, ContourRectangleDetector, traces edge contours and scores
// them by rectangularity.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Corners are always ordered top-left, top-right, bottom-right, bottom-left.
//
// # Confidence Scores
//
//	edgeDensity   = min(1, mean(edgeMap) * 4)
//	cornerQuality = areaScore*0.5 + aspectScore*0.5
//	confidence    = edgeDensity*0.6 + cornerQuality*0.4
//
// Corner quality is multiplied by 0.75 for edge-map corners and by 0.5 for
// inset corners, so heuristic results never score as well as a detected
// outline.
package detection
