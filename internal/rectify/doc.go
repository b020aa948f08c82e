// Package rectify removes perspective distortion from a photographed page.
//
// Given four document corners, a Rectifier orders and refines them, picks a
// target rectangle (snapping to US Letter or A4 when the detected shape is
// close), warps the page onto it with a homography, and scores the result.
//
// # Accuracy
//
//	geometric = angleAccuracy*0.6 + aspectAccuracy*0.4
//	quality   = min(1, stddev*3)*0.6 + min(1, mean*2)*0.4
//	accuracy  = geometric*0.7 + quality*0.3
//
// Interior angles come from the dot product of adjacent edges, so they lie
// in [0, π] and never wrap.
package rectify
