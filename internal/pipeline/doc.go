// Package pipeline coordinates a full document rectification run.
//
// A run moves through Idle, EdgeDetecting, PerspectiveCorrecting,
// QualityAnalyzing and Done, or to Failed on the first stage error. Stage
// errors are returned unmodified and never retried.
//
// Basic usage:
//
//	coord := pipeline.New(config.DefaultConfig(), nil, log)
//	result, err := coord.Process(ctx, img, pipeline.Options{
//	    ProgressCallback: func(p pipeline.Progress) { ... },
//	})
package pipeline
