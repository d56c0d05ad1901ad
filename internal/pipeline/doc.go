// Package pipeline renders analysis results through a sequence of steps.
//
// A Job carries one analysis result and what the caller wants to see. The
// default pipeline runs four steps over it:
//  1. palette: build (or fetch from cache) the legend
//  2. highlight: resolve the highlighted label or region, decoding the
//     region's RLE mask and tracing its contour
//  3. compose: render the view over the base image
//  4. summary: build the downloadable summary
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context between steps
//
// The pipeline supports both individual jobs and batch processing with
// concurrency control using errgroup.
package pipeline
