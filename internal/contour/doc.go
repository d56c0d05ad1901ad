// Package contour traces the outer boundary of a binary mask with the
// Moore-neighbor algorithm.
//
// The tracer starts at the first foreground pixel in row-major order that
// touches the background or the grid edge, then walks the boundary clockwise
// (in image coordinates, y grows down) until it returns to the start pixel.
//
// Design decision: The walk is capped at DefaultMaxSteps. A mask with a thin
// bridge can make Moore tracing revisit pixels for a long time, and a
// highlight overlay is only an approximation of the region outline, so the
// tracer returns what it has instead of failing.
//
// Only the outer boundary of the first component found is traced. Holes and
// additional components are ignored.
package contour
