// Package mask decodes run-length encoded region masks into dense binary
// grids and computes their bounding boxes.
//
// An RLE mask is a flat list of (start, length) pairs over the row-major
// flattening of a height x width grid: pixel (x, y) lives at index y*width+x.
// Decoding allocates the full grid, so the cost is O(height*width) for the
// allocation and the bounding-box scan plus O(sum of lengths) for filling.
//
// Design decision: Decoding fails fast on malformed input (odd pair count,
// negative values, runs past the end of the grid) instead of silently writing
// out of range. An all-background mask is not malformed; the mask is still
// returned alongside ErrEmptyMask so callers can show a "no mask data" state.
package mask
