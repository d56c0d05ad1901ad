// Package render composites analysis overlays onto images and encodes the
// result for display or download.
//
// Three views are supported:
//   - Recolor: the pixels of one selected label keep their colour and every
//     other pixel turns black (label-grid analyses).
//   - Colorize: every pixel is painted with its label's legend colour.
//   - Outline: a region contour, or its bounding box, is stroked over a copy
//     of the base image (region-list analyses).
//
// Every function allocates a fresh image with its origin at (0, 0) and the
// exact size of the source. Inputs are never modified.
//
// Lines are rasterized with Bresenham's algorithm and a square brush, which
// keeps closed contours free of gaps at diagonal steps.
package render
