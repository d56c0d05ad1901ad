// Package model defines the core data structures used throughout MatSight.
//
// This package contains the following main types:
//   - RLEMask and BoundingBox: Run-length encoded region masks and their extents
//   - Region: A single detected flake returned by the region-list analysis
//   - Analysis: The tagged union of the two analysis result shapes
//   - AnalysisResult: An analysis bound to the image it was produced for
//   - Summary: The downloadable per-label summary artifact
//   - Highlight: The label or region a view emphasises
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The decoder, palette, renderer, store and report packages all
// consume these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON using the same field names
// the remote analysis service emits, so a stored analysis can be replayed offline.
package model
