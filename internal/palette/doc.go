// Package palette maps analysis labels to display colours, human-readable
// descriptions, and per-label statistics.
//
// Two mappings exist, one per analysis variant:
//   - Label grid: colours are sampled from the processed image itself, so the
//     legend matches what the analysis service painted. Background (-1) is
//     always black and listed first.
//   - Region list: colours are generated from the thickness on an HSL wheel
//     (30 degrees per layer) and regions are grouped by thickness with
//     size, aspect-ratio, and false-positive statistics.
//
// Design decision: A label that appears in the grid but has no pixel to sample
// never fails the mapping. It receives a synthetic hue from the golden-angle
// sequence (137.5 degrees per label), is flagged as Synthetic, and is logged
// at debug level. A legend with one guessed colour is more useful than none.
//
// Building a palette scans the whole label grid, so Cache memoises palettes by
// analysis ID; toggling a highlight must not rebuild the legend.
package palette
