package pipeline

import "errors"

var (
	// ErrNoResult is returned when a job has no analysis result.
	ErrNoResult = errors.New("job has no analysis result")

	// ErrLabelNotFound is returned when the highlighted label does not occur
	// in the analysis.
	ErrLabelNotFound = errors.New("label not found in analysis")

	// ErrRegionNotFound is returned when no region exists at the highlighted
	// thickness and index.
	ErrRegionNotFound = errors.New("region not found in analysis")

	// ErrHighlightMismatch is returned when the highlight does not apply to
	// the analysis variant, e.g. a region highlight on a label grid.
	ErrHighlightMismatch = errors.New("highlight does not apply to this analysis")

	// ErrMissingPalette is returned when a step needs the palette and no
	// earlier step built it.
	ErrMissingPalette = errors.New("palette not built")
)
