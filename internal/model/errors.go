package model

import "errors"

var (
	// ErrUnknownAnalysisFormat is returned when an analysis payload matches
	// neither the label-grid shape nor the region-list shape.
	ErrUnknownAnalysisFormat = errors.New("unknown analysis format")

	// ErrDimensionMismatch is returned when the pixel rows and label rows of a
	// label-grid analysis disagree in size, or when rows are ragged.
	ErrDimensionMismatch = errors.New("analysis dimensions do not match")

	// ErrInvalidShape is returned when an RLE mask shape is not [height, width]
	// with positive values.
	ErrInvalidShape = errors.New("invalid mask shape")

	// ErrEnvelope is returned when a gateway envelope reports a failure or
	// cannot be unwrapped.
	ErrEnvelope = errors.New("invalid response envelope")
)
