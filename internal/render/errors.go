package render

import "errors"

var (
	// ErrDimensionMismatch is returned when a label grid or a region mask
	// does not cover the base image exactly.
	ErrDimensionMismatch = errors.New("analysis does not match image dimensions")

	// ErrNoImage is returned when a view needs a base image and none was given.
	ErrNoImage = errors.New("no base image")
)
