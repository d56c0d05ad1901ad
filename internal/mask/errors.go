package mask

import "errors"

var (
	// ErrMalformedRLE is returned when the RLE list has an odd length,
	// contains negative values, or describes a run outside the grid.
	ErrMalformedRLE = errors.New("malformed RLE mask")

	// ErrEmptyMask is returned when the decoded mask has no foreground pixels.
	// The empty mask is still returned alongside it.
	ErrEmptyMask = errors.New("mask has no foreground pixels")
)
