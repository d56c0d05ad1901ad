package sample

import "errors"

var (
	// ErrUnsupportedFormat is returned when no registered decoder accepts the data.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrTooLarge is returned when the image data exceeds MaxImageSize.
	ErrTooLarge = errors.New("image exceeds size limit")

	// ErrInvalidDataURL is returned when a data URL cannot be split or decoded.
	ErrInvalidDataURL = errors.New("invalid data URL")
)
