package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidThreshold is returned when the detection threshold is outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 0 and 1")

	// ErrInvalidStrokeWidth is returned when the outline width is below one pixel.
	ErrInvalidStrokeWidth = errors.New("invalid stroke width: must be at least 1")

	// ErrInvalidTraceSteps is returned when the contour step cap is not positive.
	ErrInvalidTraceSteps = errors.New("invalid max trace steps: must be positive")

	// ErrInvalidSampleLimit is returned when the colour sample limit is not positive.
	ErrInvalidSampleLimit = errors.New("invalid sample limit: must be positive")

	// ErrInvalidMode is returned for an unknown --mode value.
	ErrInvalidMode = errors.New("invalid mode: must be recolor, palette, outline or box")

	// ErrInvalidColor is returned when a colour is not #rrggbb.
	ErrInvalidColor = errors.New("invalid colour: must be #rrggbb")
)
