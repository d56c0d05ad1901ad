package session

import "errors"

var (
	// ErrStaleResult is returned when a response arrives for a selection that
	// is no longer current. The response has been discarded.
	ErrStaleResult = errors.New("selection changed before the response arrived")

	// ErrNoSelection is returned when an operation needs a selected image.
	ErrNoSelection = errors.New("no image selected")

	// ErrNoAnalysis is returned when an operation needs an analysis result.
	ErrNoAnalysis = errors.New("no analysis for the selected image")

	// ErrNoProcessor is returned by Analyze when the controller was built
	// without a Processor.
	ErrNoProcessor = errors.New("no processor configured")
)
