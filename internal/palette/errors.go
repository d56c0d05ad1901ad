package palette

import "errors"

// ErrLabelConsistency describes a label present in the label grid that has no
// pixel to sample in the image. It is logged, never returned to callers.
var ErrLabelConsistency = errors.New("label has no sampled pixels")

// ErrUnsupportedAnalysis is returned by Build for a nil analysis.
var ErrUnsupportedAnalysis = errors.New("unsupported analysis")
