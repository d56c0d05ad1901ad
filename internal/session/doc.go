// Package session owns the state of one viewing session: the selected image,
// its analysis result and the current highlight.
//
// # State
//
// A Controller holds everything a viewer shows. Selecting an image bumps a
// generation counter and clears the previous result and highlight in one
// step, so a view can never pair an image with another image's analysis.
//
// # Stale responses
//
// Loading and processing run without the lock held. When they return, the
// controller compares the generation captured at the start with the current
// one and discards the response if the selection moved on. Callers receive
// ErrStaleResult, which is not a user-facing failure:
//
//	result, err := ctrl.Analyze(ctx)
//	if errors.Is(err, session.ErrStaleResult) {
//		return nil // the user already picked another image
//	}
//
// # Rendering
//
// Highlight changes are rendered through a pipeline.Pipeline and only
// committed when rendering succeeds, so an unknown label leaves the previous
// view in place.
package session
