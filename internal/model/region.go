package model

// Region is one detected flake from the region-list analysis.
//
// Only Thickness is required. Mask and Position are optional: the service
// omits the mask for flakes it could not segment, and Position is a
// server-computed bounding box that may disagree with the decoded mask.
// Consumers prefer the decoded mask when both are present.
type Region struct {
	// ID is an optional server-side identifier.
	ID string `json:"id,omitempty"`
	// Thickness is the layer count. It is used as-is (no rounding).
	Thickness int `json:"thickness"`
	// Size is the flake area in square micrometres.
	Size float64 `json:"size"`
	// AspectRatio is the ratio of the long side to the short side.
	AspectRatio float64 `json:"aspect_ratio"`
	// FalsePositiveProbability is in [0, 1].
	FalsePositiveProbability float64 `json:"false_positive_probability"`
	// Mask is the run-length encoded footprint of the flake.
	Mask *RLEMask `json:"mask,omitempty"`
	// Position is the server-computed bounding box.
	Position *BoundingBox `json:"position,omitempty"`
}

// HasMask reports whether the region carries a usable RLE mask.
func (r Region) HasMask() bool {
	return r.Mask != nil && len(r.Mask.RLE) > 0 && r.Mask.ValidateShape() == nil
}
