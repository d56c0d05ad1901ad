package model

import "time"

// Summary is the downloadable description of one analysis: what each label
// means, how much of the image it covers, and the flake statistics when the
// analysis is a region list.
type Summary struct {
	// AnalysisID is the AnalysisResult.ID the summary was built from.
	AnalysisID string `json:"analysis_id,omitempty"`
	// ImageKey is the analysed image.
	ImageKey string `json:"image_key"`
	// Kind is the analysis variant name.
	Kind string `json:"kind"`
	// GeneratedAt is when the summary was produced.
	GeneratedAt time.Time `json:"generated_at"`
	// Width and Height are the image dimensions, zero when unknown.
	Width  int `json:"width"`
	Height int `json:"height"`
	// TotalPixels is Width*Height.
	TotalPixels int `json:"total_pixels"`
	// Count is the number of distinct non-background labels (label grid) or
	// distinct thicknesses (region list).
	Count int `json:"count"`
	// TotalFlakes is the server-reported flake total (region list only).
	TotalFlakes int `json:"total_flakes,omitempty"`
	// Labels holds one entry per label, ordered as displayed.
	Labels []LabelSummary `json:"labels"`
	// DetectionParameters are echoed from the analysis (region list only).
	DetectionParameters map[string]any `json:"detection_parameters,omitempty"`
	// Metadata carries sample metadata such as EXIF acquisition tags.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LabelSummary describes a single label or thickness.
type LabelSummary struct {
	// Key is the label value or thickness.
	Key int `json:"key"`
	// Description is the display text, e.g. "2 Layers".
	Description string `json:"description"`
	// Color is the display colour as #rrggbb.
	Color string `json:"color"`
	// Synthetic is true when the colour was generated because no pixel
	// carried the label.
	Synthetic bool `json:"synthetic,omitempty"`
	// PixelCount is the number of pixels covered.
	PixelCount int `json:"pixel_count"`
	// Percentage is PixelCount relative to TotalPixels, in [0, 100].
	Percentage float64 `json:"percentage"`
	// FlakeCount is the number of regions with this thickness.
	FlakeCount int `json:"flake_count,omitempty"`
	// TotalSize is the summed flake area in square micrometres.
	TotalSize float64 `json:"total_size,omitempty"`
	// MeanSize is the mean flake area in square micrometres.
	MeanSize float64 `json:"mean_size,omitempty"`
	// MeanAspectRatio is the mean flake aspect ratio.
	MeanAspectRatio float64 `json:"mean_aspect_ratio,omitempty"`
	// MeanFalsePositive is the mean false-positive probability in [0, 1].
	MeanFalsePositive float64 `json:"mean_false_positive,omitempty"`
}
