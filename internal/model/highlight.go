package model

import "fmt"

// HighlightKind identifies what a Highlight points at.
type HighlightKind int

const (
	// HighlightNone shows the analysis without emphasis.
	HighlightNone HighlightKind = iota
	// HighlightLabel emphasises one label of a label grid.
	HighlightLabel
	// HighlightRegion outlines one region of a region list.
	HighlightRegion
)

// Highlight is the current emphasis of a view. Label is used by
// HighlightLabel; Thickness and Index by HighlightRegion, where Index is the
// position of the region among those of the same thickness.
type Highlight struct {
	Kind      HighlightKind
	Label     int
	Thickness int
	Index     int
}

// LabelHighlight selects a label of a label grid.
func LabelHighlight(label int) Highlight {
	return Highlight{Kind: HighlightLabel, Label: label}
}

// RegionHighlight selects the index-th region of a thickness.
func RegionHighlight(thickness, index int) Highlight {
	return Highlight{Kind: HighlightRegion, Thickness: thickness, Index: index}
}

// IsZero reports whether nothing is highlighted.
func (h Highlight) IsZero() bool {
	return h.Kind == HighlightNone
}

// String implements fmt.Stringer.
func (h Highlight) String() string {
	switch h.Kind {
	case HighlightLabel:
		return fmt.Sprintf("label %d", h.Label)
	case HighlightRegion:
		return fmt.Sprintf("thickness %d region %d", h.Thickness, h.Index)
	default:
		return "none"
	}
}
