package pipeline

import (
	"image"

	"github.com/nao1215/matsight/internal/contour"
	"github.com/nao1215/matsight/internal/mask"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/palette"
	"github.com/nao1215/matsight/internal/render"
	"github.com/nao1215/matsight/internal/sample"
)

// Job is one render request and, after execution, its results.
//
// Inputs are set by the caller. Outputs are filled in by the steps in order;
// a step may read any output of an earlier step.
type Job struct {
	// Name identifies the job in logs, typically the analysis file or image key.
	Name string

	// Result is the analysis to render.
	Result *model.AnalysisResult

	// Base is the image overlays are drawn on. Label grids fall back to
	// their processed pixels; region lists fall back to a black canvas the
	// size of their masks.
	Base image.Image

	// Highlight is the emphasised label or region.
	Highlight model.Highlight

	// Mode selects the label-grid view.
	Mode render.Mode

	// BoxOnly draws a highlighted region's bounding box instead of its contour.
	BoxOnly bool

	// Stroke styles outlines. The zero value means render.DefaultStroke.
	Stroke render.Stroke

	// MaxTraceSteps caps contour tracing. Zero means contour.DefaultMaxSteps.
	MaxTraceSteps int

	// Metadata is attached to the summary, e.g. EXIF tags of the base image.
	Metadata map[string]string

	// Palette is the legend of Result.
	Palette *palette.Palette

	// Region is the highlighted region, when Highlight selects one.
	Region *model.Region

	// Mask is the decoded mask of Region.
	Mask *mask.Mask

	// Box is the bounding box of Mask, or Region.Position when the region
	// has no usable mask.
	Box model.BoundingBox

	// Contour is the traced outline of Mask.
	Contour *contour.Contour

	// NoMask is set when the highlighted region has no mask data or its mask
	// is empty. It is a display state, not an error.
	NoMask bool

	// Image is the rendered view. It stays nil for a region list that has
	// neither a base image nor a mask to size a canvas from.
	Image *image.RGBA

	// Summary is the downloadable summary.
	Summary *model.Summary

	// Err is the last step error, if any.
	Err error

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Cancelled is set when the context ended before every step ran.
	Cancelled bool
}

// NewJob creates a job for result with no highlight.
func NewJob(name string, result *model.AnalysisResult) *Job {
	return &Job{
		Name:   name,
		Result: result,
	}
}

// UseSample attaches a loaded image to the job. Its metadata goes into the
// summary. Its pixels become the base only for region lists, because a label
// grid is always shown over the processed image it was computed on.
func (j *Job) UseSample(s *sample.Sample) {
	if s == nil {
		return
	}
	j.Metadata = s.Metadata
	if j.Result != nil && j.Result.Analysis != nil && j.Result.Analysis.Kind() == model.KindRegionList {
		j.Base = s.Image
	}
}
