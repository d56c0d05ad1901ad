package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/nao1215/matsight/internal/contour"
	"github.com/nao1215/matsight/internal/mask"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/palette"
	"github.com/nao1215/matsight/internal/render"
	"github.com/nao1215/matsight/internal/report"
)

// PaletteStep builds the legend of the job's analysis.
//
// Design decision: The step takes an optional cache so that the session
// controller and the batch renderer share legends across jobs for the same
// analysis. Without a cache every job builds its own.
type PaletteStep struct {
	cache *palette.Cache
	opts  []palette.Option
}

// NewPaletteStep creates a palette step. cache may be nil.
func NewPaletteStep(cache *palette.Cache, opts ...palette.Option) *PaletteStep {
	return &PaletteStep{cache: cache, opts: opts}
}

// Name returns the step name.
func (s *PaletteStep) Name() string {
	return "palette"
}

// Do executes the palette step.
func (s *PaletteStep) Do(_ context.Context, job *Job) error {
	var (
		p   *palette.Palette
		err error
	)
	if s.cache != nil {
		p, err = s.cache.Get(job.Result)
	} else {
		p, err = palette.Build(job.Result.Analysis, s.opts...)
	}
	if err != nil {
		return err
	}
	job.Palette = p
	return nil
}

// HighlightStep resolves the job's highlight. For a region it decodes the
// RLE mask and traces the contour; a region without mask data sets
// job.NoMask instead of failing.
type HighlightStep struct {
	logger *slog.Logger
}

// NewHighlightStep creates a highlight step.
func NewHighlightStep(logger *slog.Logger) *HighlightStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &HighlightStep{logger: logger}
}

// Name returns the step name.
func (s *HighlightStep) Name() string {
	return "highlight"
}

// Do executes the highlight step.
func (s *HighlightStep) Do(_ context.Context, job *Job) error {
	if job.Palette == nil {
		return ErrMissingPalette
	}

	switch job.Highlight.Kind {
	case model.HighlightNone:
		return nil
	case model.HighlightLabel:
		if job.Result.Analysis.Kind() != model.KindLabelGrid {
			return fmt.Errorf("%w: label highlight on %s", ErrHighlightMismatch, job.Result.Analysis.Kind())
		}
		if _, ok := job.Palette.Lookup(job.Highlight.Label); !ok {
			return fmt.Errorf("%w: %d", ErrLabelNotFound, job.Highlight.Label)
		}
		return nil
	case model.HighlightRegion:
		return s.resolveRegion(job)
	default:
		return fmt.Errorf("%w: %v", ErrHighlightMismatch, job.Highlight)
	}
}

func (s *HighlightStep) resolveRegion(job *Job) error {
	if job.Result.Analysis.Kind() != model.KindRegionList {
		return fmt.Errorf("%w: region highlight on %s", ErrHighlightMismatch, job.Result.Analysis.Kind())
	}
	region, ok := job.Palette.Region(job.Highlight.Thickness, job.Highlight.Index)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegionNotFound, job.Highlight)
	}
	job.Region = &region

	if !region.HasMask() {
		s.markNoMask(job, "region has no mask")
		return nil
	}

	m, box, err := mask.DecodeRLE(*region.Mask)
	switch {
	case errors.Is(err, mask.ErrEmptyMask):
		s.markNoMask(job, "region mask is empty")
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", job.Highlight, err)
	}

	maxSteps := job.MaxTraceSteps
	if maxSteps <= 0 {
		maxSteps = contour.DefaultMaxSteps
	}
	c := contour.TraceLimit(m, maxSteps)
	if c.Truncated {
		s.logger.Warn("contour truncated",
			"job", job.Name,
			"region", region.ID,
			"max_steps", maxSteps,
		)
	}

	job.Mask = m
	job.Box = box
	job.Contour = &c
	return nil
}

// markNoMask records that the region cannot be outlined, keeping its
// reported position as a fallback box.
func (s *HighlightStep) markNoMask(job *Job, reason string) {
	job.NoMask = true
	if job.Region.Position != nil {
		job.Box = *job.Region.Position
	}
	s.logger.Debug("no mask data",
		"job", job.Name,
		"region", job.Region.ID,
		"reason", reason,
	)
}

// ComposeStep renders the view.
type ComposeStep struct{}

// NewComposeStep creates a compose step.
func NewComposeStep() *ComposeStep {
	return &ComposeStep{}
}

// Name returns the step name.
func (s *ComposeStep) Name() string {
	return "compose"
}

// Do executes the compose step.
func (s *ComposeStep) Do(_ context.Context, job *Job) error {
	req := render.Request{
		Base:   job.Base,
		Mode:   job.Mode,
		Stroke: job.Stroke,
	}
	if job.Palette != nil {
		req.Colors = job.Palette
	}

	switch a := job.Result.Analysis.(type) {
	case *model.LabelGridAnalysis:
		if req.Base == nil {
			base, err := render.FromPixels(a.Pixels)
			if err != nil {
				return err
			}
			req.Base = base
		}
		req.Labels = a.Labels
		if job.Highlight.Kind == model.HighlightLabel {
			label := job.Highlight.Label
			req.Selected = &label
		}
	case *model.RegionListAnalysis:
		if req.Base == nil {
			req.Base = blankCanvas(a)
		} else if w, h := a.Dimensions(); w > 0 && h > 0 {
			// Masks are in the pixel space of the analysed image; a base
			// of another size would misplace every outline.
			if b := req.Base.Bounds(); b.Dx() != w || b.Dy() != h {
				return fmt.Errorf("%w: image is %dx%d, masks are %dx%d",
					render.ErrDimensionMismatch, b.Dx(), b.Dy(), w, h)
			}
		}
		if req.Base == nil {
			// No uploaded image and no mask to size a canvas: there is
			// nothing to draw, but the summary is still useful.
			return nil
		}
		switch {
		case job.Contour != nil && !job.BoxOnly:
			req.Contour = job.Contour
		case !job.Box.Empty():
			box := job.Box
			req.Box = &box
		}
	}

	img, err := render.Render(req)
	if err != nil {
		return err
	}
	job.Image = img
	return nil
}

// blankCanvas returns a black image the size of the analysis masks, or nil
// when no mask carries a shape.
func blankCanvas(a *model.RegionListAnalysis) image.Image {
	w, h := a.Dimensions()
	if w <= 0 || h <= 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

// SummaryStep builds the downloadable summary.
type SummaryStep struct{}

// NewSummaryStep creates a summary step.
func NewSummaryStep() *SummaryStep {
	return &SummaryStep{}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do executes the summary step.
func (s *SummaryStep) Do(_ context.Context, job *Job) error {
	if job.Palette == nil {
		return ErrMissingPalette
	}
	job.Summary = report.NewSummary(job.Result, job.Palette, job.Metadata)
	return nil
}

// DefaultPipeline creates a pipeline with the palette, highlight, compose
// and summary steps. cache may be nil.
func DefaultPipeline(cache *palette.Cache, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := New(append([]Option{WithLogger(logger)}, opts...)...)
	p.AddSteps(
		NewPaletteStep(cache, palette.WithLogger(logger)),
		NewHighlightStep(logger),
		NewComposeStep(),
		NewSummaryStep(),
	)
	return p
}
