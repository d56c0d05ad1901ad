package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/matsight/internal/contour"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/palette"
	"github.com/nao1215/matsight/internal/pipeline"
	"github.com/nao1215/matsight/internal/render"
	"github.com/nao1215/matsight/internal/sample"
)

// ImageSource loads the image stored under a key. *api.Client satisfies it.
type ImageSource interface {
	LoadImage(ctx context.Context, key string) (*sample.Sample, error)
}

// Processor runs the remote analysis of an image. *api.Client satisfies it.
type Processor interface {
	Process(ctx context.Context, key string) (model.Analysis, error)
}

// Store persists analysis results. *database.AnalysisDB satisfies it.
type Store interface {
	SaveAnalysis(ctx context.Context, result *model.AnalysisResult, summary *model.Summary) error
}

// Selection identifies the selected image. Generation increases on every
// Select call, including reselecting the same key.
type Selection struct {
	Key        string
	Generation uint64
}

// Outcome is the result of an asynchronous analysis.
type Outcome struct {
	Result *model.AnalysisResult
	Err    error
}

// View is a rendered state of the session.
type View struct {
	// Image is the composed view. It is nil for a region list with neither a
	// base image nor a mask to size a canvas from.
	Image *image.RGBA
	// Highlight is the highlight the view was rendered with.
	Highlight model.Highlight
	// NoMask is set when the highlighted region has no usable mask.
	NoMask bool
	// Region is the highlighted region, if any.
	Region *model.Region
	// Box is the outlined bounding box of the highlighted region.
	Box model.BoundingBox
	// Contour is the traced outline of the highlighted region.
	Contour *contour.Contour
	// Palette is the legend of the analysis.
	Palette *palette.Palette
	// Summary is the downloadable summary.
	Summary *model.Summary
}

// Controller owns the state of a viewing session. It is safe for concurrent
// use.
//
// Design decision: State lives behind one mutex and is never touched while a
// remote call or a render is running. Long operations snapshot what they
// need, release the lock, and re-check the generation before committing.
// This keeps the UI responsive and makes stale responses impossible to apply.
type Controller struct {
	source    ImageSource
	processor Processor
	store     Store
	cache     *palette.Cache
	pipeline  *pipeline.Pipeline
	logger    *slog.Logger

	material string
	mode     render.Mode
	stroke   render.Stroke
	boxOnly  bool
	maxSteps int

	mu        sync.Mutex
	selection Selection
	base      *sample.Sample
	result    *model.AnalysisResult
	highlight model.Highlight
}

// Option configures a Controller.
type Option func(*Controller)

// WithImageSource sets where Select loads base images from.
func WithImageSource(source ImageSource) Option {
	return func(c *Controller) {
		c.source = source
	}
}

// WithProcessor sets the remote analysis used by Analyze.
func WithProcessor(processor Processor) Option {
	return func(c *Controller) {
		c.processor = processor
	}
}

// WithStore persists every applied analysis together with its summary.
func WithStore(store Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithPaletteCache shares legends with other users of cache.
func WithPaletteCache(cache *palette.Cache) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaterial sets the material recorded on analysis results.
func WithMaterial(material string) Option {
	return func(c *Controller) {
		c.material = material
	}
}

// WithRenderOptions sets how views are composed.
func WithRenderOptions(mode render.Mode, stroke render.Stroke, boxOnly bool) Option {
	return func(c *Controller) {
		c.mode = mode
		c.stroke = stroke
		c.boxOnly = boxOnly
	}
}

// WithMaxTraceSteps caps contour tracing.
func WithMaxTraceSteps(n int) Option {
	return func(c *Controller) {
		c.maxSteps = n
	}
}

// New creates a controller with nothing selected.
func New(opts ...Option) *Controller {
	c := &Controller{
		logger: slog.Default(),
		stroke: render.DefaultStroke,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.pipeline = pipeline.DefaultPipeline(c.cache, c.logger)
	return c
}

// Selection returns the current selection.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Result returns the analysis of the selected image, or nil.
func (c *Controller) Result() *model.AnalysisResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Highlight returns the committed highlight.
func (c *Controller) Highlight() model.Highlight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlight
}

// Base returns the loaded image of the selection, or nil.
func (c *Controller) Base() *sample.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base
}

// Select makes key the current image. The previous result and highlight are
// cleared immediately. When an ImageSource is configured the image is loaded
// and attached if the selection is still current; otherwise ErrStaleResult is
// returned. An empty key clears the selection.
func (c *Controller) Select(ctx context.Context, key string) error {
	c.mu.Lock()
	c.selection = Selection{Key: key, Generation: c.selection.Generation + 1}
	c.base = nil
	c.result = nil
	c.highlight = model.Highlight{}
	sel := c.selection
	c.mu.Unlock()

	c.logger.Debug("image selected", "key", key, "generation", sel.Generation)

	if key == "" || c.source == nil {
		return nil
	}

	s, err := c.source.LoadImage(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection != sel {
		c.logger.Debug("discarding stale image", "key", key, "generation", sel.Generation)
		return ErrStaleResult
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	c.base = s
	return nil
}

// SetBase attaches an already loaded image to the current selection.
func (c *Controller) SetBase(s *sample.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection.Key == "" {
		return ErrNoSelection
	}
	c.base = s
	return nil
}

// Analyze processes the selected image and applies the result if the
// selection has not changed meanwhile. A stale response is dropped and
// reported as ErrStaleResult.
func (c *Controller) Analyze(ctx context.Context) (*model.AnalysisResult, error) {
	if c.processor == nil {
		return nil, ErrNoProcessor
	}

	c.mu.Lock()
	sel := c.selection
	base := c.base
	c.mu.Unlock()
	if sel.Key == "" {
		return nil, ErrNoSelection
	}

	start := time.Now()
	analysis, err := c.processor.Process(ctx, sel.Key)
	if !c.current(sel) {
		c.logger.Debug("discarding stale analysis",
			"key", sel.Key,
			"generation", sel.Generation,
		)
		return nil, ErrStaleResult
	}
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", sel.Key, err)
	}

	result := &model.AnalysisResult{
		ID:        uuid.NewString(),
		ImageKey:  sel.Key,
		Material:  c.material,
		CreatedAt: time.Now().UTC(),
		Analysis:  analysis,
	}
	if base != nil {
		result.ImageHash = base.Hash
	}

	if err := c.apply(ctx, sel, result, true); err != nil {
		return nil, err
	}
	c.logger.Info("analysis applied",
		"key", sel.Key,
		"kind", analysis.Kind(),
		"elapsed", time.Since(start),
	)
	return result, nil
}

// AnalyzeAsync runs Analyze on a new goroutine. The channel receives exactly
// one Outcome and is then closed.
func (c *Controller) AnalyzeAsync(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		result, err := c.Analyze(ctx)
		ch <- Outcome{Result: result, Err: err}
	}()
	return ch
}

// Adopt applies a previously computed result, e.g. one restored from the
// store, to the current selection. The result's image key must match. An
// adopted result is not written back to the store.
func (c *Controller) Adopt(ctx context.Context, result *model.AnalysisResult) error {
	if result == nil || result.Analysis == nil {
		return ErrNoAnalysis
	}
	c.mu.Lock()
	sel := c.selection
	c.mu.Unlock()
	if sel.Key == "" {
		return ErrNoSelection
	}
	if result.ImageKey != "" && result.ImageKey != sel.Key {
		return fmt.Errorf("%w: result is for %s, selected %s", ErrStaleResult, result.ImageKey, sel.Key)
	}
	return c.apply(ctx, sel, result, false)
}

// apply commits result if sel is still current and, when persist is set,
// hands it to the store. A store failure is logged, not returned: the result
// is already on screen.
func (c *Controller) apply(ctx context.Context, sel Selection, result *model.AnalysisResult, persist bool) error {
	c.mu.Lock()
	if c.selection != sel {
		c.mu.Unlock()
		return ErrStaleResult
	}
	c.result = result
	c.highlight = model.Highlight{}
	base := c.base
	c.mu.Unlock()

	if !persist || c.store == nil {
		return nil
	}
	view, err := c.render(ctx, result, base, model.Highlight{})
	if err != nil {
		c.logger.Warn("failed to summarize analysis", "key", sel.Key, "error", err)
		return nil
	}
	if err := c.store.SaveAnalysis(ctx, result, view.Summary); err != nil {
		c.logger.Warn("failed to store analysis", "key", sel.Key, "error", err)
	}
	return nil
}

// HighlightLabel renders the view with label emphasised and commits the
// highlight on success.
func (c *Controller) HighlightLabel(ctx context.Context, label int) (*View, error) {
	return c.setHighlight(ctx, model.LabelHighlight(label))
}

// HighlightRegion renders the outline of the index-th region of thickness
// and commits the highlight on success. A region without mask data is not an
// error: the view reports NoMask and falls back to the region's position.
func (c *Controller) HighlightRegion(ctx context.Context, thickness, index int) (*View, error) {
	return c.setHighlight(ctx, model.RegionHighlight(thickness, index))
}

// ClearHighlight removes any highlight.
func (c *Controller) ClearHighlight() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.highlight = model.Highlight{}
}

// Render composes the current state.
func (c *Controller) Render(ctx context.Context) (*View, error) {
	c.mu.Lock()
	result, base, h := c.result, c.base, c.highlight
	c.mu.Unlock()
	if result == nil {
		return nil, ErrNoAnalysis
	}
	return c.render(ctx, result, base, h)
}

func (c *Controller) setHighlight(ctx context.Context, h model.Highlight) (*View, error) {
	c.mu.Lock()
	sel, result, base := c.selection, c.result, c.base
	c.mu.Unlock()
	if result == nil {
		return nil, ErrNoAnalysis
	}

	view, err := c.render(ctx, result, base, h)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection != sel || c.result != result {
		return nil, ErrStaleResult
	}
	c.highlight = h
	return view, nil
}

func (c *Controller) render(ctx context.Context, result *model.AnalysisResult, base *sample.Sample, h model.Highlight) (*View, error) {
	job := pipeline.NewJob(result.ImageKey, result)
	job.Highlight = h
	job.Mode = c.mode
	job.Stroke = c.stroke
	job.BoxOnly = c.boxOnly
	job.MaxTraceSteps = c.maxSteps
	job.UseSample(base)

	if err := c.pipeline.Execute(ctx, job); err != nil {
		return nil, err
	}
	return &View{
		Image:     job.Image,
		Highlight: h,
		NoMask:    job.NoMask,
		Region:    job.Region,
		Box:       job.Box,
		Contour:   job.Contour,
		Palette:   job.Palette,
		Summary:   job.Summary,
	}, nil
}

func (c *Controller) current(sel Selection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection == sel
}
