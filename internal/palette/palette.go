package palette

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/nao1215/matsight/internal/model"
)

const (
	// DefaultSampleLimit is how many pixels are averaged per label.
	// The first pixels in row-major order are taken; sampling stops early once
	// the limit is reached.
	DefaultSampleLimit = 100

	// GoldenAngle is the hue step between consecutive synthetic label colours.
	GoldenAngle = 137.5

	// ThicknessHueStep is the hue step between consecutive thicknesses.
	ThicknessHueStep = 30.0

	// Saturation and Lightness are shared by every generated colour.
	Saturation = 0.7
	Lightness  = 0.5

	// BackgroundDescription is the description of the background label.
	BackgroundDescription = "Background"
)

// Entry is one legend line.
type Entry struct {
	// Key is the label value (label grid) or thickness (region list).
	Key int
	// Color is the display colour. Alpha is always opaque.
	Color color.RGBA
	// Hue is the generated hue in degrees for synthetic and thickness colours,
	// and -1 for colours sampled from the image.
	Hue float64
	// Description is the display text, e.g. "2 Layers".
	Description string
	// Synthetic is true when no pixel could be sampled for a grid label.
	Synthetic bool
	// PixelCount is the number of pixels carrying the label, or the summed
	// mask area of the regions with this thickness.
	PixelCount int
	// Stats is set for region-list entries.
	Stats *ThicknessStats
}

// Hex returns the colour as #rrggbb.
func (e Entry) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", e.Color.R, e.Color.G, e.Color.B)
}

// ThicknessStats aggregates the regions of one thickness.
type ThicknessStats struct {
	Count             int
	TotalSize         float64
	MeanSize          float64
	MeanAspectRatio   float64
	MeanFalsePositive float64
}

// Palette is the complete legend of one analysis.
type Palette struct {
	// Kind is the variant the palette was built from.
	Kind model.AnalysisKind
	// Entries are ordered for display: background first, then ascending keys.
	Entries []Entry
	// Count is the number of distinct non-background labels, or the number of
	// distinct thicknesses.
	Count int
	// TotalFlakes is the server-reported total for region lists.
	TotalFlakes int
	// TotalPixels is the image area the analysis covers, zero when unknown.
	TotalPixels int
	// Groups holds the regions of each thickness in their original order.
	Groups map[int][]model.Region

	index map[int]int
}

func newPalette(kind model.AnalysisKind, entries []Entry) *Palette {
	p := &Palette{
		Kind:    kind,
		Entries: entries,
		index:   make(map[int]int, len(entries)),
	}
	for i, e := range entries {
		p.index[e.Key] = i
	}
	return p
}

// Lookup returns the entry for key.
func (p *Palette) Lookup(key int) (Entry, bool) {
	i, ok := p.index[key]
	if !ok {
		return Entry{}, false
	}
	return p.Entries[i], true
}

// Color returns the display colour for key. Unknown keys get the synthetic
// colour their label would have received, so rendering never fails.
func (p *Palette) Color(key int) color.RGBA {
	if e, ok := p.Lookup(key); ok {
		return e.Color
	}
	if key == model.BackgroundLabel {
		return color.RGBA{A: 0xff}
	}
	return HueColor(LabelHue(key))
}

// Keys returns the keys in display order.
func (p *Palette) Keys() []int {
	keys := make([]int, len(p.Entries))
	for i, e := range p.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Region returns the index-th region of the given thickness, in the order the
// analysis listed them.
func (p *Palette) Region(thickness, index int) (model.Region, bool) {
	members := p.Groups[thickness]
	if index < 0 || index >= len(members) {
		return model.Region{}, false
	}
	return members[index], true
}

// Build dispatches on the analysis variant.
func Build(a model.Analysis, opts ...Option) (*Palette, error) {
	switch v := a.(type) {
	case *model.LabelGridAnalysis:
		return FromLabelGrid(v.Labels, v.Image(), opts...), nil
	case *model.RegionListAnalysis:
		return FromRegions(v.Flakes, v.TotalFlakes, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedAnalysis, a)
	}
}

// Option configures palette construction.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	sampleLimit int
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:      slog.Default(),
		sampleLimit: DefaultSampleLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for consistency warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSampleLimit overrides DefaultSampleLimit. Non-positive values are ignored.
func WithSampleLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sampleLimit = n
		}
	}
}

// LayerDescription returns "1 Layer" or "n Layers".
func LayerDescription(n int) string {
	if n == 1 {
		return "1 Layer"
	}
	return fmt.Sprintf("%d Layers", n)
}

// LabelHue returns the synthetic hue of a grid label: (label*137.5) mod 360.
func LabelHue(label int) float64 {
	return wrapHue(float64(label) * GoldenAngle)
}

// ThicknessHue returns the hue of a thickness: (thickness*30) mod 360.
func ThicknessHue(thickness int) float64 {
	return wrapHue(float64(thickness) * ThicknessHueStep)
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HueColor converts a hue at the shared saturation and lightness to RGBA.
func HueColor(hue float64) color.RGBA {
	r, g, b := colorful.Hsl(hue, Saturation, Lightness).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
