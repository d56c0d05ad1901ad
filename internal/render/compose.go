package render

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/nao1215/matsight/internal/contour"
	"github.com/nao1215/matsight/internal/model"
)

// ColorSource maps a label to its display colour. *palette.Palette
// satisfies it.
type ColorSource interface {
	Color(label int) color.RGBA
}

// Copy returns an RGBA copy of img with its origin moved to (0, 0).
func Copy(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// FromPixels converts analysis pixel rows to an opaque image. Ragged rows are
// rejected.
func FromPixels(rows [][]model.RGB) (*image.RGBA, error) {
	for y, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("%w: row %d has %d pixels, want %d", ErrDimensionMismatch, y, len(row), len(rows[0]))
		}
	}
	return model.PixelImage(rows), nil
}

func checkGrid(img image.Image, labels model.LabelGrid) error {
	b := img.Bounds()
	width, height := labels.Dimensions()
	if width != b.Dx() || height != b.Dy() {
		return fmt.Errorf("%w: grid %dx%d, image %dx%d", ErrDimensionMismatch, width, height, b.Dx(), b.Dy())
	}
	for y, row := range labels {
		if len(row) != width {
			return fmt.Errorf("%w: label row %d has %d columns", ErrDimensionMismatch, y, len(row))
		}
	}
	return nil
}

// Recolor keeps the pixels carrying the selected label and paints every other
// pixel black. Alpha is 255 everywhere. With no selection the result is an
// unmodified copy of base.
func Recolor(base image.Image, labels model.LabelGrid, selected *int) (*image.RGBA, error) {
	if base == nil {
		return nil, ErrNoImage
	}
	if selected == nil {
		return Copy(base), nil
	}
	if err := checkGrid(base, labels); err != nil {
		return nil, err
	}

	src := Copy(base)
	dst := image.NewRGBA(src.Rect)
	for y, row := range labels {
		for x, label := range row {
			i := dst.PixOffset(x, y)
			if label == *selected {
				copy(dst.Pix[i:i+3], src.Pix[i:i+3])
			}
			dst.Pix[i+3] = 0xff
		}
	}
	return dst, nil
}

// Colorize paints every pixel with the legend colour of its label.
func Colorize(labels model.LabelGrid, colors ColorSource) (*image.RGBA, error) {
	width, height := labels.Dimensions()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	cache := make(map[int]color.RGBA)
	for y, row := range labels {
		if len(row) != width {
			return nil, fmt.Errorf("%w: label row %d has %d columns", ErrDimensionMismatch, y, len(row))
		}
		for x, label := range row {
			c, ok := cache[label]
			if !ok {
				c = colors.Color(label)
				c.A = 0xff
				cache[label] = c
			}
			dst.SetRGBA(x, y, c)
		}
	}
	return dst, nil
}

// Outline strokes c as a closed path over a copy of base.
func Outline(base image.Image, c contour.Contour, s Stroke) (*image.RGBA, error) {
	if base == nil {
		return nil, ErrNoImage
	}
	dst := Copy(base)
	drawClosedPath(dst, c.Points, s)
	return dst, nil
}

// BoxOverlay strokes the border of box over a copy of base.
func BoxOverlay(base image.Image, box model.BoundingBox, s Stroke) (*image.RGBA, error) {
	if base == nil {
		return nil, ErrNoImage
	}
	dst := Copy(base)
	drawRect(dst, box.Rectangle(), s)
	return dst, nil
}

// Mode selects how a label grid is shown when no region is highlighted.
type Mode int

const (
	// ModeRecolor shows the selected label only.
	ModeRecolor Mode = iota
	// ModePalette paints every label with its legend colour.
	ModePalette
)

// String returns the flag value of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRecolor:
		return "recolor"
	case ModePalette:
		return "palette"
	default:
		return "unknown"
	}
}

// Request gathers everything Render may need. Fields that do not apply to
// the view are ignored.
type Request struct {
	// Base is the image the overlay is drawn on. For label grids it is the
	// processed image; for region lists the original upload.
	Base image.Image
	// Labels is set for label-grid analyses.
	Labels model.LabelGrid
	// Colors supplies legend colours for ModePalette.
	Colors ColorSource
	// Selected is the highlighted label, nil for none.
	Selected *int
	// Contour is the highlighted region outline, nil for none.
	Contour *contour.Contour
	// Box is drawn when Contour is nil, e.g. for a region without a
	// traceable mask.
	Box *model.BoundingBox
	// Mode applies to label grids.
	Mode Mode
	// Stroke styles outlines. The zero value means DefaultStroke.
	Stroke Stroke
}

// Render produces the view described by req: an outline when a contour or
// box is set, otherwise the label-grid view chosen by Mode, otherwise a copy
// of Base.
func Render(req Request) (*image.RGBA, error) {
	stroke := req.Stroke
	if stroke == (Stroke{}) {
		stroke = DefaultStroke
	}

	switch {
	case req.Contour != nil:
		return Outline(req.Base, *req.Contour, stroke)
	case req.Box != nil:
		return BoxOverlay(req.Base, *req.Box, stroke)
	case req.Labels != nil && req.Mode == ModePalette && req.Colors != nil:
		return Colorize(req.Labels, req.Colors)
	case req.Labels != nil:
		return Recolor(req.Base, req.Labels, req.Selected)
	case req.Base != nil:
		return Copy(req.Base), nil
	default:
		return nil, ErrNoImage
	}
}
