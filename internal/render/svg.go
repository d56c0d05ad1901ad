package render

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/nao1215/matsight/internal/contour"
)

// WriteOutlineSVG writes a width x height SVG document containing the contour
// as a closed polygon. When baseHref is not empty it is embedded as a
// background image (a URL or a data URL).
func WriteOutlineSVG(w io.Writer, width, height int, c contour.Contour, s Stroke, baseHref string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensionMismatch, width, height)
	}

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title("region outline")
	if baseHref != "" {
		canvas.Image(0, 0, width, height, baseHref)
	}
	if !c.Empty() {
		xs, ys := c.XY()
		style := fmt.Sprintf("fill:none;stroke:#%02x%02x%02x;stroke-width:%d;stroke-linejoin:round",
			s.Color.R, s.Color.G, s.Color.B, s.width())
		canvas.Polygon(xs, ys, style)
	}
	canvas.End()
	return nil
}
