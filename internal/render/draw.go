package render

import (
	"image"
	"image/color"
)

// Stroke describes how outlines are drawn.
type Stroke struct {
	Color color.RGBA
	// Width is the side of the square brush in pixels. Values below 1 are
	// treated as 1.
	Width int
}

// DefaultStroke is a red outline about two pixels wide.
var DefaultStroke = Stroke{
	Color: color.RGBA{R: 0xff, A: 0xff},
	Width: 2,
}

func (s Stroke) width() int {
	return max(s.Width, 1)
}

// stamp paints a square brush centred on (x, y), clipped to the image.
func stamp(img *image.RGBA, x, y int, s Stroke) {
	w := s.width()
	lo := -(w / 2)
	hi := lo + w - 1
	bounds := img.Bounds()
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			p := image.Pt(x+dx, y+dy)
			if p.In(bounds) {
				img.SetRGBA(p.X, p.Y, s.Color)
			}
		}
	}
}

// drawLine rasterizes the segment (x0,y0)-(x1,y1) with Bresenham's algorithm,
// stamping the brush at every step.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, s Stroke) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		stamp(img, x0, y0, s)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// drawClosedPath strokes the polygon through pts, including the segment from
// the last point back to the first.
func drawClosedPath(img *image.RGBA, pts []image.Point, s Stroke) {
	switch len(pts) {
	case 0:
		return
	case 1:
		stamp(img, pts[0].X, pts[0].Y, s)
		return
	}
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		drawLine(img, a.X, a.Y, b.X, b.Y, s)
	}
}

// drawRect strokes the border of r (Max exclusive).
func drawRect(img *image.RGBA, r image.Rectangle, s Stroke) {
	if r.Empty() {
		return
	}
	x0, y0 := r.Min.X, r.Min.Y
	x1, y1 := r.Max.X-1, r.Max.Y-1
	drawClosedPath(img, []image.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}, s)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
