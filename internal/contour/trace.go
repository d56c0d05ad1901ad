package contour

import (
	"image"

	"github.com/nao1215/matsight/internal/mask"
)

// DefaultMaxSteps bounds the number of moves the tracer makes.
const DefaultMaxSteps = 10000

// Direction is one of the eight Moore neighbours, numbered clockwise from east.
type Direction int

// Directions in clockwise order for image coordinates.
const (
	East Direction = iota
	SouthEast
	South
	SouthWest
	West
	NorthWest
	North
	NorthEast
)

// offsets is indexed by Direction.
var offsets = [8]image.Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
}

// Offset returns the unit step for the direction.
func (d Direction) Offset() image.Point {
	return offsets[d.normalize()]
}

// Rotate returns the direction n steps clockwise (negative for counter-clockwise).
func (d Direction) Rotate(n int) Direction {
	return (d + Direction(n)).normalize()
}

func (d Direction) normalize() Direction {
	return ((d % 8) + 8) % 8
}

// String returns the compass abbreviation.
func (d Direction) String() string {
	return [...]string{"E", "SE", "S", "SW", "W", "NW", "N", "NE"}[d.normalize()]
}

// Contour is the ordered boundary of a mask region. Points begins with the
// start pixel; the segment from the last point back to the first is implicit
// when Closed is true.
type Contour struct {
	Points []image.Point
	// Closed is true when the walk returned to the start pixel.
	Closed bool
	// Truncated is true when the walk stopped at the step cap.
	Truncated bool
}

// Empty reports whether no boundary was found.
func (c Contour) Empty() bool {
	return len(c.Points) == 0
}

// Len returns the number of points.
func (c Contour) Len() int {
	return len(c.Points)
}

// Bounds returns the smallest rectangle containing every point, with Max
// exclusive. It is the zero rectangle for an empty contour.
func (c Contour) Bounds() image.Rectangle {
	if c.Empty() {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c.Points[0], Max: c.Points[0].Add(image.Pt(1, 1))}
	for _, p := range c.Points[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}

// XY splits the points into parallel coordinate slices, the form SVG
// polygon writers take.
func (c Contour) XY() (xs, ys []int) {
	xs = make([]int, len(c.Points))
	ys = make([]int, len(c.Points))
	for i, p := range c.Points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}

// Trace walks the outer boundary of m with the default step cap.
func Trace(m *mask.Mask) Contour {
	return TraceLimit(m, DefaultMaxSteps)
}

// TraceLimit walks the outer boundary of m, making at most maxSteps moves.
// A non-positive maxSteps means DefaultMaxSteps.
//
// From the current pixel the eight neighbours are scanned clockwise starting
// at the current search direction; the first foreground neighbour becomes
// current and the next search starts two steps counter-clockwise of the move,
// i.e. (found+6) mod 8. The first search starts at West, which is guaranteed
// to be background for the row-major start pixel.
func TraceLimit(m *mask.Mask, maxSteps int) Contour {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	start, ok := FindStart(m)
	if !ok {
		return Contour{}
	}

	c := Contour{Points: []image.Point{start}}
	current := start
	search := West
	for range maxSteps {
		found := false
		for i := range 8 {
			d := search.Rotate(i)
			next := current.Add(d.Offset())
			if !m.At(next.X, next.Y) {
				continue
			}
			current = next
			search = d.Rotate(6)
			found = true
			break
		}
		if !found {
			// Isolated pixel or open boundary.
			return c
		}
		if current == start {
			c.Closed = true
			return c
		}
		c.Points = append(c.Points, current)
	}
	c.Truncated = true
	return c
}

// FindStart returns the first foreground pixel in row-major order that has an
// off-grid or background 8-neighbour.
func FindStart(m *mask.Mask) (image.Point, bool) {
	if m == nil {
		return image.Point{}, false
	}
	for y := range m.Height {
		for x := range m.Width {
			if !m.At(x, y) {
				continue
			}
			if isBoundary(m, x, y) {
				return image.Pt(x, y), true
			}
		}
	}
	return image.Point{}, false
}

func isBoundary(m *mask.Mask, x, y int) bool {
	for _, o := range offsets {
		if !m.At(x+o.X, y+o.Y) {
			return true
		}
	}
	return false
}
