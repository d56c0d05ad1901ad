package mask

import (
	"image"

	"github.com/nao1215/matsight/internal/model"
)

// Mask is a dense binary grid. Pix holds one byte per pixel in row-major
// order; non-zero means foreground.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// New returns an all-background mask of the given size.
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// In reports whether (x, y) lies on the grid.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At reports whether (x, y) is foreground. Off-grid coordinates are background.
func (m *Mask) At(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Set marks (x, y) as foreground or background. Off-grid writes are ignored.
func (m *Mask) Set(x, y int, on bool) {
	if !m.In(x, y) {
		return
	}
	var v uint8
	if on {
		v = 1
	}
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Bounds returns the bounding box of the foreground and whether any
// foreground exists. It scans every pixel once.
func (m *Mask) Bounds() (model.BoundingBox, bool) {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := range m.Height {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return model.BoundingBox{}, false
	}
	return model.BoundingBox{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}, true
}

// Indices returns the flat indices of all foreground pixels in ascending order.
func (m *Mask) Indices() []int {
	var out []int
	for i, v := range m.Pix {
		if v != 0 {
			out = append(out, i)
		}
	}
	return out
}

// Gray returns the mask as an 8-bit image with foreground at 255.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v != 0 {
			img.Pix[i] = 255
		}
	}
	return img
}

// Alpha returns the mask as an alpha image, suitable as the mask argument of
// draw.DrawMask.
func (m *Mask) Alpha() *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v != 0 {
			img.Pix[i] = 0xff
		}
	}
	return img
}
