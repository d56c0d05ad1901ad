package model

import (
	"fmt"
	"image"
)

// MaxMaskPixels caps height*width of a mask grid. It is far above any
// microscope frame and keeps a hostile shape from allocating gigabytes.
const MaxMaskPixels = 1 << 28

// RLEMask is a binary mask compressed as (start, length) pairs over the
// row-major flattening of a Height x Width grid.
//
// The wire form is {"rle": [s0, l0, s1, l1, ...], "shape": [height, width]}.
// Shape carries the height first, matching the analysis service's numpy origin.
type RLEMask struct {
	// RLE holds the flattened (start, length) pairs.
	RLE []int `json:"rle"`
	// Shape is [height, width].
	Shape [2]int `json:"shape"`
}

// Height returns the number of rows of the mask grid.
func (m RLEMask) Height() int { return m.Shape[0] }

// Width returns the number of columns of the mask grid.
func (m RLEMask) Width() int { return m.Shape[1] }

// Pairs returns the number of (start, length) runs. An odd trailing value is
// not counted.
func (m RLEMask) Pairs() int { return len(m.RLE) / 2 }

// Area returns the sum of all run lengths. Overlapping runs are counted twice,
// so this is an upper bound of the decoded foreground count.
func (m RLEMask) Area() int {
	total := 0
	for i := 1; i < len(m.RLE); i += 2 {
		total += m.RLE[i]
	}
	return total
}

// ValidateShape checks that the shape describes a non-empty grid of at most
// MaxMaskPixels pixels.
func (m RLEMask) ValidateShape() error {
	return ValidateShape(m.Shape[0], m.Shape[1])
}

// ValidateShape checks height and width of a grid. The product is compared
// by division so it cannot overflow.
func ValidateShape(height, width int) error {
	if height <= 0 || width <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidShape, height, width)
	}
	if height > MaxMaskPixels/width {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidShape, height, width, MaxMaskPixels)
	}
	return nil
}

// BoundingBox is the smallest axis-aligned rectangle containing every
// foreground pixel of a mask, in image coordinates (x grows right, y grows down).
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the box encloses no pixels.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Rectangle converts the box to an image.Rectangle (half-open on Max).
func (b BoundingBox) Rectangle() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area returns Width*Height, or zero for an empty box.
func (b BoundingBox) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// String implements fmt.Stringer.
func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.Width, b.Height)
}
