package mask

import (
	"fmt"

	"github.com/nao1215/matsight/internal/model"
)

// Decode expands an RLE pair list over a height x width grid.
//
// It returns ErrMalformedRLE for an odd-length list, a non-positive shape or
// one above model.MaxMaskPixels, negative values, or any run with
// start+length > height*width. When no pixel
// is foreground it returns the empty mask, a zero box and ErrEmptyMask.
//
// Overlapping runs are tolerated; the overlap is simply foreground.
func Decode(rle []int, height, width int) (*Mask, model.BoundingBox, error) {
	if err := model.ValidateShape(height, width); err != nil {
		return nil, model.BoundingBox{}, fmt.Errorf("%w: %w", ErrMalformedRLE, err)
	}
	if len(rle)%2 != 0 {
		return nil, model.BoundingBox{}, fmt.Errorf("%w: odd length %d", ErrMalformedRLE, len(rle))
	}

	m := New(width, height)
	total := width * height
	for i := 0; i < len(rle); i += 2 {
		start, length := rle[i], rle[i+1]
		if start < 0 || length < 0 {
			return nil, model.BoundingBox{}, fmt.Errorf("%w: pair %d (%d, %d) is negative", ErrMalformedRLE, i/2, start, length)
		}
		if start > total || length > total-start {
			return nil, model.BoundingBox{}, fmt.Errorf("%w: pair %d (%d, %d) exceeds %d pixels", ErrMalformedRLE, i/2, start, length, total)
		}
		run := m.Pix[start : start+length]
		for j := range run {
			run[j] = 1
		}
	}

	box, ok := m.Bounds()
	if !ok {
		return m, model.BoundingBox{}, ErrEmptyMask
	}
	return m, box, nil
}

// DecodeRLE decodes a wire mask using its own shape.
func DecodeRLE(r model.RLEMask) (*Mask, model.BoundingBox, error) {
	return Decode(r.RLE, r.Height(), r.Width())
}
