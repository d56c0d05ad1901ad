package model

import (
	"errors"
	"image"
	"testing"
)

func TestRLEMask(t *testing.T) {
	t.Parallel()

	m := RLEMask{RLE: []int{0, 3, 10, 2}, Shape: [2]int{4, 5}}
	if m.Height() != 4 || m.Width() != 5 {
		t.Errorf("expected 4 rows and 5 columns, got %d and %d", m.Height(), m.Width())
	}
	if m.Pairs() != 2 {
		t.Errorf("expected 2 pairs, got %d", m.Pairs())
	}
	if m.Area() != 5 {
		t.Errorf("expected area 5, got %d", m.Area())
	}
	if err := m.ValidateShape(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (RLEMask{Shape: [2]int{0, 3}}).ValidateShape(); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestValidateShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		height, width int
		wantErr       bool
	}{
		{name: "small grid", height: 4, width: 4},
		{name: "grid at the cap", height: MaxMaskPixels, width: 1},
		{name: "zero height", height: 0, width: 4, wantErr: true},
		{name: "negative width", height: 4, width: -1, wantErr: true},
		{name: "one pixel over the cap", height: MaxMaskPixels + 1, width: 1, wantErr: true},
		{name: "huge grid", height: 100000, width: 100000, wantErr: true},
		{name: "product wraps to zero", height: 1 << 32, width: 1 << 32, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateShape(tt.height, tt.width)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateShape(%d, %d) error = %v, wantErr %v", tt.height, tt.width, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidShape) {
				t.Errorf("expected ErrInvalidShape, got %v", err)
			}
		})
	}
}

func TestBoundingBox(t *testing.T) {
	t.Parallel()

	b := BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}
	if b.Empty() {
		t.Error("expected non-empty box")
	}
	if b.Area() != 12 {
		t.Errorf("expected area 12, got %d", b.Area())
	}
	if b.Rectangle() != image.Rect(1, 2, 4, 6) {
		t.Errorf("unexpected rectangle %v", b.Rectangle())
	}
	if b.String() != "(1,2 3x4)" {
		t.Errorf("unexpected string %q", b.String())
	}
	if !(BoundingBox{}).Empty() {
		t.Error("expected zero box to be empty")
	}
}
