package palette

import (
	"context"
	"image"
	"image/color"
	"log/slog"

	"github.com/nao1215/matsight/internal/model"
)

type labelAccumulator struct {
	count   int
	samples int
	r, g, b int
}

// FromLabelGrid builds the legend of a label-grid analysis.
//
// Every distinct label gets one entry. Background is black and first; other
// labels average the first DefaultSampleLimit pixels found in row-major order.
// Grid cells outside img's bounds are counted but cannot be sampled; a label
// left without samples receives the synthetic LabelHue colour.
func FromLabelGrid(labels model.LabelGrid, img image.Image, opts ...Option) *Palette {
	o := newOptions(opts)

	var bounds image.Rectangle
	if img != nil {
		bounds = img.Bounds()
	}

	acc := make(map[int]*labelAccumulator)
	total := 0
	for y, row := range labels {
		for x, label := range row {
			total++
			a, ok := acc[label]
			if !ok {
				a = &labelAccumulator{}
				acc[label] = a
			}
			a.count++
			if label == model.BackgroundLabel || a.samples >= o.sampleLimit {
				continue
			}
			p := image.Pt(bounds.Min.X+x, bounds.Min.Y+y)
			if !p.In(bounds) {
				continue
			}
			c := color.RGBAModel.Convert(img.At(p.X, p.Y)).(color.RGBA)
			a.r += int(c.R)
			a.g += int(c.G)
			a.b += int(c.B)
			a.samples++
		}
	}

	keys := sortedKeys(acc)
	entries := make([]Entry, 0, len(keys))
	if bg, ok := acc[model.BackgroundLabel]; ok {
		entries = append(entries, Entry{
			Key:         model.BackgroundLabel,
			Color:       color.RGBA{A: 0xff},
			Hue:         -1,
			Description: BackgroundDescription,
			PixelCount:  bg.count,
		})
	}

	count := 0
	for _, label := range keys {
		if label == model.BackgroundLabel {
			continue
		}
		count++
		a := acc[label]
		e := Entry{
			Key:         label,
			Hue:         -1,
			Description: LayerDescription(label + 1),
			PixelCount:  a.count,
		}
		if a.samples == 0 {
			e.Hue = LabelHue(label)
			e.Color = HueColor(e.Hue)
			e.Synthetic = true
			o.logger.LogAttrs(context.Background(), slog.LevelDebug, "label colour synthesized",
				slog.Int("label", label),
				slog.Int("pixels", a.count),
				slog.String("reason", ErrLabelConsistency.Error()))
		} else {
			e.Color = color.RGBA{
				R: roundDiv(a.r, a.samples),
				G: roundDiv(a.g, a.samples),
				B: roundDiv(a.b, a.samples),
				A: 0xff,
			}
		}
		entries = append(entries, e)
	}

	p := newPalette(model.KindLabelGrid, entries)
	p.Count = count
	p.TotalPixels = total
	return p
}

func roundDiv(sum, n int) uint8 {
	return uint8((sum + n/2) / n)
}
