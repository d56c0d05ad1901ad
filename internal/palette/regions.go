package palette

import (
	"gonum.org/v1/gonum/stat"

	"github.com/nao1215/matsight/internal/model"
)

// FromRegions builds the legend of a region-list analysis.
//
// Regions are grouped by thickness. Each thickness gets a colour at
// ThicknessHue, a "{t} Layer(s)" description and aggregate statistics.
// reportedTotal is the server's flake total and is kept apart from the
// number of groups.
func FromRegions(regions []model.Region, reportedTotal int, opts ...Option) *Palette {
	o := newOptions(opts)

	groups := make(map[int][]model.Region)
	for _, r := range regions {
		groups[r.Thickness] = append(groups[r.Thickness], r)
	}

	keys := sortedKeys(groups)
	entries := make([]Entry, 0, len(keys))
	totalPixels := 0
	for _, thickness := range keys {
		members := groups[thickness]
		stats := thicknessStats(members)
		hue := ThicknessHue(thickness)
		area := 0
		for _, r := range members {
			if r.HasMask() {
				area += r.Mask.Area()
				if totalPixels == 0 {
					totalPixels = r.Mask.Width() * r.Mask.Height()
				}
			}
		}
		entries = append(entries, Entry{
			Key:         thickness,
			Color:       HueColor(hue),
			Hue:         hue,
			Description: LayerDescription(thickness),
			PixelCount:  area,
			Stats:       &stats,
		})
	}

	o.logger.Debug("regions grouped by thickness",
		"regions", len(regions),
		"thicknesses", len(keys),
		"reported_total", reportedTotal)

	p := newPalette(model.KindRegionList, entries)
	p.Count = len(keys)
	p.TotalFlakes = reportedTotal
	p.TotalPixels = totalPixels
	p.Groups = groups
	return p
}

func thicknessStats(regions []model.Region) ThicknessStats {
	sizes := make([]float64, len(regions))
	ratios := make([]float64, len(regions))
	fps := make([]float64, len(regions))
	total := 0.0
	for i, r := range regions {
		sizes[i] = r.Size
		ratios[i] = r.AspectRatio
		fps[i] = r.FalsePositiveProbability
		total += r.Size
	}
	return ThicknessStats{
		Count:             len(regions),
		TotalSize:         total,
		MeanSize:          stat.Mean(sizes, nil),
		MeanAspectRatio:   stat.Mean(ratios, nil),
		MeanFalsePositive: stat.Mean(fps, nil),
	}
}
