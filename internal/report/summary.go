package report

import (
	"maps"
	"time"

	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/palette"
)

// NewSummary builds the summary of result using the legend p. metadata is
// attached as-is and may be nil.
func NewSummary(result *model.AnalysisResult, p *palette.Palette, metadata map[string]string) *model.Summary {
	width, height := result.Analysis.Dimensions()

	summary := &model.Summary{
		AnalysisID:  result.ID,
		ImageKey:    result.ImageKey,
		Kind:        result.Analysis.Kind().String(),
		GeneratedAt: time.Now().UTC(),
		Width:       width,
		Height:      height,
		TotalPixels: p.TotalPixels,
		Count:       p.Count,
		TotalFlakes: p.TotalFlakes,
		Labels:      make([]model.LabelSummary, 0, len(p.Entries)),
	}
	if summary.TotalPixels == 0 {
		summary.TotalPixels = width * height
	}
	if len(metadata) > 0 {
		summary.Metadata = maps.Clone(metadata)
	}
	if regions, ok := result.Analysis.(*model.RegionListAnalysis); ok && len(regions.DetectionParameters) > 0 {
		summary.DetectionParameters = maps.Clone(regions.DetectionParameters)
	}

	for _, e := range p.Entries {
		label := model.LabelSummary{
			Key:         e.Key,
			Description: e.Description,
			Color:       e.Hex(),
			Synthetic:   e.Synthetic,
			PixelCount:  e.PixelCount,
			Percentage:  percentage(e.PixelCount, summary.TotalPixels),
		}
		if e.Stats != nil {
			label.FlakeCount = e.Stats.Count
			label.TotalSize = e.Stats.TotalSize
			label.MeanSize = e.Stats.MeanSize
			label.MeanAspectRatio = e.Stats.MeanAspectRatio
			label.MeanFalsePositive = e.Stats.MeanFalsePositive
		}
		summary.Labels = append(summary.Labels, label)
	}
	return summary
}

// percentage returns part/total*100, or zero when total is unknown.
func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
