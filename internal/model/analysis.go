package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"time"
)

// AnalysisKind identifies which variant of Analysis a value holds.
type AnalysisKind int

const (
	// KindLabelGrid is a dense per-pixel label array plus the processed image.
	KindLabelGrid AnalysisKind = iota
	// KindRegionList is a list of detected flakes with optional RLE masks.
	KindRegionList
)

// String returns the identifier used in reports and the store.
func (k AnalysisKind) String() string {
	switch k {
	case KindLabelGrid:
		return "label_grid"
	case KindRegionList:
		return "region_list"
	default:
		return "unknown"
	}
}

// ParseAnalysisKind is the inverse of AnalysisKind.String.
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	switch s {
	case "label_grid":
		return KindLabelGrid, nil
	case "region_list":
		return KindRegionList, nil
	default:
		return 0, fmt.Errorf("%w: kind %q", ErrUnknownAnalysisFormat, s)
	}
}

// Analysis is the tagged union of the two result shapes the analysis service
// produces. It is sealed: only *LabelGridAnalysis and *RegionListAnalysis
// implement it, so a type switch over those two cases is exhaustive.
type Analysis interface {
	// Kind reports the variant.
	Kind() AnalysisKind
	// Dimensions returns the image width and height the analysis refers to.
	// A region list without any masks reports (0, 0).
	Dimensions() (width, height int)

	sealed()
}

// RGB is a colour triple. Its JSON form is [r, g, b].
type RGB [3]uint8

// LabelGrid is a row-major grid of integer labels. -1 marks background.
type LabelGrid [][]int

// BackgroundLabel is the label value reserved for background pixels.
const BackgroundLabel = -1

// Dimensions returns the grid width and height, taking the width from the
// first row.
func (g LabelGrid) Dimensions() (width, height int) {
	if len(g) == 0 {
		return 0, 0
	}
	return len(g[0]), len(g)
}

// LabelGridAnalysis is variant (a): the processed image rows plus a parallel
// label grid of the same dimensions.
type LabelGridAnalysis struct {
	// Pixels holds the processed image, one []RGB per row.
	Pixels [][]RGB `json:"result"`
	// Labels holds one label per pixel.
	Labels LabelGrid `json:"labels"`
}

// Kind implements Analysis.
func (*LabelGridAnalysis) Kind() AnalysisKind { return KindLabelGrid }

// Dimensions implements Analysis.
func (a *LabelGridAnalysis) Dimensions() (int, int) { return a.Labels.Dimensions() }

func (*LabelGridAnalysis) sealed() {}

// Validate checks that pixel and label rows are rectangular and agree in size.
func (a *LabelGridAnalysis) Validate() error {
	width, height := a.Labels.Dimensions()
	if len(a.Pixels) != height {
		return fmt.Errorf("%w: %d pixel rows, %d label rows", ErrDimensionMismatch, len(a.Pixels), height)
	}
	for y := range height {
		if len(a.Labels[y]) != width {
			return fmt.Errorf("%w: label row %d has %d columns, want %d", ErrDimensionMismatch, y, len(a.Labels[y]), width)
		}
		if len(a.Pixels[y]) != width {
			return fmt.Errorf("%w: pixel row %d has %d columns, want %d", ErrDimensionMismatch, y, len(a.Pixels[y]), width)
		}
	}
	return nil
}

// Image converts the processed pixel rows to an opaque RGBA image. Rows
// shorter than the first row leave their missing pixels transparent black.
func (a *LabelGridAnalysis) Image() *image.RGBA {
	return PixelImage(a.Pixels)
}

// PixelImage converts [][]RGB rows to an opaque RGBA image sized by the row
// count and the width of the first row.
func PixelImage(rows [][]RGB) *image.RGBA {
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	img := image.NewRGBA(image.Rect(0, 0, width, len(rows)))
	for y, row := range rows {
		for x, px := range row {
			if x >= width {
				break
			}
			i := img.PixOffset(x, y)
			img.Pix[i+0] = px[0]
			img.Pix[i+1] = px[1]
			img.Pix[i+2] = px[2]
			img.Pix[i+3] = 0xff
		}
	}
	return img
}

// RegionListAnalysis is variant (b): detected flakes with summary fields.
type RegionListAnalysis struct {
	// Flakes lists every detected region.
	Flakes []Region `json:"flakes"`
	// TotalFlakes is the server-reported total. It can differ from len(Flakes)
	// when the service filters what it returns.
	TotalFlakes int `json:"total_flakes"`
	// DetectionParameters is an opaque key/value map echoed back by the service.
	DetectionParameters map[string]any `json:"detection_parameters,omitempty"`
}

// Kind implements Analysis.
func (*RegionListAnalysis) Kind() AnalysisKind { return KindRegionList }

// Dimensions implements Analysis. It reports the shape of the first region
// that carries a mask.
func (a *RegionListAnalysis) Dimensions() (int, int) {
	for _, f := range a.Flakes {
		if f.Mask != nil && f.Mask.ValidateShape() == nil {
			return f.Mask.Width(), f.Mask.Height()
		}
	}
	return 0, 0
}

func (*RegionListAnalysis) sealed() {}

// wireAnalysis accepts every field spelling the service and the web client
// have used for the two variants.
type wireAnalysis struct {
	Result              json.RawMessage `json:"result"`
	Image               json.RawMessage `json:"image"`
	Labels              LabelGrid       `json:"labels"`
	Flakes              []Region        `json:"flakes"`
	FlakesDetected      *int            `json:"flakes_detected"`
	TotalFlakesSnake    *int            `json:"total_flakes"`
	TotalFlakesCamel    *int            `json:"totalFlakes"`
	DetectionParameters map[string]any  `json:"detection_parameters"`
	DetectionParams     map[string]any  `json:"detectionParams"`
	DetectionParamsAlt  map[string]any  `json:"detection_params"`
}

// ParseAnalysis decodes an analysis payload into the matching variant.
//
// A payload with a "flakes" key is a region list. A payload with "labels" and
// pixel rows under "result" or "image" is a label grid. When "result" is an
// object instead of pixel rows it is unwrapped once, because the processing
// endpoint nests the analysis under that key.
func ParseAnalysis(data []byte) (Analysis, error) {
	var w wireAnalysis
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}

	if w.Flakes != nil {
		total := len(w.Flakes)
		for _, v := range []*int{w.TotalFlakesSnake, w.TotalFlakesCamel, w.FlakesDetected} {
			if v != nil {
				total = *v
				break
			}
		}
		params := w.DetectionParameters
		if params == nil {
			params = w.DetectionParams
		}
		if params == nil {
			params = w.DetectionParamsAlt
		}
		return &RegionListAnalysis{
			Flakes:              w.Flakes,
			TotalFlakes:         total,
			DetectionParameters: params,
		}, nil
	}

	if trimmed := bytes.TrimSpace(w.Result); len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseAnalysis(trimmed)
	}

	pixelsRaw := w.Result
	if len(pixelsRaw) == 0 {
		pixelsRaw = w.Image
	}
	if len(pixelsRaw) == 0 || w.Labels == nil {
		return nil, ErrUnknownAnalysisFormat
	}

	var pixels [][]RGB
	if err := json.Unmarshal(pixelsRaw, &pixels); err != nil {
		return nil, fmt.Errorf("failed to decode pixel rows: %w", err)
	}
	grid := &LabelGridAnalysis{Pixels: pixels, Labels: w.Labels}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return grid, nil
}

// MarshalAnalysis encodes an analysis in the canonical wire form accepted by
// ParseAnalysis.
func MarshalAnalysis(a Analysis) ([]byte, error) {
	switch v := a.(type) {
	case *LabelGridAnalysis:
		return json.Marshal(v)
	case *RegionListAnalysis:
		out := *v
		if out.Flakes == nil {
			// A null list would be read back as a label grid.
			out.Flakes = []Region{}
		}
		return json.Marshal(&out)
	default:
		return nil, ErrUnknownAnalysisFormat
	}
}

// AnalysisResult binds an analysis to the image it was computed for. It is
// replaced wholesale whenever the selection changes or processing reruns.
type AnalysisResult struct {
	// ID uniquely identifies this result (UUID).
	ID string `json:"id"`
	// ImageKey is the object-store key of the analysed image.
	ImageKey string `json:"image_key"`
	// ImageHash is the hex SHA3-256 of the image bytes, when known.
	ImageHash string `json:"image_hash,omitempty"`
	// Material is the material name sent with the processing request.
	Material string `json:"material,omitempty"`
	// CreatedAt is when the result was received.
	CreatedAt time.Time `json:"created_at"`
	// Analysis is the variant payload.
	Analysis Analysis `json:"-"`
}

type analysisResultJSON struct {
	ID        string          `json:"id"`
	ImageKey  string          `json:"image_key"`
	ImageHash string          `json:"image_hash,omitempty"`
	Material  string          `json:"material,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Kind      string          `json:"kind"`
	Analysis  json.RawMessage `json:"analysis"`
}

// MarshalJSON implements json.Marshaler, tagging the payload with its kind.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	payload, err := MarshalAnalysis(r.Analysis)
	if err != nil {
		return nil, err
	}
	return json.Marshal(analysisResultJSON{
		ID:        r.ID,
		ImageKey:  r.ImageKey,
		ImageHash: r.ImageHash,
		Material:  r.Material,
		CreatedAt: r.CreatedAt,
		Kind:      r.Analysis.Kind().String(),
		Analysis:  payload,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw analysisResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	analysis, err := ParseAnalysis(raw.Analysis)
	if err != nil {
		return err
	}
	if raw.Kind != "" {
		kind, err := ParseAnalysisKind(raw.Kind)
		if err != nil {
			return err
		}
		if kind != analysis.Kind() {
			return fmt.Errorf("%w: tagged %s but payload is %s", ErrUnknownAnalysisFormat, kind, analysis.Kind())
		}
	}
	r.ID = raw.ID
	r.ImageKey = raw.ImageKey
	r.ImageHash = raw.ImageHash
	r.Material = raw.Material
	r.CreatedAt = raw.CreatedAt
	r.Analysis = analysis
	return nil
}
