package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseAnalysis(t *testing.T) {
	t.Parallel()

	t.Run("payload with flakes becomes a region list", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{
			"flakes": [
				{"thickness": 1, "size": 10.5, "aspect_ratio": 1.2, "false_positive_probability": 0.1,
				 "mask": {"rle": [0, 3], "shape": [4, 4]}},
				{"thickness": 3, "size": 4, "aspect_ratio": 2, "false_positive_probability": 0.3}
			],
			"flakes_detected": 7,
			"detection_parameters": {"threshold": 0.5}
		}`)

		a, err := ParseAnalysis(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		list, ok := a.(*RegionListAnalysis)
		if !ok {
			t.Fatalf("expected *RegionListAnalysis, got %T", a)
		}
		if list.Kind() != KindRegionList {
			t.Errorf("expected kind region_list, got %s", list.Kind())
		}
		if len(list.Flakes) != 2 {
			t.Fatalf("expected 2 flakes, got %d", len(list.Flakes))
		}
		if list.TotalFlakes != 7 {
			t.Errorf("expected server total 7, got %d", list.TotalFlakes)
		}
		if list.DetectionParameters["threshold"] != 0.5 {
			t.Errorf("expected threshold 0.5, got %v", list.DetectionParameters["threshold"])
		}
		if !list.Flakes[0].HasMask() || list.Flakes[1].HasMask() {
			t.Error("expected only the first flake to carry a mask")
		}
		w, h := list.Dimensions()
		if w != 4 || h != 4 {
			t.Errorf("expected 4x4 dimensions, got %dx%d", w, h)
		}
	})

	t.Run("camel case totals from the web client are accepted", func(t *testing.T) {
		t.Parallel()

		a, err := ParseAnalysis([]byte(`{"flakes": [], "totalFlakes": 3, "detectionParams": {"k": "v"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		list := a.(*RegionListAnalysis)
		if list.TotalFlakes != 3 {
			t.Errorf("expected 3, got %d", list.TotalFlakes)
		}
		if list.DetectionParameters["k"] != "v" {
			t.Errorf("expected detection params to be read")
		}
	})

	t.Run("missing total falls back to the number of flakes", func(t *testing.T) {
		t.Parallel()

		a, err := ParseAnalysis([]byte(`{"flakes": [{"thickness": 2}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := a.(*RegionListAnalysis).TotalFlakes; got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
	})

	t.Run("payload with result and labels becomes a label grid", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"result": [[[255,0,0],[0,0,0]],[[255,0,0],[0,255,0]]], "labels": [[1,-1],[1,0]]}`)
		a, err := ParseAnalysis(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		grid, ok := a.(*LabelGridAnalysis)
		if !ok {
			t.Fatalf("expected *LabelGridAnalysis, got %T", a)
		}
		if grid.Pixels[1][1] != (RGB{0, 255, 0}) {
			t.Errorf("unexpected pixel %v", grid.Pixels[1][1])
		}
		w, h := grid.Dimensions()
		if w != 2 || h != 2 {
			t.Errorf("expected 2x2, got %dx%d", w, h)
		}
	})

	t.Run("nested result object is unwrapped", func(t *testing.T) {
		t.Parallel()

		a, err := ParseAnalysis([]byte(`{"result": {"image": [[[1,2,3]]], "labels": [[0]]}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Kind() != KindLabelGrid {
			t.Errorf("expected label grid, got %s", a.Kind())
		}
	})

	t.Run("ragged label rows are rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAnalysis([]byte(`{"result": [[[0,0,0],[0,0,0]],[[0,0,0],[0,0,0]]], "labels": [[0,0],[0]]}`))
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("unrecognized payload is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAnalysis([]byte(`{"something": "else"}`))
		if !errors.Is(err, ErrUnknownAnalysisFormat) {
			t.Errorf("expected ErrUnknownAnalysisFormat, got %v", err)
		}
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseAnalysis([]byte(`{`)); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestAnalysisResultJSON(t *testing.T) {
	t.Parallel()

	t.Run("region list keeps its variant through the store encoding", func(t *testing.T) {
		t.Parallel()

		in := AnalysisResult{
			ID:        "a1",
			ImageKey:  "user/sample.png",
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Analysis:  &RegionListAnalysis{TotalFlakes: 4},
		}
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var out AnalysisResult
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if out.Analysis.Kind() != KindRegionList {
			t.Errorf("expected region list, got %s", out.Analysis.Kind())
		}
		if out.Analysis.(*RegionListAnalysis).TotalFlakes != 4 {
			t.Error("expected total flakes to survive")
		}
		if !out.CreatedAt.Equal(in.CreatedAt) || out.ImageKey != in.ImageKey {
			t.Error("expected metadata to survive")
		}
	})

	t.Run("mismatched kind tag is rejected", func(t *testing.T) {
		t.Parallel()

		data := []byte(`{"id":"x","kind":"label_grid","analysis":{"flakes":[]}}`)
		var out AnalysisResult
		if err := json.Unmarshal(data, &out); !errors.Is(err, ErrUnknownAnalysisFormat) {
			t.Errorf("expected ErrUnknownAnalysisFormat, got %v", err)
		}
	})
}

func TestAnalysisKindString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		kind     AnalysisKind
		expected string
	}{
		{KindLabelGrid, "label_grid"},
		{KindRegionList, "region_list"},
		{AnalysisKind(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := tc.kind.String(); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}
