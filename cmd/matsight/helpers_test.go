package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a configuration file into dir that keeps the database
// inside dir. extra is appended verbatim.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "matsight.yaml")
	content := "db_dir: " + filepath.Join(dir, "db") + "\n" + extra
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// readPNG decodes the PNG at path.
func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA) //nolint:forcetypeassert // RGBAModel always returns RGBA
}

// encodePNG returns a w x h PNG filled with c.
func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

const (
	// labelGridJSON is a 2x2 label grid: label 1 on the left column,
	// background top right and label 0 bottom right.
	labelGridJSON = `{
  "result": [[[200, 10, 10], [0, 0, 0]], [[100, 30, 30], [0, 255, 0]]],
  "labels": [[1, -1], [1, 0]]
}`

	// regionListJSON holds a bilayer 2x2 square at (1,1) of a 4x4 image and
	// a trilayer flake without mask data.
	regionListJSON = `{
  "flakes": [
    {"id": "a", "thickness": 2, "size": 4, "aspect_ratio": 1, "false_positive_probability": 0.1,
     "mask": {"rle": [5, 2, 9, 2], "shape": [4, 4]}},
    {"id": "b", "thickness": 3, "size": 1, "aspect_ratio": 1, "false_positive_probability": 0.2,
     "position": {"x": 3, "y": 3, "width": 1, "height": 1}}
  ],
  "total_flakes": 2,
  "detection_parameters": {"threshold": 0.5}
}`
)
