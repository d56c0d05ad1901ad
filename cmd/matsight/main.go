// Package main provides the entry point for the MatSight CLI.
//
// MatSight decodes and visualizes material analysis results: label grids of
// processed microscope images and lists of detected flakes with run-length
// encoded masks.
//
// Usage:
//
//	matsight render analysis.json --image sample.png --thickness 2 -o view.png
//	matsight analyze uploads/sample.png --markdown
//	matsight images list
//
// See --help for all available options.
package main

// main is the entry point for MatSight.
func main() {
	Execute()
}
