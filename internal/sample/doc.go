// Package sample loads the microscope images that analyses refer to.
//
// A Sample bundles the decoded image with the information the rest of the
// program keys on: the detected format, a content hash used to skip
// re-processing identical bytes, and acquisition metadata read from EXIF.
//
// Supported formats are PNG, JPEG and GIF from the standard library plus
// BMP, TIFF and WebP from golang.org/x/image, since lab microscopes commonly
// export TIFF and BMP.
package sample
