package sample

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	// Register stdlib decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	exif "github.com/dsoprea/go-exif/v3"
	"golang.org/x/crypto/sha3"

	// Register the decoders microscopes commonly emit.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxImageSize bounds how many bytes Load and Read accept (64MB).
const MaxImageSize = 64 * 1024 * 1024

// metadataTags lists the EXIF tags kept in Sample.Metadata. They describe
// the acquisition and are shown in reports.
var metadataTags = map[string]bool{
	"Make":               true,
	"Model":              true,
	"Software":           true,
	"DateTime":           true,
	"DateTimeOriginal":   true,
	"ExposureTime":       true,
	"FNumber":            true,
	"ISOSpeedRatings":    true,
	"FocalLength":        true,
	"ImageDescription":   true,
	"XResolution":        true,
	"YResolution":        true,
	"ResolutionUnit":     true,
	"LensModel":          true,
	"BodySerialNumber":   true,
	"ProcessingSoftware": true,
}

// Sample is a decoded image together with its provenance.
type Sample struct {
	// Image is the decoded pixel data.
	Image image.Image
	// Format is the decoder name ("png", "jpeg", "tiff", ...).
	Format string
	// Hash is the hex SHA3-256 of the raw bytes.
	Hash string
	// Size is the raw byte length.
	Size int
	// Metadata holds selected EXIF tags. It is empty, not nil, when the
	// image carries none.
	Metadata map[string]string
}

// Bounds returns the image bounds.
func (s *Sample) Bounds() image.Rectangle {
	return s.Image.Bounds()
}

// Load reads and decodes the image file at path.
func Load(path string) (*Sample, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by the user on the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read decodes an image from r, reading at most MaxImageSize bytes.
func Read(r io.Reader) (*Sample, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrTooLarge
	}
	return Decode(data)
}

// Decode decodes raw image bytes.
func Decode(data []byte) (*Sample, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Sample{
		Image:    img,
		Format:   format,
		Hash:     Hash(data),
		Size:     len(data),
		Metadata: ExtractMetadata(data),
	}, nil
}

// DecodeDataURL decodes a "data:image/...;base64," URL.
func DecodeDataURL(dataURL string) (*Sample, error) {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return nil, ErrInvalidDataURL
	}
	_, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, ErrInvalidDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Try URL-safe base64
		data, err = base64.URLEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
		}
	}
	return Decode(data)
}

// Hash returns the hex SHA3-256 digest of data.
func Hash(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ExtractMetadata returns the acquisition-related EXIF tags found in data.
// Images without EXIF, or with EXIF that fails to parse, yield an empty map.
func ExtractMetadata(data []byte) map[string]string {
	metadata := make(map[string]string)

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return metadata
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return metadata
	}

	for _, entry := range entries {
		if !metadataTags[entry.TagName] {
			continue
		}
		value := strings.TrimSpace(entry.Formatted)
		if value == "" {
			continue
		}
		// First IFD wins; thumbnails repeat some tags.
		if _, exists := metadata[entry.TagName]; !exists {
			metadata[entry.TagName] = value
		}
	}
	return metadata
}
