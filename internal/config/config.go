package config

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout matches the web client's request timeout. Processing a
	// large micrograph on the analysis service regularly takes tens of seconds.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of analyses rendered concurrently.
	// Rendering is CPU and memory bound (one full-size RGBA buffer per job),
	// so a small number keeps peak memory predictable.
	DefaultBatchSize = 4

	// DefaultMaterial is the material sent with processing requests.
	DefaultMaterial = "Graphene"

	// DefaultThreshold is the detection threshold sent with processing requests.
	DefaultThreshold = 0.5

	// DefaultStrokeWidth is the outline width in pixels.
	DefaultStrokeWidth = 2

	// DefaultHighlightColor is the outline colour.
	DefaultHighlightColor = "#ff0000"

	// DefaultMaxTraceSteps caps contour tracing.
	DefaultMaxTraceSteps = 10000

	// DefaultSampleLimit is how many pixels are averaged per label colour.
	DefaultSampleLimit = 100

	// DefaultPaletteCacheSize is how many legends are memoised per process.
	DefaultPaletteCacheSize = 32

	// DefaultMode is the label-grid view used when nothing else is asked for.
	DefaultMode = ModeRecolor

	// AppName is the application name used for XDG directory paths.
	AppName = "matsight"
)

// View modes accepted by --mode.
const (
	ModeRecolor = "recolor"
	ModePalette = "palette"
	ModeOutline = "outline"
	ModeBox     = "box"
)

// Modes lists every accepted view mode.
var Modes = []string{ModeRecolor, ModePalette, ModeOutline, ModeBox}

// Config holds all configuration options for MatSight.
// This struct is populated from the configuration file and CLI flags and is
// passed through the application via dependency injection rather than global
// state.
//
// Design decision: We keep a single flat struct. Endpoints are the only
// nested group because they are always set together from the configuration
// file.
type Config struct {
	// Endpoints are the remote service URLs. An empty endpoint disables the
	// matching command.
	Endpoints Endpoints

	// Token is the opaque session token sent as a bearer credential.
	// It is never interpreted and never logged.
	Token string

	// Headers are extra HTTP headers added to every remote request.
	Headers map[string]string

	// UserPrefix is the object-store folder of the current user. Uploads are
	// stored as "{UserPrefix}/{filename}" and listings default to it.
	UserPrefix string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Timeout bounds each remote request.
	Timeout time.Duration

	// Bucket is the object-store bucket sent with processing requests.
	Bucket string

	// Material is the material name sent with processing requests.
	Material string

	// Threshold is the detection threshold in [0, 1].
	Threshold float64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of analyses rendered concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .matsight in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// JSONReport writes the summary as JSON (the download artifact).
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the summary as GitHub Flavored Markdown with
	// tables and a pie chart. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the summary.
	// When set, the summary is written to this file instead of stdout.
	ReportFile string

	// OutputPath is where the rendered PNG is written. Empty skips PNG output.
	OutputPath string

	// SVGPath is where the outline SVG is written. Empty skips SVG output.
	SVGPath string

	// PrintDataURL prints the rendered image as a PNG data URL.
	PrintDataURL bool

	// Mode is one of Modes.
	Mode string

	// StrokeWidth is the outline width in pixels.
	StrokeWidth int

	// HighlightColor is the outline colour as #rrggbb.
	HighlightColor string

	// MaxTraceSteps caps contour tracing.
	MaxTraceSteps int

	// SampleLimit is how many pixels are averaged per label colour.
	SampleLimit int

	// PaletteCacheSize is how many legends are memoised.
	PaletteCacheSize int

	// DBDir is the directory of the SQLite analysis store.
	// Defaults to the XDG data directory (~/.local/share/matsight on Linux).
	DBDir string

	// SaveToDB stores every analysis received from the service.
	SaveToDB bool

	// Force re-processes an image even when a stored analysis exists.
	Force bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeout, material,
// stroke width). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:          DefaultTimeout,
		BatchSize:        DefaultBatchSize,
		Material:         DefaultMaterial,
		Threshold:        DefaultThreshold,
		Mode:             DefaultMode,
		StrokeWidth:      DefaultStrokeWidth,
		HighlightColor:   DefaultHighlightColor,
		MaxTraceSteps:    DefaultMaxTraceSteps,
		SampleLimit:      DefaultSampleLimit,
		PaletteCacheSize: DefaultPaletteCacheSize,
		DBDir:            XDGDataDir(),
		SaveToDB:         true,
	}
}

// XDGDataDir returns the XDG data directory for MatSight.
// On Linux: ~/.local/share/matsight
// On macOS: ~/Library/Application Support/matsight
// On Windows: %LOCALAPPDATA%\matsight
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for MatSight.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for MatSight.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// UploadKey returns the object key an uploaded file is stored under.
func (c *Config) UploadKey(filename string) string {
	name := filepath.Base(filename)
	prefix := strings.Trim(c.UserPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// StrokeColor parses HighlightColor.
func (c *Config) StrokeColor() (color.RGBA, error) {
	return ParseHexColor(c.HighlightColor)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return ErrInvalidThreshold
	}
	if c.StrokeWidth < 1 {
		return ErrInvalidStrokeWidth
	}
	if c.MaxTraceSteps <= 0 {
		return ErrInvalidTraceSteps
	}
	if c.SampleLimit <= 0 {
		return ErrInvalidSampleLimit
	}
	if !isMode(c.Mode) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if _, err := c.StrokeColor(); err != nil {
		return err
	}
	return nil
}

func isMode(m string) bool {
	for _, v := range Modes {
		if v == m {
			return true
		}
	}
	return false
}

// ParseHexColor parses "#rrggbb" or "rrggbb" into an opaque colour.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
