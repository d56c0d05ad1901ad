package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// This test ensures that defaults are documented through tests and that changes
// to defaults are intentional (tests will fail if defaults change unexpectedly).
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default Material is Graphene", func(t *testing.T) {
		t.Parallel()
		if cfg.Material != "Graphene" {
			t.Errorf("expected Material to be 'Graphene', got '%s'", cfg.Material)
		}
	})

	t.Run("default Threshold is 0.5", func(t *testing.T) {
		t.Parallel()
		if cfg.Threshold != 0.5 {
			t.Errorf("expected Threshold to be 0.5, got %v", cfg.Threshold)
		}
	})

	t.Run("default outline is red and two pixels wide", func(t *testing.T) {
		t.Parallel()
		if cfg.StrokeWidth != 2 {
			t.Errorf("expected StrokeWidth to be 2, got %d", cfg.StrokeWidth)
		}
		c, err := cfg.StrokeColor()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c != (color.RGBA{R: 255, A: 255}) {
			t.Errorf("expected red, got %v", c)
		}
	})

	t.Run("default MaxTraceSteps is 10000", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxTraceSteps != 10000 {
			t.Errorf("expected MaxTraceSteps to be 10000, got %d", cfg.MaxTraceSteps)
		}
	})

	t.Run("default Mode is recolor", func(t *testing.T) {
		t.Parallel()
		if cfg.Mode != ModeRecolor {
			t.Errorf("expected Mode to be recolor, got %q", cfg.Mode)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() || !cfg.SaveToDB {
			t.Errorf("expected store in %q, got %q (save=%v)", XDGDataDir(), cfg.DBDir, cfg.SaveToDB)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"zero timeout returns ErrInvalidTimeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative batch size returns ErrInvalidBatchSize", func(c *Config) { c.BatchSize = -1 }, ErrInvalidBatchSize},
		{"json and markdown together return ErrConflictingReportFormats", func(c *Config) {
			c.JSONReport = true
			c.MarkdownReport = true
		}, ErrConflictingReportFormats},
		{"threshold above one returns ErrInvalidThreshold", func(c *Config) { c.Threshold = 1.5 }, ErrInvalidThreshold},
		{"zero stroke width returns ErrInvalidStrokeWidth", func(c *Config) { c.StrokeWidth = 0 }, ErrInvalidStrokeWidth},
		{"zero trace steps returns ErrInvalidTraceSteps", func(c *Config) { c.MaxTraceSteps = 0 }, ErrInvalidTraceSteps},
		{"zero sample limit returns ErrInvalidSampleLimit", func(c *Config) { c.SampleLimit = 0 }, ErrInvalidSampleLimit},
		{"unknown mode returns ErrInvalidMode", func(c *Config) { c.Mode = "sepia" }, ErrInvalidMode},
		{"bad colour returns ErrInvalidColor", func(c *Config) { c.HighlightColor = "red" }, ErrInvalidColor},
		{"json alone is valid", func(c *Config) { c.JSONReport = true }, nil},
		{"outline mode is valid", func(c *Config) { c.Mode = ModeOutline }, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"#ff0000", color.RGBA{R: 255, A: 255}, false},
		{"00FF7f", color.RGBA{G: 255, B: 127, A: 255}, false},
		{" #102030 ", color.RGBA{R: 16, G: 32, B: 48, A: 255}, false},
		{"#fff", color.RGBA{}, true},
		{"#12345g", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tc := range testCases {
		t.Run("parse "+strings.TrimSpace(tc.input), func(t *testing.T) {
			t.Parallel()

			got, err := ParseHexColor(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidColor) {
					t.Errorf("expected ErrInvalidColor, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUploadKey(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if got := cfg.UploadKey("/tmp/sample.png"); got != "sample.png" {
		t.Errorf("expected bare name without prefix, got %q", got)
	}
	cfg.UserPrefix = "user-123/"
	if got := cfg.UploadKey("dir/sample.png"); got != "user-123/sample.png" {
		t.Errorf("expected prefixed key, got %q", got)
	}
}

func TestConfigApply(t *testing.T) {
	t.Parallel()

	t.Run("file values override defaults", func(t *testing.T) {
		t.Parallel()

		threshold := 0.8
		f := &File{
			Endpoints:  Endpoints{ProcessImage: "https://api.example.com/process"},
			Auth:       AuthConfig{Token: "tok", User: "user-1", Headers: map[string]string{"X-Api-Key": "k"}},
			Processing: ProcessingConfig{Bucket: "bucket", Material: "MoS2", Threshold: &threshold},
			Render:     RenderConfig{Mode: ModeOutline, StrokeWidth: 3, HighlightColor: "#00ff00", MaxTraceSteps: 500},
			Proxy:      "127.0.0.1:1080",
			Timeout:    "45s",
			DBDir:      "/tmp/db",
		}
		cfg := NewConfig()
		if err := cfg.Apply(f); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Endpoints.ProcessImage != "https://api.example.com/process" {
			t.Error("expected process endpoint")
		}
		if cfg.Token != "tok" || cfg.UserPrefix != "user-1" || cfg.Headers["X-Api-Key"] != "k" {
			t.Error("expected auth values")
		}
		if cfg.Bucket != "bucket" || cfg.Material != "MoS2" || cfg.Threshold != 0.8 {
			t.Error("expected processing values")
		}
		if cfg.Mode != ModeOutline || cfg.StrokeWidth != 3 || cfg.HighlightColor != "#00ff00" || cfg.MaxTraceSteps != 500 {
			t.Error("expected render values")
		}
		if cfg.ProxyAddress != "127.0.0.1:1080" || cfg.Timeout != 45*time.Second || cfg.DBDir != "/tmp/db" {
			t.Error("expected proxy, timeout and db dir")
		}
		if cfg.SampleLimit != DefaultSampleLimit {
			t.Error("unset file values must keep defaults")
		}
	})

	t.Run("nil file is a no-op", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := cfg.Apply(nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid timeout returns ErrInvalidTimeout", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := cfg.Apply(&File{Timeout: "soon"}); !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.matsight")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".matsight")
		content := `endpoints:
  list_images: "https://api.example.com/images/list"
  process_image: "https://api.example.com/image-processing"
auth:
  token: "secret"
  user: "abc-123"
processing:
  bucket: "matsight-images"
  threshold: 0.25
render:
  stroke_width: 4
timeout: "1m"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		f, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Endpoints.ListImages != "https://api.example.com/images/list" {
			t.Errorf("unexpected list endpoint %q", f.Endpoints.ListImages)
		}
		if f.Auth.Token != "secret" || f.Auth.User != "abc-123" {
			t.Error("expected auth section")
		}
		if f.Processing.Threshold == nil || *f.Processing.Threshold != 0.25 {
			t.Error("expected threshold 0.25")
		}
		if f.Render.StrokeWidth != 4 || f.Timeout != "1m" {
			t.Error("expected render and timeout values")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".matsight")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("endpoints: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		t.Run(name+" dir ends with the app name", func(t *testing.T) {
			t.Parallel()
			if filepath.Base(dir) != AppName {
				t.Errorf("expected %q to end with %q", dir, AppName)
			}
		})
	}
}
