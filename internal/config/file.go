package config

import "time"

// Endpoints holds the URLs of the remote services.
type Endpoints struct {
	ListImages   string `yaml:"list_images,omitempty"`
	ImageURL     string `yaml:"image_url,omitempty"`
	UploadImage  string `yaml:"upload_image,omitempty"`
	DeleteImage  string `yaml:"delete_image,omitempty"`
	ProcessImage string `yaml:"process_image,omitempty"`
	RegisterUser string `yaml:"register_user,omitempty"`
}

// merge fills empty fields of e from other.
func (e *Endpoints) merge(other Endpoints) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&e.ListImages, other.ListImages)
	fill(&e.ImageURL, other.ImageURL)
	fill(&e.UploadImage, other.UploadImage)
	fill(&e.DeleteImage, other.DeleteImage)
	fill(&e.ProcessImage, other.ProcessImage)
	fill(&e.RegisterUser, other.RegisterUser)
}

// AuthConfig holds credentials issued by the external sign-in flow.
type AuthConfig struct {
	// Token is the opaque session token.
	Token string `yaml:"token,omitempty"`
	// User is the user's subject ID, used as the object-store folder.
	User string `yaml:"user,omitempty"`
	// Headers are extra HTTP headers for every request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// ProcessingConfig holds the parameters sent with processing requests.
type ProcessingConfig struct {
	Bucket    string   `yaml:"bucket,omitempty"`
	Material  string   `yaml:"material,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// RenderConfig holds overlay defaults.
type RenderConfig struct {
	Mode           string `yaml:"mode,omitempty"`
	StrokeWidth    int    `yaml:"stroke_width,omitempty"`
	HighlightColor string `yaml:"highlight_color,omitempty"`
	MaxTraceSteps  int    `yaml:"max_trace_steps,omitempty"`
	SampleLimit    int    `yaml:"sample_limit,omitempty"`
}

// File represents the structure of the .matsight configuration file.
type File struct {
	Endpoints  Endpoints        `yaml:"endpoints,omitempty"`
	Auth       AuthConfig       `yaml:"auth,omitempty"`
	Processing ProcessingConfig `yaml:"processing,omitempty"`
	Render     RenderConfig     `yaml:"render,omitempty"`
	// Proxy is an optional SOCKS5 proxy in "host:port" format.
	Proxy string `yaml:"proxy,omitempty"`
	// Timeout is a Go duration string such as "45s".
	Timeout string `yaml:"timeout,omitempty"`
	// DBDir overrides the analysis store directory.
	DBDir string `yaml:"db_dir,omitempty"`
}

// Apply copies every value set in the file onto c. Values already set
// by the caller are only overwritten when the file provides one, so callers
// apply the file first and command-line flags afterwards.
func (c *Config) Apply(f *File) error {
	if f == nil {
		return nil
	}

	c.Endpoints.merge(f.Endpoints)
	setString(&c.Token, f.Auth.Token)
	setString(&c.UserPrefix, f.Auth.User)
	if len(f.Auth.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(f.Auth.Headers))
		}
		for k, v := range f.Auth.Headers {
			c.Headers[k] = v
		}
	}

	setString(&c.Bucket, f.Processing.Bucket)
	setString(&c.Material, f.Processing.Material)
	if f.Processing.Threshold != nil {
		c.Threshold = *f.Processing.Threshold
	}

	setString(&c.Mode, f.Render.Mode)
	setString(&c.HighlightColor, f.Render.HighlightColor)
	setInt(&c.StrokeWidth, f.Render.StrokeWidth)
	setInt(&c.MaxTraceSteps, f.Render.MaxTraceSteps)
	setInt(&c.SampleLimit, f.Render.SampleLimit)

	setString(&c.ProxyAddress, f.Proxy)
	setString(&c.DBDir, f.DBDir)
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return ErrInvalidTimeout
		}
		c.Timeout = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
