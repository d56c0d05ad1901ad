package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/matsight/internal/config"
	"github.com/nao1215/matsight/internal/model"
)

// envelope wraps body the way the gateway does.
func envelope(t *testing.T, status int, body any) []byte {
	t.Helper()
	inner, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(map[string]any{"statusCode": status, "body": string(inner)})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

// seenRequest is what a test server saw of one request.
type seenRequest struct {
	method  string
	auth    string
	custom  string
	payload map[string]any
}

// recorded captures the last request a test server saw.
type recorded struct {
	mu   sync.Mutex
	last seenRequest
}

// snapshot returns the last request.
func (r *recorded) snapshot() seenRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func newServer(t *testing.T, rec *recorded, respond func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		var payload map[string]any
		if len(data) > 0 {
			_ = json.Unmarshal(data, &payload) //nolint:errcheck // test server
		}
		rec.mu.Lock()
		rec.last = seenRequest{
			method:  r.Method,
			auth:    r.Header.Get("Authorization"),
			custom:  r.Header.Get("X-Lab"),
			payload: payload,
		}
		rec.mu.Unlock()
		respond(w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		c, err := New(config.Endpoints{}, WithProxy("127.0.0.1:1080"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c == nil {
			t.Fatal("expected non-nil client")
		}
	})

	t.Run("invalid proxy address returns error", func(t *testing.T) {
		t.Parallel()

		_, err := New(config.Endpoints{}, WithProxy("127.0.0.1"))
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("timeout is applied", func(t *testing.T) {
		t.Parallel()

		c, err := New(config.Endpoints{}, WithTimeout(5*time.Second))
		if err != nil {
			t.Fatal(err)
		}
		if c.httpClient.Timeout != 5*time.Second || c.rawClient.Timeout != 5*time.Second {
			t.Errorf("timeouts = %v / %v", c.httpClient.Timeout, c.rawClient.Timeout)
		}
	})
}

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"127.0.0.1:1080", true},
		{"localhost:9050", true},
		{"", false},
		{"127.0.0.1", false},
		{":1080", false},
		{"host:", false},
		{"host:abc", false},
		{"host:0", false},
		{"host:65536", false},
		{"a:b:c", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tt.address); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestClient_EndpointNotConfigured(t *testing.T) {
	t.Parallel()

	c, err := New(config.Endpoints{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := c.ListImages(ctx, ""); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("ListImages: expected ErrEndpointNotConfigured, got %v", err)
	}
	if _, err := c.Process(ctx, "k"); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("Process: expected ErrEndpointNotConfigured, got %v", err)
	}
	if err := c.RegisterUser(ctx, "sub"); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("RegisterUser: expected ErrEndpointNotConfigured, got %v", err)
	}
}

func TestClient_ListImages(t *testing.T) {
	t.Parallel()

	rec := &recorded{}
	srv := newServer(t, rec, func(w http.ResponseWriter) {
		_, _ = w.Write(envelope(t, 200, map[string]any{ //nolint:errcheck // test server
			"images": []map[string]any{
				{"key": "u/old.png", "last_modified": "2024-01-01T00:00:00Z"},
				{"key": "u/folder/", "last_modified": "2024-06-01T00:00:00Z"},
				{"key": "u/new.png", "last_modified": "2024-05-01 10:00:00+00:00"},
			},
		}))
	})

	c, err := New(config.Endpoints{ListImages: srv.URL},
		WithToken("opaque-token"),
		WithHeaders(map[string]string{"X-Lab": "nano"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	images, err := c.ListImages(context.Background(), "u/")
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}

	if len(images) != 2 {
		t.Fatalf("expected 2 images (folder dropped), got %d", len(images))
	}
	got := rec.snapshot()
	if images[0].Key != "u/new.png" || images[1].Key != "u/old.png" {
		t.Errorf("expected newest first, got %s, %s", images[0].Key, images[1].Key)
	}
	if got.method != http.MethodPost {
		t.Errorf("method = %s", got.method)
	}
	if got.auth != "Bearer opaque-token" {
		t.Errorf("Authorization = %q", got.auth)
	}
	if got.custom != "nano" {
		t.Errorf("X-Lab = %q", got.custom)
	}
	if got.payload["prefix"] != "u/" {
		t.Errorf("payload = %v", got.payload)
	}
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	t.Run("HTTP error status becomes StatusError", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, &recorded{}, func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("forbidden")) //nolint:errcheck // test server
		})
		c, err := New(config.Endpoints{ImageURL: srv.URL})
		if err != nil {
			t.Fatal(err)
		}

		_, err = c.ImageURL(context.Background(), "k")
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected *StatusError, got %v", err)
		}
		if se.StatusCode != http.StatusForbidden || se.Body != "forbidden" {
			t.Errorf("unexpected StatusError: %+v", se)
		}
	})

	t.Run("envelope error status becomes ErrEnvelope", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, &recorded{}, func(w http.ResponseWriter) {
			_, _ = w.Write(envelope(t, 500, map[string]string{"error": "boom"})) //nolint:errcheck // test server
		})
		c, err := New(config.Endpoints{ImageURL: srv.URL})
		if err != nil {
			t.Fatal(err)
		}

		if _, err := c.ImageURL(context.Background(), "k"); !errors.Is(err, model.ErrEnvelope) {
			t.Errorf("expected ErrEnvelope, got %v", err)
		}
	})

	t.Run("missing url field", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, &recorded{}, func(w http.ResponseWriter) {
			_, _ = w.Write(envelope(t, 200, map[string]string{})) //nolint:errcheck // test server
		})
		c, err := New(config.Endpoints{ImageURL: srv.URL})
		if err != nil {
			t.Fatal(err)
		}

		if _, err := c.ImageURL(context.Background(), "k"); !errors.Is(err, ErrMissingField) {
			t.Errorf("expected ErrMissingField, got %v", err)
		}
	})

	t.Run("malformed JSON is a decode error", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, &recorded{}, func(w http.ResponseWriter) {
			_, _ = w.Write([]byte("{not json")) //nolint:errcheck // test server
		})
		c, err := New(config.Endpoints{ListImages: srv.URL})
		if err != nil {
			t.Fatal(err)
		}

		if _, err := c.ListImages(context.Background(), ""); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestClient_Process(t *testing.T) {
	t.Parallel()

	rec := &recorded{}
	srv := newServer(t, rec, func(w http.ResponseWriter) {
		_, _ = w.Write(envelope(t, 200, map[string]any{ //nolint:errcheck // test server
			"result": map[string]any{
				"flakes": []map[string]any{
					{"thickness": 1, "size": 12.5},
					{"thickness": 2, "size": 3},
				},
				"total_flakes": 5,
			},
		}))
	})

	c, err := New(config.Endpoints{ProcessImage: srv.URL}, WithProcessing("lab-bucket", "Graphene", 0.7))
	if err != nil {
		t.Fatal(err)
	}

	analysis, err := c.Process(context.Background(), "u/flake.png")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	regions, ok := analysis.(*model.RegionListAnalysis)
	if !ok {
		t.Fatalf("expected region list, got %T", analysis)
	}
	if len(regions.Flakes) != 2 || regions.TotalFlakes != 5 {
		t.Errorf("unexpected analysis: %+v", regions)
	}

	payload := rec.snapshot().payload
	if payload["bucket_name"] != "lab-bucket" || payload["image_key"] != "u/flake.png" || payload["material"] != "Graphene" {
		t.Errorf("unexpected payload: %v", payload)
	}
	if payload["threshold"] != 0.7 {
		t.Errorf("threshold = %v", payload["threshold"])
	}
}

func TestClient_UploadDeleteRegister(t *testing.T) {
	t.Parallel()

	rec := &recorded{}
	srv := newServer(t, rec, func(w http.ResponseWriter) {
		_, _ = w.Write(envelope(t, 200, map[string]string{"message": "ok"})) //nolint:errcheck // test server
	})
	c, err := New(config.Endpoints{UploadImage: srv.URL, DeleteImage: srv.URL, RegisterUser: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Run("upload sends base64 data", func(t *testing.T) {
		if err := c.Upload(ctx, "u/a.png", []byte("raw bytes")); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		got := rec.snapshot()
		if got.method != http.MethodPost || got.payload["image_key"] != "u/a.png" {
			t.Errorf("unexpected request %s %v", got.method, got.payload)
		}
		if got.payload["image_data"] != base64.StdEncoding.EncodeToString([]byte("raw bytes")) {
			t.Errorf("image_data = %v", got.payload["image_data"])
		}
	})

	t.Run("delete uses DELETE with the key", func(t *testing.T) {
		if err := c.Delete(ctx, "u/a.png"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		got := rec.snapshot()
		if got.method != http.MethodDelete || got.payload["image_key"] != "u/a.png" {
			t.Errorf("unexpected request %s %v", got.method, got.payload)
		}
	})

	t.Run("register uses PUT with the user id", func(t *testing.T) {
		if err := c.RegisterUser(ctx, "sub-123"); err != nil {
			t.Fatalf("RegisterUser() error = %v", err)
		}
		got := rec.snapshot()
		if got.method != http.MethodPut || got.payload["user_id"] != "sub-123" {
			t.Errorf("unexpected request %s %v", got.method, got.payload)
		}
	})
}

func TestClient_LoadImage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatal(err)
	}
	pngData := buf.Bytes()

	objectAuth := make(chan string, 1)
	objects := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		objectAuth <- r.Header.Get("Authorization")
		_, _ = w.Write(pngData) //nolint:errcheck // test server
	}))
	t.Cleanup(objects.Close)

	presign := newServer(t, &recorded{}, func(w http.ResponseWriter) {
		_, _ = w.Write(envelope(t, 200, map[string]string{"url": objects.URL + "/u/a.png?X-Amz-Signature=abc"})) //nolint:errcheck // test server
	})

	c, err := New(config.Endpoints{ImageURL: presign.URL}, WithToken("opaque"))
	if err != nil {
		t.Fatal(err)
	}

	s, err := c.LoadImage(context.Background(), "u/a.png")
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if s.Bounds().Dx() != 4 || s.Bounds().Dy() != 3 {
		t.Errorf("bounds = %v", s.Bounds())
	}
	if auth := <-objectAuth; auth != "" {
		t.Errorf("presigned fetch must not carry Authorization, got %q", auth)
	}
}

func TestHeaderInjectingTransport(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
	}))
	t.Cleanup(srv.Close)

	transport := &headerInjectingTransport{
		base:    http.DefaultTransport,
		token:   "tok",
		headers: map[string]string{"X-Api-Key": "k"},
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	got := <-headers
	if got.Get("Authorization") != "Bearer tok" || got.Get("X-Api-Key") != "k" {
		t.Errorf("headers not injected: %v", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("original request must not be modified")
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	e := &StatusError{Method: "POST", URL: "http://x", StatusCode: 500}
	if e.Error() != "POST http://x: unexpected status 500" {
		t.Errorf("Error() = %q", e.Error())
	}
	e.Body = "oops"
	if e.Error() != "POST http://x: unexpected status 500: oops" {
		t.Errorf("Error() = %q", e.Error())
	}
}
