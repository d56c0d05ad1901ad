package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/matsight/internal/config"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/sample"
)

// MaxResponseSize bounds how many bytes are read from any response (256MB).
// Label-grid analyses carry every pixel as JSON and get large.
const MaxResponseSize = 256 * 1024 * 1024

// maxErrorBody is how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// Client talks to the remote services.
//
// Design decision: The client keeps two http.Clients. Service calls go
// through a transport that injects the bearer token and custom headers.
// Presigned object URLs are fetched without them because the object store
// rejects requests that carry a second authorization mechanism.
type Client struct {
	endpoints config.Endpoints

	// httpClient is used for service endpoints.
	httpClient *http.Client

	// rawClient is used for presigned URLs.
	rawClient *http.Client

	token        string
	headers      map[string]string
	timeout      time.Duration
	proxyAddress string

	bucket    string
	material  string
	threshold float64

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithToken sets the opaque session token sent as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHeaders adds custom headers to every service request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) { c.headers = headers }
}

// WithProxy routes every request through a SOCKS5 proxy at "host:port".
func WithProxy(address string) Option {
	return func(c *Client) { c.proxyAddress = address }
}

// WithProcessing sets the parameters sent with processing requests.
func WithProcessing(bucket, material string, threshold float64) Option {
	return func(c *Client) {
		c.bucket = bucket
		c.material = material
		c.threshold = threshold
	}
}

// WithHTTPClient replaces the base HTTP client. Token and header injection
// still wrap its transport. Mainly useful for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.rawClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the given endpoints.
//
// Design decision: We don't contact any endpoint in the constructor. This
// keeps object creation separate from network operations and lets the
// offline commands build a client without a network.
func New(endpoints config.Endpoints, opts ...Option) (*Client, error) {
	c := &Client{
		endpoints: endpoints,
		timeout:   config.DefaultTimeout,
		material:  config.DefaultMaterial,
		threshold: config.DefaultThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.rawClient == nil {
		transport, err := newTransport(c.proxyAddress)
		if err != nil {
			return nil, err
		}
		c.rawClient = &http.Client{
			Transport: transport,
			Timeout:   c.timeout,
		}
	}

	base := c.rawClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.httpClient = &http.Client{
		Transport: &headerInjectingTransport{
			base:    base,
			token:   c.token,
			headers: c.headers,
		},
		Timeout:       c.rawClient.Timeout,
		CheckRedirect: c.rawClient.CheckRedirect,
		Jar:           c.rawClient.Jar,
	}
	return c, nil
}

// NewFromConfig creates a Client from the application configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return New(cfg.Endpoints,
		WithTimeout(cfg.Timeout),
		WithToken(cfg.Token),
		WithHeaders(cfg.Headers),
		WithProxy(cfg.ProxyAddress),
		WithProcessing(cfg.Bucket, cfg.Material, cfg.Threshold),
		WithLogger(logger),
	)
}

// newTransport builds the base transport, optionally dialling through a
// SOCKS5 proxy.
func newTransport(proxyAddress string) (http.RoundTripper, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport, nil
	}
	transport = transport.Clone()
	if proxyAddress == "" {
		return transport, nil
	}

	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
// We use a simple check rather than a full URL parser because the format
// is very specific (no scheme, no path, just host and port).
func isValidProxyAddress(address string) bool {
	host, port, ok := strings.Cut(address, ":")
	if !ok || host == "" || port == "" || strings.Contains(port, ":") {
		return false
	}

	portNum := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		if portNum > 65535 {
			return false
		}
	}
	return portNum >= 1
}

// headerInjectingTransport wraps an http.RoundTripper to inject the bearer
// token and custom headers into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	token   string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clone := req.Clone(req.Context())

	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}

// call sends payload as JSON to endpoint and returns the unwrapped envelope body.
func (c *Client) call(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	if endpoint == "" {
		return nil, ErrEndpointNotConfigured
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	data, err := c.do(c.httpClient, req)
	c.logger.Debug("service call",
		"method", method,
		"endpoint", endpoint,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		return nil, err
	}

	inner, err := model.ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	return inner, nil
}

// do executes req and reads the whole body.
func (c *Client) do(hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(data))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       text,
		}
	}
	return data, nil
}

// ListImages lists the image library under prefix. Folder placeholders are
// dropped and the rest is sorted newest first.
func (c *Client) ListImages(ctx context.Context, prefix string) ([]model.ImageObject, error) {
	body, err := c.call(ctx, http.MethodPost, c.endpoints.ListImages, map[string]string{"prefix": prefix})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Images []model.ImageObject `json:"images"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode image list: %w", err)
	}

	images := slices.DeleteFunc(resp.Images, model.ImageObject.IsFolder)
	slices.SortStableFunc(images, func(a, b model.ImageObject) int {
		return b.LastModified.Compare(a.LastModified)
	})
	return images, nil
}

// ImageURL returns a presigned URL for key.
func (c *Client) ImageURL(ctx context.Context, key string) (string, error) {
	body, err := c.call(ctx, http.MethodPost, c.endpoints.ImageURL, map[string]string{"image_key": key})
	if err != nil {
		return "", err
	}

	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode image url: %w", err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%w: url", ErrMissingField)
	}
	return resp.URL, nil
}

// FetchImage downloads the bytes behind a presigned URL.
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(c.rawClient, req)
}

// LoadImage resolves key to a presigned URL, downloads and decodes it.
func (c *Client) LoadImage(ctx context.Context, key string) (*sample.Sample, error) {
	url, err := c.ImageURL(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := c.FetchImage(ctx, url)
	if err != nil {
		return nil, err
	}
	return sample.Decode(data)
}

// Upload stores data under key. The bytes travel base64-encoded in the
// JSON body.
func (c *Client) Upload(ctx context.Context, key string, data []byte) error {
	_, err := c.call(ctx, http.MethodPost, c.endpoints.UploadImage, map[string]string{
		"image_key":  key,
		"image_data": base64.StdEncoding.EncodeToString(data),
	})
	return err
}

// Delete removes key from the library.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.call(ctx, http.MethodDelete, c.endpoints.DeleteImage, map[string]string{"image_key": key})
	return err
}

// processRequest is the body of a processing request.
type processRequest struct {
	BucketName string  `json:"bucket_name"`
	ImageKey   string  `json:"image_key"`
	Material   string  `json:"material"`
	Threshold  float64 `json:"threshold"`
}

// Process asks the analysis service to analyse key and decodes the result.
func (c *Client) Process(ctx context.Context, key string) (model.Analysis, error) {
	body, err := c.call(ctx, http.MethodPost, c.endpoints.ProcessImage, processRequest{
		BucketName: c.bucket,
		ImageKey:   key,
		Material:   c.material,
		Threshold:  c.threshold,
	})
	if err != nil {
		return nil, err
	}
	return model.ParseAnalysis(body)
}

// RegisterUser records a newly verified user with the backend.
func (c *Client) RegisterUser(ctx context.Context, userID string) error {
	_, err := c.call(ctx, http.MethodPut, c.endpoints.RegisterUser, map[string]string{"user_id": userID})
	return err
}
