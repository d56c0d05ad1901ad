package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Envelope is the gateway wrapper every remote endpoint responds with.
// Body is itself a JSON document encoded as a string.
type Envelope struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

// ParseEnvelope unwraps a gateway response and returns the inner body bytes.
//
// Some endpoints answer with a bare JSON object instead of an envelope; in that
// case the document is returned unchanged. A statusCode outside 2xx becomes an
// ErrEnvelope error carrying the body text.
func ParseEnvelope(data []byte) ([]byte, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvelope, err)
	}
	if env.StatusCode == 0 && len(env.Body) == 0 {
		return data, nil
	}

	body, err := unquoteBody(env.Body)
	if err != nil {
		return nil, err
	}
	if env.StatusCode != 0 && (env.StatusCode < 200 || env.StatusCode > 299) {
		return nil, fmt.Errorf("%w: status %d: %s", ErrEnvelope, env.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func unquoteBody(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		// Already an object (or empty).
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvelope, err)
	}
	return []byte(s), nil
}

// ImageObject is one entry of the remote image library.
type ImageObject struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size,omitempty"`
}

// IsFolder reports whether the key names a folder placeholder.
func (o ImageObject) IsFolder() bool {
	return strings.HasSuffix(o.Key, "/")
}

// timestampFormats lists the layouts the listing endpoint has been seen to
// emit for last_modified. Python's str(datetime) uses a space separator.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a timestamp in any of the known listing formats.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler, accepting every listing
// timestamp format.
func (o *ImageObject) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key          string `json:"key"`
		LastModified string `json:"last_modified"`
		Size         int64  `json:"size"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Key = raw.Key
	o.Size = raw.Size
	o.LastModified = time.Time{}
	if raw.LastModified != "" {
		t, err := ParseTimestamp(raw.LastModified)
		if err != nil {
			return err
		}
		o.LastModified = t
	}
	return nil
}

// Name returns the last path element of the key.
func (o ImageObject) Name() string {
	if i := strings.LastIndex(o.Key, "/"); i >= 0 {
		return o.Key[i+1:]
	}
	return o.Key
}
