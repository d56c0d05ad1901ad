package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	t.Run("string body is unquoted", func(t *testing.T) {
		t.Parallel()

		body, err := ParseEnvelope([]byte(`{"statusCode": 200, "body": "{\"url\": \"https://example.com/a.png\"}"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var out struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("body is not JSON: %v", err)
		}
		if out.URL != "https://example.com/a.png" {
			t.Errorf("unexpected url %q", out.URL)
		}
	})

	t.Run("object body is returned as is", func(t *testing.T) {
		t.Parallel()

		body, err := ParseEnvelope([]byte(`{"statusCode": 200, "body": {"ok": true}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok": true}` {
			t.Errorf("unexpected body %s", body)
		}
	})

	t.Run("bare document without envelope passes through", func(t *testing.T) {
		t.Parallel()

		in := []byte(`{"images": []}`)
		body, err := ParseEnvelope(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != string(in) {
			t.Errorf("expected passthrough, got %s", body)
		}
	})

	t.Run("failure status becomes an error with the body text", func(t *testing.T) {
		t.Parallel()

		_, err := ParseEnvelope([]byte(`{"statusCode": 500, "body": "model crashed"}`))
		if !errors.Is(err, ErrEnvelope) {
			t.Fatalf("expected ErrEnvelope, got %v", err)
		}
		if got := err.Error(); got != "invalid response envelope: status 500: model crashed" {
			t.Errorf("unexpected message %q", got)
		}
	})
}

func TestImageObject(t *testing.T) {
	t.Parallel()

	t.Run("python style timestamps are parsed", func(t *testing.T) {
		t.Parallel()

		var obj ImageObject
		if err := json.Unmarshal([]byte(`{"key":"u/a.png","last_modified":"2024-03-01 10:00:00+00:00"}`), &obj); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if obj.LastModified.Year() != 2024 || obj.LastModified.Hour() != 10 {
			t.Errorf("unexpected time %v", obj.LastModified)
		}
		if obj.Name() != "a.png" {
			t.Errorf("unexpected name %q", obj.Name())
		}
	})

	t.Run("folder keys are detected", func(t *testing.T) {
		t.Parallel()

		if !(ImageObject{Key: "u/"}).IsFolder() {
			t.Error("expected folder")
		}
		if (ImageObject{Key: "u/a.png"}).IsFolder() {
			t.Error("expected file")
		}
	})

	t.Run("garbage timestamp is an error", func(t *testing.T) {
		t.Parallel()

		var obj ImageObject
		if err := json.Unmarshal([]byte(`{"key":"a","last_modified":"yesterday"}`), &obj); err == nil {
			t.Error("expected an error")
		}
	})
}
