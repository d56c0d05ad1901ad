// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic masking of session tokens, authorization headers, and API keys
//   - Scrubbing of presigned object-store URL signatures
//   - Truncation of inline image payloads (data URLs, base64 uploads)
//   - Configurable log levels with verbose mode support
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of credentials in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("image url resolved",
//	    "image_key", "user/sample.png",
//	    "url", presignedURL, // X-Amz-Signature is masked
//	)
//
//	slog.SetDefault(logger)
package log
