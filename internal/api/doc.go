// Package api is the HTTP client for the remote MatSight services: the
// image library (list, presign, upload, delete), the analysis service and
// user registration.
//
// Every endpoint answers with a gateway envelope whose body is a JSON
// document encoded as a string; the client unwraps it before decoding.
// Endpoints are configured individually, and calling an operation whose
// endpoint is empty returns ErrEndpointNotConfigured.
//
// Session tokens are opaque. They are attached as bearer credentials by a
// wrapping http.RoundTripper and never interpreted.
package api
