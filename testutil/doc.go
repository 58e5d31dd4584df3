// Package testutil provides test helpers for the oauth2-client packages.
//
// It includes utilities to spin up IPv4-only local HTTP servers (avoiding IPv6 in sandboxes),
// mock OAuth2 token endpoints without real sockets, and generate self-signed certificates for TLS/mTLS tests.
//
// # Utilities
//
//   - NewLocalHTTPServer: start httptest server bound to 127.0.0.1
//   - MockOAuth2Server: stub token endpoint capturing requests and decoded form bodies
//   - StaticJSONResponse, JSONResponse, TokenResponse, SequentialTokenResponses: canned responses
//   - DecodeForm: decode captured forms into schema-tagged structs
//   - RoundTripFunc: inline http.RoundTripper implementations
//   - WriteTestCACert / WriteTestCertAndKey: generate temporary CA and leaf certificates for tests
//   - CreateSignedAccessToken: JWT-shaped access tokens
//
// These helpers are designed for tests and may mutate http.DefaultClient/Transport; they restore previous values via tb.Cleanup.
package testutil
