// Package httpclient provides the HTTP client returned by the OAuth2 grant flows, and a
// fluent builder for constructing such clients directly.
//
// A Client is bound to an optional base URL, a set of default headers and a status policy.
// Configuration is expressed as layered Config values: Merge applies them from lowest to
// highest precedence, so callers can override any default the flows derive.
//
// # Features
//
//   - Base URL resolution for relative request references
//   - Default headers that per-request headers can still override
//   - Status policies (AcceptAllStatuses by default, AcceptSuccessStatuses, AcceptBelow)
//   - Secure-by-default TLS 1.2+, optional custom CA and mTLS
//   - Custom base transports and redirect control
//
// # Quick Start
//
//	client, err := httpclient.NewBuilder().
//	    WithBaseURL("https://api.example.com").
//	    WithBearerToken(accessToken).
//	    WithStatusPolicy(httpclient.AcceptSuccessStatuses).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get(ctx, "/users?active=true")
//
// # Status Policies
//
// Clients accept every status code by default; Do only returns a *StatusError when a
// stricter policy is configured. The underlying *http.Client returned by HTTPClient
// never applies the policy.
package httpclient
