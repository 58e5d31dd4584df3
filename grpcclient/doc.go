// Package grpcclient provides a fluent builder for secure gRPC client connections that
// authenticate with an OAuth2 bearer token.
//
// The token is obtained through the oauth2client grant flows and attached to every RPC as
// "authorization: Bearer <token>" metadata by unary and stream client interceptors.
// Connections default to TLS 1.2+ using system roots to avoid accidental plaintext connections.
//
// # Features
//
//   - Fluent builder for gRPC clients
//   - client_credentials and password grants via oauth2client (one exchange per Build)
//   - Arbitrary oauth2.TokenSource support, consulted on every RPC
//   - Secure-by-default TLS; optional custom CA and mTLS
//   - Additional dial options via WithDialOptions
//
// # Quick Start
//
//	conn, err := grpcclient.NewBuilder().
//	    WithAddress("server.example.com:9090").
//	    WithClientCredentials(oauth2client.GrantConfig{
//	        ClientID:     "client-id",
//	        ClientSecret: "client-secret",
//	        TokenURL:     "https://auth.example.com/oauth/v2/token",
//	        Scope:        "openid profile",
//	    }).
//	    WithTLS("/path/to/ca.crt", "", "", "server.example.com").
//	    Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	client := pb.NewYourServiceClient(conn)
//
// # Token Lifetime
//
// Tokens obtained by WithClientCredentials and WithPassword are never refreshed. For
// long-lived connections use WithTokenSource with a source wrapped in oauth2.ReuseTokenSource.
//
// # TLS Behavior
//
// TLS is enabled by default with system CAs and TLS 1.2 minimum. WithTLS allows supplying a custom
// root CA and optional client cert/key for mTLS; both cert and key must be provided together.
package grpcclient
