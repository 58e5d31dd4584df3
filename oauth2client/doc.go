// Package oauth2client builds pre-authenticated HTTP clients by running an OAuth2 token
// exchange first.
//
// Two grant types are supported: client_credentials and password (resource owner password
// credentials). Each flow validates its configuration, POSTs one form-encoded token request,
// checks that the response carries a bearer access token, and returns an *httpclient.Client
// that sends "Authorization: Bearer <token>" on every request.
//
// # Features
//
//   - Eager builders (NewClientCredentialsClient, NewPasswordClient)
//   - Factories that exchange a fresh token on every call (NewClientCredentialsClientFactory,
//     NewPasswordClientFactory)
//   - oauth2.TokenSource adapters for integrations such as gRPC
//   - Layered client configuration: derived defaults, then caller headers, then caller config
//   - Typed errors: ConfigurationError, TransportError, ResponseShapeError,
//     UnsupportedTokenTypeError
//   - Optional logging (WithLogger, WithLoggingEnabled)
//
// # Quick Start
//
//	client, err := oauth2client.NewClientCredentialsClient(ctx, oauth2client.GrantConfig{
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	    TokenURL:     "https://auth.example.com/oauth/v2/token",
//	    BaseURL:      "https://api.example.com",
//	    Scope:        "openid profile",
//	    Headers:      map[string]string{"X-Request-Source": "batch"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get(ctx, "/foo?bar=baz")
//
// # Notes
//
//   - Tokens are neither cached nor refreshed. Use a factory (or a token source wrapped in
//     oauth2.ReuseTokenSource) when a long-running process needs new tokens.
//   - The HTTP status of the token response is not checked; only its body is validated.
//   - Resulting clients accept every response status by default. Set
//     GrantConfig.ClientConfig.ValidateStatus for stricter handling.
//   - Nothing is retried and failures are never logged.
package oauth2client
