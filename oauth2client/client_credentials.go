package oauth2client

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/egomobile/oauth2-client-go/httpclient"
)

// ExchangeClientCredentials validates cfg and performs one token request of
// grant type client_credentials.
//
// Returns:
//   - *oauth2.Token: the bearer token, with the raw response fields in Extra
//   - error: *ConfigurationError, *TransportError, *ResponseShapeError or *UnsupportedTokenTypeError
func ExchangeClientCredentials(ctx context.Context, cfg GrantConfig, opts ...Option) (*oauth2.Token, error) {
	if err := validateClientCredentials(cfg); err != nil {
		return nil, err
	}
	return exchange(ctx, newSettings(opts), cfg.TokenURL, GrantTypeClientCredentials, newClientCredentialsRequest(cfg))
}

// NewClientCredentialsClient obtains an access token via the client_credentials
// grant and returns a client that sends it as Bearer token on every request.
//
// The returned client resolves relative references against cfg.BaseURL and
// accepts every response status unless cfg.ClientConfig sets another policy.
// It has no request timeout unless cfg.ClientConfig sets one, and it never
// refreshes its token.
//
// Example:
//
//	client, err := oauth2client.NewClientCredentialsClient(ctx, oauth2client.GrantConfig{
//	    ClientID:     "foo",
//	    ClientSecret: "bar",
//	    BaseURL:      "https://api.example.com",
//	    TokenURL:     "https://api.example.com/oauth2/token",
//	})
//	resp, err := client.Get(ctx, "/foo?bar=baz")
func NewClientCredentialsClient(ctx context.Context, cfg GrantConfig, opts ...Option) (*httpclient.Client, error) {
	token, err := ExchangeClientCredentials(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return authorizedClient(token, cfg)
}

// NewClientCredentialsClientFactory returns a ClientFactory that runs
// NewClientCredentialsClient with cfg on every call.
func NewClientCredentialsClientFactory(cfg GrantConfig, opts ...Option) ClientFactory {
	return func(ctx context.Context) (*httpclient.Client, error) {
		return NewClientCredentialsClient(ctx, cfg, opts...)
	}
}

// ClientCredentialsTokenSource returns an oauth2.TokenSource that performs a
// new client_credentials exchange on every Token call, using ctx for each
// request. Wrap it with oauth2.ReuseTokenSource to cache tokens.
func ClientCredentialsTokenSource(ctx context.Context, cfg GrantConfig, opts ...Option) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) {
		return ExchangeClientCredentials(ctx, cfg, opts...)
	})
}
