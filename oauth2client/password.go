package oauth2client

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/egomobile/oauth2-client-go/httpclient"
)

// ExchangePassword validates cfg and performs one token request of grant
// type password.
func ExchangePassword(ctx context.Context, cfg PasswordGrantConfig, opts ...Option) (*oauth2.Token, error) {
	if err := validatePassword(cfg); err != nil {
		return nil, err
	}
	return exchange(ctx, newSettings(opts), cfg.TokenURL, GrantTypePassword, newPasswordRequest(cfg))
}

// NewPasswordClient obtains an access token via the resource owner password
// credentials grant and returns a client that sends it as Bearer token on
// every request. The client behaves like the one of NewClientCredentialsClient.
//
// Example:
//
//	client, err := oauth2client.NewPasswordClient(ctx, oauth2client.PasswordGrantConfig{
//	    GrantConfig: oauth2client.GrantConfig{
//	        ClientID:     "foo",
//	        ClientSecret: "bar",
//	        BaseURL:      "https://api.example.com",
//	        TokenURL:     "https://api.example.com/oauth2/token",
//	    },
//	    Username: "bill",
//	    Password: "G@tes1234!",
//	})
func NewPasswordClient(ctx context.Context, cfg PasswordGrantConfig, opts ...Option) (*httpclient.Client, error) {
	token, err := ExchangePassword(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return authorizedClient(token, cfg.GrantConfig)
}

// NewPasswordClientFactory returns a ClientFactory that runs NewPasswordClient
// with cfg on every call.
func NewPasswordClientFactory(cfg PasswordGrantConfig, opts ...Option) ClientFactory {
	return func(ctx context.Context) (*httpclient.Client, error) {
		return NewPasswordClient(ctx, cfg, opts...)
	}
}

// PasswordTokenSource returns an oauth2.TokenSource that performs a new
// password exchange on every Token call.
func PasswordTokenSource(ctx context.Context, cfg PasswordGrantConfig, opts ...Option) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) {
		return ExchangePassword(ctx, cfg, opts...)
	})
}
