package oauth2client

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/egomobile/oauth2-client-go/httpclient"
)

// ClientFactory performs a fresh token exchange on every call and returns a
// new client carrying the obtained token. Nothing is cached between calls.
type ClientFactory func(ctx context.Context) (*httpclient.Client, error)

// clientConfig layers the configuration of an authorized client:
//
//  1. derived defaults: base URL, Authorization header, AcceptAllStatuses,
//     no request timeout
//  2. cfg.Headers, which may override Authorization
//  3. cfg.ClientConfig, which may override anything above
func clientConfig(token *oauth2.Token, cfg GrantConfig) httpclient.Config {
	derived := httpclient.Config{
		BaseURL:        cfg.BaseURL,
		Headers:        httpclient.BearerHeaders(token.AccessToken),
		ValidateStatus: httpclient.AcceptAllStatuses,
		Timeout:        httpclient.NoTimeout,
	}
	callerHeaders := httpclient.Config{Headers: cfg.Headers}

	var extra httpclient.Config
	if cfg.ClientConfig != nil {
		extra = *cfg.ClientConfig
	}

	return httpclient.Merge(derived, callerHeaders, extra)
}

// authorizedClient builds the client returned by the grant flows.
func authorizedClient(token *oauth2.Token, cfg GrantConfig) (*httpclient.Client, error) {
	client, err := httpclient.New(clientConfig(token, cfg))
	if err != nil {
		return nil, fmt.Errorf("oauth2client: build client: %w", err)
	}
	return client, nil
}

// tokenSourceFunc adapts a function to oauth2.TokenSource.
type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) {
	return f()
}
