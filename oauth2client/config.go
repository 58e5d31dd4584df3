package oauth2client

import (
	"net/url"
	"strings"

	"github.com/egomobile/oauth2-client-go/httpclient"
)

// GrantConfig configures a token exchange and the client built from it.
type GrantConfig struct {
	// ClientID is the OAuth2 client identifier. Required.
	ClientID string

	// ClientSecret is the OAuth2 client secret. Required.
	ClientSecret string

	// TokenURL is the token endpoint (e.g., "https://auth.example.com/oauth/v2/token"). Required.
	TokenURL string

	// BaseURL is the base of subsequent API calls made with the returned client. Optional.
	BaseURL string

	// Scope is a space-separated list of OAuth2 scopes (e.g., "openid profile email"). Optional.
	Scope string

	// Headers are extra default headers of the returned client. They are
	// applied after the Authorization header and may override it.
	Headers map[string]string

	// ClientConfig is applied last over the whole client configuration and
	// may override the base URL, headers or the status policy.
	ClientConfig *httpclient.Config
}

// PasswordGrantConfig configures a resource owner password credentials exchange.
type PasswordGrantConfig struct {
	GrantConfig

	// Username of the resource owner. Required.
	Username string

	// Password of the resource owner. Required.
	Password string
}

// fieldCheck validates one configuration field.
type fieldCheck func() error

// validate runs checks in order and returns the first failure.
func validate(checks ...fieldCheck) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func requireString(field, value string) fieldCheck {
	return func() error {
		if value == "" {
			return &ConfigurationError{Field: field, Reason: "must be a non-empty string"}
		}
		return nil
	}
}

func requireURL(field, value string) fieldCheck {
	return func() error {
		if value == "" {
			return &ConfigurationError{Field: field, Reason: "must be a non-empty string"}
		}
		return checkURL(field, value)
	}
}

func optionalURL(field, value string) fieldCheck {
	return func() error {
		if value == "" {
			return nil
		}
		return checkURL(field, value)
	}
}

func checkURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return &ConfigurationError{Field: field, Reason: "must be a valid URL: " + err.Error()}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Field: field, Reason: "must be an absolute http(s) URL"}
	}
	return nil
}

// optionalScope checks every scope token against the RFC 6749 section 3.3 charset.
func optionalScope(field, value string) fieldCheck {
	return func() error {
		for _, token := range strings.Fields(value) {
			for _, r := range token {
				if r < 0x21 || r > 0x7e || r == '"' || r == '\\' {
					return &ConfigurationError{Field: field, Reason: "contains an invalid scope token: " + token}
				}
			}
		}
		return nil
	}
}

// validateClientCredentials checks a client credentials configuration in
// the order baseURL, clientId, clientSecret, scope, tokenURL.
func validateClientCredentials(cfg GrantConfig) error {
	return validate(
		optionalURL("baseURL", cfg.BaseURL),
		requireString("clientId", cfg.ClientID),
		requireString("clientSecret", cfg.ClientSecret),
		optionalScope("scope", cfg.Scope),
		requireURL("tokenURL", cfg.TokenURL),
	)
}

// validatePassword checks a password configuration in the order baseURL,
// clientId, clientSecret, password, scope, tokenURL, username.
func validatePassword(cfg PasswordGrantConfig) error {
	return validate(
		optionalURL("baseURL", cfg.BaseURL),
		requireString("clientId", cfg.ClientID),
		requireString("clientSecret", cfg.ClientSecret),
		requireString("password", cfg.Password),
		optionalScope("scope", cfg.Scope),
		requireURL("tokenURL", cfg.TokenURL),
		requireString("username", cfg.Username),
	)
}
