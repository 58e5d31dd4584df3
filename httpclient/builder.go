package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// DefaultTimeout is the request timeout of built clients unless configured otherwise.
const DefaultTimeout = 30 * time.Second

// NoTimeout disables the request timeout of a built client.
const NoTimeout time.Duration = -1

// Builder provides a fluent interface for constructing HTTP clients
// with a base URL, default headers, a status policy and TLS/mTLS support.
//
// Every With* call adds a configuration layer on top of the previous ones,
// following the precedence rules of Merge.
type Builder struct {
	config Config
}

// NewBuilder creates a new HTTP client builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig layers a complete configuration over the current one.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = Merge(b.config, cfg)
	return b
}

// WithBaseURL sets the absolute URL relative request references resolve against.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	return b.WithConfig(Config{BaseURL: baseURL})
}

// WithHeader sets a single default header.
func (b *Builder) WithHeader(key, value string) *Builder {
	return b.WithConfig(Config{Headers: map[string]string{key: value}})
}

// WithHeaders sets several default headers. Existing headers with the same
// canonical key are overridden.
func (b *Builder) WithHeaders(headers map[string]string) *Builder {
	return b.WithConfig(Config{Headers: headers})
}

// WithBearerToken sets the default Authorization header to "Bearer <token>".
func (b *Builder) WithBearerToken(accessToken string) *Builder {
	return b.WithConfig(Config{Headers: BearerHeaders(accessToken)})
}

// WithStatusPolicy sets the policy Client.Do applies to response status codes.
// Default is AcceptAllStatuses.
func (b *Builder) WithStatusPolicy(policy StatusPolicy) *Builder {
	return b.WithConfig(Config{ValidateStatus: policy})
}

// WithTLS enables TLS for the connection.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (optional, uses system roots if empty)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
func (b *Builder) WithTLS(caFile, certFile, keyFile string) *Builder {
	return b.WithConfig(Config{
		TLSCAFile:   caFile,
		TLSCertFile: certFile,
		TLSKeyFile:  keyFile,
	})
}

// WithInsecureSkipVerify disables TLS certificate verification (NOT RECOMMENDED for production).
// This should only be used for testing or development purposes.
func (b *Builder) WithInsecureSkipVerify() *Builder {
	return b.WithConfig(Config{TLSInsecureSkipVerify: true})
}

// WithTimeout sets the request timeout for the HTTP client.
// Default is 30 seconds if not specified.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	return b.WithConfig(Config{Timeout: timeout})
}

// WithBaseTransport sets a custom base transport.
// This is useful for adding custom middleware or using a custom connection pool.
func (b *Builder) WithBaseTransport(transport http.RoundTripper) *Builder {
	return b.WithConfig(Config{Transport: transport})
}

// WithoutRedirects disables automatic redirect following.
// By default, the client follows up to 10 redirects.
func (b *Builder) WithoutRedirects() *Builder {
	follow := false
	return b.WithConfig(Config{FollowRedirects: &follow})
}

// Build constructs the HTTP client with the configured options.
//
// Returns:
//   - *Client: Configured HTTP client
//   - error: Error if configuration is invalid
func (b *Builder) Build() (*Client, error) {
	return New(b.config)
}

// New constructs a client from a single configuration.
func New(cfg Config) (*Client, error) {
	var baseURL *url.URL
	if cfg.BaseURL != "" {
		u, err := parseAbsoluteURL(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("httpclient: invalid base URL: %w", err)
		}
		baseURL = u
	}

	transport, err := buildBaseTransport(cfg)
	if err != nil {
		return nil, err
	}

	header := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}

	timeout := cfg.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultTimeout
	case timeout < 0:
		timeout = 0
	}

	httpClient := &http.Client{
		Transport: NewHeaderTransport(transport, baseURL, header),
		Timeout:   timeout,
	}

	// Configure redirect policy
	if cfg.FollowRedirects != nil && !*cfg.FollowRedirects {
		httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	policy := cfg.ValidateStatus
	if policy == nil {
		policy = AcceptAllStatuses
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		header:         header,
		validateStatus: policy,
	}, nil
}

// buildBaseTransport picks the transport the header transport delegates to.
func buildBaseTransport(cfg Config) (http.RoundTripper, error) {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	httpTransport, ok := transport.(*http.Transport)
	if !ok {
		// Custom round trippers (e.g. test stubs) are used as they are
		return transport, nil
	}

	if cfg.Transport != nil && !cfg.tlsRequested() {
		return transport, nil
	}

	httpTransport = httpTransport.Clone()
	if cfg.tlsRequested() {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("httpclient: TLS config failed: %w", err)
		}
		httpTransport.TLSClientConfig = tlsConfig
	} else {
		// Set secure TLS defaults even when TLS is not explicitly configured
		httpTransport.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return httpTransport, nil
}

// buildTLSConfig constructs the TLS configuration for the HTTP client.
func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLSInsecureSkipVerify, // #nosec G402
	}

	// Load CA certificate for server verification
	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	// Load client certificate for mTLS (if both cert and key are provided)
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	} else if cfg.TLSCertFile != "" || cfg.TLSKeyFile != "" {
		return nil, errors.New("both TLS cert and key files must be provided for mTLS")
	}

	return tlsConfig, nil
}

// parseAbsoluteURL parses raw and requires an http or https URL with a host.
func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%q has no host", raw)
	}
	return u, nil
}
