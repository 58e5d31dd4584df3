package grpcclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/egomobile/oauth2-client-go/oauth2client"
)

// Builder provides a fluent interface for constructing gRPC client connections
// that authenticate with an OAuth2 bearer token, with TLS/mTLS support.
type Builder struct {
	address string

	// OAuth2 configuration; at most one of these is set
	clientCredentials *oauth2client.GrantConfig
	password          *oauth2client.PasswordGrantConfig
	tokenSource       oauth2.TokenSource
	oauth2Opts        []oauth2client.Option

	// TLS configuration
	tlsEnabled    bool
	tlsCAFile     string
	tlsCertFile   string
	tlsKeyFile    string
	tlsServerName string

	// Additional dial options
	dialOpts []grpc.DialOption
}

// NewBuilder creates a new gRPC client builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithAddress sets the server address (e.g., "server.example.com:9090").
func (b *Builder) WithAddress(address string) *Builder {
	b.address = address
	return b
}

// WithClientCredentials authenticates the connection with a token obtained
// via the client_credentials grant. Build performs exactly one exchange and
// the connection sends that token on every RPC.
//
// Only the token request fields of cfg are used; BaseURL, Headers and
// ClientConfig apply to HTTP clients only.
func (b *Builder) WithClientCredentials(cfg oauth2client.GrantConfig, opts ...oauth2client.Option) *Builder {
	b.resetOAuth2()
	b.clientCredentials = &cfg
	b.oauth2Opts = opts
	return b
}

// WithPassword authenticates the connection with a token obtained via the
// resource owner password credentials grant. See WithClientCredentials.
func (b *Builder) WithPassword(cfg oauth2client.PasswordGrantConfig, opts ...oauth2client.Option) *Builder {
	b.resetOAuth2()
	b.password = &cfg
	b.oauth2Opts = opts
	return b
}

// WithTokenSource authenticates the connection with tokens from source,
// which is asked for a token on every RPC. Use this, e.g. with
// oauth2client.ClientCredentialsTokenSource wrapped in oauth2.ReuseTokenSource,
// for long-lived connections.
func (b *Builder) WithTokenSource(source oauth2.TokenSource) *Builder {
	b.resetOAuth2()
	b.tokenSource = source
	return b
}

func (b *Builder) resetOAuth2() {
	b.clientCredentials = nil
	b.password = nil
	b.tokenSource = nil
	b.oauth2Opts = nil
}

// WithTLS enables TLS for the connection.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (optional, uses system roots if empty)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
//   - serverName: Expected server name for TLS verification (optional, overrides SNI)
func (b *Builder) WithTLS(caFile, certFile, keyFile, serverName string) *Builder {
	b.tlsEnabled = true
	b.tlsCAFile = caFile
	b.tlsCertFile = certFile
	b.tlsKeyFile = keyFile
	b.tlsServerName = serverName
	return b
}

// WithDialOptions adds custom gRPC dial options.
// These options are applied after OAuth2 and TLS options.
func (b *Builder) WithDialOptions(opts ...grpc.DialOption) *Builder {
	b.dialOpts = append(b.dialOpts, opts...)
	return b
}

// Build constructs the gRPC client connection with the configured options.
//
// With WithClientCredentials or WithPassword, Build runs the token exchange
// using ctx and fails with the oauth2client error if it does not succeed.
//
// Returns:
//   - *grpc.ClientConn: gRPC connection (connected lazily by grpc.NewClient)
//   - error: Error if configuration, token exchange or connection setup fails
func (b *Builder) Build(ctx context.Context) (*grpc.ClientConn, error) {
	if b.address == "" {
		return nil, errors.New("grpcclient: server address is required")
	}

	var opts []grpc.DialOption

	token, err := b.resolveToken(ctx)
	if err != nil {
		return nil, err
	}
	if token != nil {
		opts = append(opts,
			grpc.WithUnaryInterceptor(unaryInterceptor(token)),
			grpc.WithStreamInterceptor(streamInterceptor(token)),
		)
	}

	// Add TLS credentials if enabled
	if b.tlsEnabled {
		tlsConfig, err := b.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("grpcclient: TLS config failed: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		// Default to TLS with system roots to avoid accidental plaintext connections.
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})))
	}

	// Add custom dial options
	opts = append(opts, b.dialOpts...)

	conn, err := grpc.NewClient(b.address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: dial failed: %w", err)
	}

	return conn, nil
}

// resolveToken returns the token attached to RPCs, or nil without OAuth2.
func (b *Builder) resolveToken(ctx context.Context) (tokenFunc, error) {
	var (
		token *oauth2.Token
		err   error
	)

	switch {
	case b.clientCredentials != nil:
		token, err = oauth2client.ExchangeClientCredentials(ctx, *b.clientCredentials, b.oauth2Opts...)
	case b.password != nil:
		token, err = oauth2client.ExchangePassword(ctx, *b.password, b.oauth2Opts...)
	case b.tokenSource != nil:
		return sourceToken(b.tokenSource), nil
	default:
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("grpcclient: token exchange failed: %w", err)
	}
	return staticToken(token), nil
}

// buildTLSConfig constructs the TLS configuration for the gRPC connection.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if b.tlsCAFile != "" {
		caCert, err := os.ReadFile(b.tlsCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	// mTLS needs both halves of the key pair
	if b.tlsCertFile != "" && b.tlsKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(b.tlsCertFile, b.tlsKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	} else if b.tlsCertFile != "" || b.tlsKeyFile != "" {
		return nil, errors.New("both TLS cert and key files must be provided for mTLS")
	}

	if b.tlsServerName != "" {
		tlsConfig.ServerName = b.tlsServerName
	}

	return tlsConfig, nil
}
