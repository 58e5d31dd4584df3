package grpcclient

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/egomobile/oauth2-client-go/oauth2client"
	"github.com/egomobile/oauth2-client-go/testutil"
)

// metadataRecorder captures the authorization metadata of every incoming RPC.
type metadataRecorder struct {
	mu    sync.Mutex
	auths []string
}

func (r *metadataRecorder) record(ctx context.Context) {
	md, _ := metadata.FromIncomingContext(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auths = append(r.auths, strings.Join(md.Get("authorization"), ","))
}

func (r *metadataRecorder) authorizations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.auths...)
}

func (r *metadataRecorder) unary(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	r.record(ctx)
	return handler(ctx, req)
}

func (r *metadataRecorder) stream(srv interface{}, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	r.record(ss.Context())
	return handler(srv, ss)
}

// startHealthServer serves the gRPC health service over an in-memory listener.
func startHealthServer(t *testing.T) ([]grpc.DialOption, *metadataRecorder) {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	recorder := &metadataRecorder{}

	server := grpc.NewServer(
		grpc.UnaryInterceptor(recorder.unary),
		grpc.StreamInterceptor(recorder.stream),
	)
	healthpb.RegisterHealthServer(server, health.NewServer())

	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	dialOpts := []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	return dialOpts, recorder
}

func testGrantConfig(server *testutil.MockOAuth2Server) oauth2client.GrantConfig {
	return oauth2client.GrantConfig{
		ClientID:     "client-id",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/token",
		Scope:        "openid",
	}
}

type failingTokenSource struct{}

func (failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, errors.New("token endpoint unavailable")
}

func TestNewBuilder(t *testing.T) {
	builder := NewBuilder()

	if builder == nil {
		t.Fatal("builder should not be nil")
	}
}

func TestBuilder_WithAddress(t *testing.T) {
	builder := NewBuilder().WithAddress("localhost:9090")

	if builder.address != "localhost:9090" {
		t.Errorf("expected address 'localhost:9090', got '%s'", builder.address)
	}
}

func TestBuilder_OAuth2OptionsReplaceEachOther(t *testing.T) {
	builder := NewBuilder().
		WithClientCredentials(oauth2client.GrantConfig{ClientID: "a"}).
		WithPassword(oauth2client.PasswordGrantConfig{Username: "bill"})

	if builder.clientCredentials != nil {
		t.Error("client credentials should be replaced by password")
	}
	if builder.password == nil || builder.password.Username != "bill" {
		t.Errorf("unexpected password config: %+v", builder.password)
	}

	builder.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"}))

	if builder.password != nil || builder.tokenSource == nil {
		t.Error("token source should replace the password grant")
	}
}

func TestBuilder_WithTLS(t *testing.T) {
	builder := NewBuilder().
		WithTLS("/path/to/ca.crt", "/path/to/cert.crt", "/path/to/key.pem", "server.example.com")

	if !builder.tlsEnabled {
		t.Error("TLS should be enabled")
	}

	if builder.tlsCAFile != "/path/to/ca.crt" || builder.tlsCertFile != "/path/to/cert.crt" || builder.tlsKeyFile != "/path/to/key.pem" {
		t.Errorf("unexpected TLS files: %s %s %s", builder.tlsCAFile, builder.tlsCertFile, builder.tlsKeyFile)
	}

	if builder.tlsServerName != "server.example.com" {
		t.Errorf("unexpected server name: %s", builder.tlsServerName)
	}
}

func TestBuilder_WithDialOptions(t *testing.T) {
	builder := NewBuilder().WithDialOptions(grpc.WithDisableRetry(), grpc.WithDisableHealthCheck())

	if len(builder.dialOpts) != 2 {
		t.Errorf("expected 2 dial options, got %d", len(builder.dialOpts))
	}
}

func TestBuilder_Build_NoAddress(t *testing.T) {
	_, err := NewBuilder().Build(context.Background())
	if err == nil {
		t.Fatal("expected error when building without address")
	}

	if err.Error() != "grpcclient: server address is required" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuilder_Build_WithAddress(t *testing.T) {
	conn, err := NewBuilder().WithAddress("localhost:9090").Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer conn.Close()
}

func TestBuilder_Build_WithClientCredentials(t *testing.T) {
	server := testutil.NewMockOAuth2Server(t, testutil.SequentialTokenResponses("grpc-token-1", "grpc-token-2"))
	defer server.Close()

	dialOpts, recorder := startHealthServer(t)

	conn, err := NewBuilder().
		WithAddress("passthrough:///bufnet").
		WithClientCredentials(testGrantConfig(server)).
		WithDialOptions(dialOpts...).
		Build(server.Ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("unexpected health status: %v", resp.GetStatus())
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Watch(watchCtx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("Recv failed: %v", err)
	}

	auths := recorder.authorizations()
	if len(auths) != 3 {
		t.Fatalf("expected 3 recorded RPCs, got %v", auths)
	}
	for i, auth := range auths {
		if auth != "Bearer grpc-token-1" {
			t.Errorf("RPC %d: unexpected authorization %q", i, auth)
		}
	}

	// Build exchanges exactly once; the token is never refreshed
	if server.RequestCount() != 1 {
		t.Errorf("expected one token request, got %d", server.RequestCount())
	}

	if got := server.Forms()[0].Get("grant_type"); got != "client_credentials" {
		t.Errorf("unexpected grant_type: %s", got)
	}
}

func TestBuilder_Build_WithPassword(t *testing.T) {
	server := testutil.NewMockOAuth2Server(t, testutil.TokenResponse("user-token", "bearer"))
	defer server.Close()

	dialOpts, recorder := startHealthServer(t)

	conn, err := NewBuilder().
		WithAddress("passthrough:///bufnet").
		WithPassword(oauth2client.PasswordGrantConfig{
			GrantConfig: testGrantConfig(server),
			Username:    "bill",
			Password:    "G@tes1234!",
		}).
		WithDialOptions(dialOpts...).
		Build(server.Ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer conn.Close()

	if _, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{}); err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if auths := recorder.authorizations(); len(auths) != 1 || auths[0] != "Bearer user-token" {
		t.Errorf("unexpected authorizations: %v", auths)
	}

	form := server.Forms()[0]
	if form.Get("grant_type") != "password" || form.Get("username") != "bill" {
		t.Errorf("unexpected token request: %v", form)
	}
}

func TestBuilder_Build_TokenExchangeErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  testutil.RoundTripFunc
		mutate   func(*oauth2client.GrantConfig)
		sentinel error
		requests int
	}{
		{
			name:     "invalid configuration",
			mutate:   func(c *oauth2client.GrantConfig) { c.ClientSecret = "" },
			sentinel: oauth2client.ErrConfiguration,
		},
		{
			name:     "unsupported token type",
			handler:  testutil.TokenResponse("abc", "mac"),
			sentinel: oauth2client.ErrUnsupportedTokenType,
			requests: 1,
		},
		{
			name:     "not a token response",
			handler:  testutil.StaticJSONResponse(`["abc"]`),
			sentinel: oauth2client.ErrResponseShape,
			requests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewMockOAuth2Server(t, tt.handler)
			defer server.Close()

			cfg := testGrantConfig(server)
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			conn, err := NewBuilder().
				WithAddress("localhost:9090").
				WithClientCredentials(cfg).
				Build(server.Ctx)
			if conn != nil {
				conn.Close()
				t.Fatal("expected no connection")
			}

			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}

			if !strings.HasPrefix(err.Error(), "grpcclient: token exchange failed") {
				t.Errorf("unexpected error: %v", err)
			}

			if server.RequestCount() != tt.requests {
				t.Errorf("expected %d token requests, got %d", tt.requests, server.RequestCount())
			}
		})
	}
}

func TestBuilder_Build_WithTokenSource_PerRPC(t *testing.T) {
	server := testutil.NewMockOAuth2Server(t, testutil.SequentialTokenResponses("token-1", "token-2"))
	defer server.Close()

	dialOpts, recorder := startHealthServer(t)

	source := oauth2client.ClientCredentialsTokenSource(server.Ctx, testGrantConfig(server))

	conn, err := NewBuilder().
		WithAddress("passthrough:///bufnet").
		WithTokenSource(source).
		WithDialOptions(dialOpts...).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer conn.Close()

	if server.RequestCount() != 0 {
		t.Fatalf("token source must not be called by Build, got %d requests", server.RequestCount())
	}

	client := healthpb.NewHealthClient(conn)
	for i := 0; i < 2; i++ {
		if _, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{}); err != nil {
			t.Fatalf("Check failed: %v", err)
		}
	}

	auths := recorder.authorizations()
	if len(auths) != 2 || auths[0] != "Bearer token-1" || auths[1] != "Bearer token-2" {
		t.Errorf("unexpected authorizations: %v", auths)
	}
}

func TestBuilder_Build_WithTokenSource_ErrorAbortsRPC(t *testing.T) {
	dialOpts, recorder := startHealthServer(t)

	conn, err := NewBuilder().
		WithAddress("passthrough:///bufnet").
		WithTokenSource(failingTokenSource{}).
		WithDialOptions(dialOpts...).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer conn.Close()

	_, err = healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err == nil {
		t.Fatal("expected RPC to fail")
	}

	if !strings.Contains(err.Error(), "token endpoint unavailable") {
		t.Errorf("unexpected error: %v", err)
	}

	if len(recorder.authorizations()) != 0 {
		t.Error("RPC must not reach the server")
	}
}

func TestUnaryClientInterceptor(t *testing.T) {
	interceptor := UnaryClientInterceptor(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "static-token"}))

	var got []string
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		got = md.Get("authorization")
		return nil
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "42")
	if err := interceptor(ctx, "/svc/Method", nil, nil, nil, invoker); err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}

	if len(got) != 1 || got[0] != "Bearer static-token" {
		t.Errorf("unexpected authorization metadata: %v", got)
	}
}

func TestStreamClientInterceptor_Error(t *testing.T) {
	interceptor := StreamClientInterceptor(failingTokenSource{})

	called := false
	streamer := func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		called = true
		return nil, nil
	}

	_, err := interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/svc/Stream", streamer)
	if err == nil {
		t.Fatal("expected error")
	}

	if called {
		t.Error("streamer must not be called when no token is available")
	}
}

func TestBuilder_BuildTLSConfig_InvalidCAFile(t *testing.T) {
	builder := NewBuilder().WithTLS("/nonexistent/ca.crt", "", "", "")

	_, err := builder.buildTLSConfig()
	if err == nil {
		t.Error("expected error for invalid CA file")
	}
}

func TestBuilder_BuildTLSConfig_InvalidCertPair(t *testing.T) {
	builder := NewBuilder().WithTLS("", "/nonexistent/cert.crt", "/nonexistent/key.pem", "")

	_, err := builder.buildTLSConfig()
	if err == nil {
		t.Error("expected error for invalid cert pair")
	}
}

func TestBuilder_BuildTLSConfig_IncompleteKeyPair(t *testing.T) {
	for _, builder := range []*Builder{
		NewBuilder().WithTLS("", "/path/to/cert.crt", "", ""),
		NewBuilder().WithTLS("", "", "/path/to/key.pem", ""),
	} {
		if _, err := builder.buildTLSConfig(); err == nil {
			t.Error("expected error for incomplete key pair")
		}
	}
}

func TestBuilder_BuildTLSConfig_InvalidCAContent(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.crt")

	if err := os.WriteFile(caFile, []byte("not a valid certificate"), 0o600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}

	_, err := NewBuilder().WithTLS(caFile, "", "", "").buildTLSConfig()
	if err == nil {
		t.Error("expected error for invalid CA content")
	}
}

func TestBuilder_BuildTLSConfig_WithClientCertificate(t *testing.T) {
	tmpDir := t.TempDir()
	caFile := filepath.Join(tmpDir, "ca.crt")
	certFile := filepath.Join(tmpDir, "client.crt")
	keyFile := filepath.Join(tmpDir, "client.key")

	testutil.WriteTestCACert(t, caFile)
	testutil.WriteTestCertAndKey(t, certFile, keyFile)

	tlsConfig, err := NewBuilder().
		WithTLS(caFile, certFile, keyFile, "server.example.com").
		buildTLSConfig()
	if err != nil {
		t.Fatalf("buildTLSConfig failed: %v", err)
	}

	if tlsConfig.RootCAs == nil {
		t.Fatal("RootCAs should be set")
	}

	if len(tlsConfig.Certificates) == 0 {
		t.Fatal("expected client certificate to be loaded")
	}

	if tlsConfig.ServerName != "server.example.com" {
		t.Fatalf("expected ServerName to be set, got %q", tlsConfig.ServerName)
	}

	// MinVersion should be TLS 1.2 (0x0303)
	if tlsConfig.MinVersion != 0x0303 {
		t.Errorf("unexpected MinVersion %d", tlsConfig.MinVersion)
	}
}

func TestBuilder_Build_InvalidTLS(t *testing.T) {
	_, err := NewBuilder().
		WithAddress("localhost:9090").
		WithTLS("/nonexistent/ca.crt", "", "", "").
		Build(context.Background())
	if err == nil || !strings.Contains(err.Error(), "grpcclient: TLS config failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Benchmark tests
func BenchmarkBuilder_Build_WithClientCredentials(b *testing.B) {
	server := testutil.NewMockOAuth2Server(b, nil)
	defer server.Close()

	cfg := oauth2client.GrantConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/token",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		conn, err := NewBuilder().
			WithAddress("localhost:9090").
			WithClientCredentials(cfg).
			Build(server.Ctx)
		if err != nil {
			b.Fatalf("Build failed: %v", err)
		}
		conn.Close()
	}
}
