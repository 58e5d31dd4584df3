package grpcclient

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// tokenFunc returns the token attached to an outgoing RPC.
type tokenFunc func(ctx context.Context) (*oauth2.Token, error)

// staticToken always returns the same token.
func staticToken(token *oauth2.Token) tokenFunc {
	return func(context.Context) (*oauth2.Token, error) {
		return token, nil
	}
}

// sourceToken asks source for a token on every RPC.
func sourceToken(source oauth2.TokenSource) tokenFunc {
	return func(context.Context) (*oauth2.Token, error) {
		return source.Token()
	}
}

// withAuthorization appends "authorization: Bearer <token>" to the outgoing metadata of ctx.
func withAuthorization(ctx context.Context, token tokenFunc) (context.Context, error) {
	tok, err := token(ctx)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: failed to get token: %w", err)
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok.AccessToken), nil
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that adds
// the bearer token of source to request metadata.
//
// source is asked for a token on every call; wrap it with
// oauth2.ReuseTokenSource to cache tokens. If the token cannot be obtained,
// the RPC is aborted with an error.
//
// Usage:
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(grpcclient.UnaryClientInterceptor(source)),
//	)
func UnaryClientInterceptor(source oauth2.TokenSource) grpc.UnaryClientInterceptor {
	return unaryInterceptor(sourceToken(source))
}

// StreamClientInterceptor returns a gRPC stream client interceptor that adds
// the bearer token of source to request metadata. See UnaryClientInterceptor.
func StreamClientInterceptor(source oauth2.TokenSource) grpc.StreamClientInterceptor {
	return streamInterceptor(sourceToken(source))
}

func unaryInterceptor(token tokenFunc) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		ctx, err := withAuthorization(ctx, token)
		if err != nil {
			return err
		}

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func streamInterceptor(token tokenFunc) grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		ctx, err := withAuthorization(ctx, token)
		if err != nil {
			return nil, err
		}

		return streamer(ctx, desc, cc, method, opts...)
	}
}
