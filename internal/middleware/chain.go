package middleware

import (
	"context"

	"google.golang.org/grpc"
)

// Chain composes interceptors outermost first, the way
// grpc.ChainUnaryInterceptor does, for callers outside a grpc.Server.
func Chain(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, final grpc.UnaryHandler) (any, error) {
		next := final
		for i := len(interceptors) - 1; i >= 0; i-- {
			ic, inner := interceptors[i], next
			next = func(ctx context.Context, req any) (any, error) {
				return ic(ctx, req, info, inner)
			}
		}
		return next(ctx, req)
	}
}
