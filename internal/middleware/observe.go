package middleware

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dentalflow/internal/metrics"
)

// Observe logs every call and records it in m. It sits first in the chain so
// rejected calls are counted too.
func Observe(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		elapsed := time.Since(start)
		code := status.Code(err)
		m.ObserveRPC(info.FullMethod, code.String(), elapsed)

		entry := log.WithFields(log.Fields{
			"method":   info.FullMethod,
			"code":     code.String(),
			"duration": elapsed.String(),
		})
		switch code {
		case codes.OK:
			entry.Debug("rpc")
		case codes.Internal, codes.Unknown:
			entry.WithError(err).Error("rpc failed")
		default:
			entry.Info("rpc rejected")
		}
		return resp, err
	}
}
