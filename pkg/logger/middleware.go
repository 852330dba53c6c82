package logger

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// UnaryServerInterceptor logs every unary call with its status and latency.
// Health probes are logged at debug level to keep them out of production logs.
func UnaryServerInterceptor(log interfaces.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(WithContext(ctx, log), req)

		fields := []interfaces.Field{
			interfaces.String("method", info.FullMethod),
			interfaces.Int64("duration_ms", time.Since(start).Milliseconds()),
			interfaces.String("status", status.Code(err).String()),
		}

		switch {
		case err != nil:
			log.Error("gRPC request failed", append(fields, interfaces.Error(err))...)
		case isHealthMethod(info.FullMethod):
			log.Debug("gRPC request completed", fields...)
		default:
			log.Info("gRPC request completed", fields...)
		}
		return resp, err
	}
}

func isHealthMethod(method string) bool {
	return method == "/grpc.health.v1.Health/Check" || method == "/grpc.health.v1.Health/Watch"
}
