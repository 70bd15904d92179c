package interceptors

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// TraceServerInterceptor attaches the x-request-id metadata to the call
// context and logs every unary call.
func TraceServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		ctx, requestID := ensureRequestID(ctx)
		start := time.Now()

		resp, err := handler(ctx, req)

		slog.InfoContext(ctx, "grpc call",
			"method", info.FullMethod,
			"request_id", requestID,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}

// TraceStreamInterceptor is the streaming counterpart of
// TraceServerInterceptor, used by health Watch.
func TraceStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, requestID := ensureRequestID(ss.Context())
		slog.InfoContext(ctx, "grpc stream opened", "method", info.FullMethod, "request_id", requestID)

		err := handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})

		slog.InfoContext(ctx, "grpc stream closed",
			"method", info.FullMethod,
			"request_id", requestID,
			"code", status.Code(err).String(),
		)
		return err
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }
