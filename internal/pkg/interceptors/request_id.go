package interceptors

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyRequestID, id)
}

// RequestIDFromContext returns the request id stored in ctx, falling back to
// incoming gRPC metadata. It returns "" when there is none.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && id != "" {
		return id
	}
	return GetMetadataValue(ctx, constants.HeaderXRequestId)
}

// GetMetadataValue reads key from incoming, then outgoing gRPC metadata.
func GetMetadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}

// ensureRequestID returns ctx carrying a request id, generating one when the
// caller sent none.
func ensureRequestID(ctx context.Context) (context.Context, string) {
	id := RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	return WithRequestID(ctx, id), id
}
