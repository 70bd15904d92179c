package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
)

func TestTraceServerInterceptor_PropagatesRequestID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(),
		metadata.Pairs(constants.HeaderXRequestId, "req-42"))

	var seen string
	_, err := TraceServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			seen = RequestIDFromContext(ctx)
			return nil, nil
		})

	require.NoError(t, err)
	assert.Equal(t, "req-42", seen)
}

func TestTraceServerInterceptor_GeneratesRequestID(t *testing.T) {
	var seen string
	_, err := TraceServerInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			seen = RequestIDFromContext(ctx)
			return nil, nil
		})

	require.NoError(t, err)
	assert.Len(t, seen, 36)
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Equal(t, "abc", RequestIDFromContext(WithRequestID(context.Background(), "abc")))

	out := metadata.AppendToOutgoingContext(context.Background(), constants.HeaderXRequestId, "out-1")
	assert.Equal(t, "out-1", RequestIDFromContext(out))
}
