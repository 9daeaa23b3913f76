package grpcx

import (
	"context"

	"github.com/google/uuid"
	"github.com/litespace/availability/libs/httpx"
)

// RequestIDMetadataKey carries the request id over gRPC metadata.
const RequestIDMetadataKey = "x-request-id"

// Request ids share the httpx context key so HTTP and gRPC handlers read the
// same value.
func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return httpx.ContextWithRequestID(ctx, id)
}

func NewRequestID() string {
	return uuid.NewString()
}
