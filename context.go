package authclient

import (
	"context"

	"github.com/MrEthical07/authclient/middleware"
	"github.com/google/uuid"
)

// WithRequestID attaches a correlation id to ctx. Every identity service call made with
// ctx carries it in the X-Request-ID header and audit events record it. Without one, each
// operation generates its own.
func WithRequestID(ctx context.Context, id string) context.Context {
	return middleware.WithRequestID(ctx, id)
}

func requestIDFromContext(ctx context.Context) (string, bool) {
	return middleware.RequestIDFromContext(ctx)
}

// ensureRequestID returns ctx carrying a request id, generating one when absent, so the
// outgoing header and the audit record agree.
func ensureRequestID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := middleware.RequestIDFromContext(ctx); ok {
		return ctx
	}
	return middleware.WithRequestID(ctx, uuid.NewString())
}
