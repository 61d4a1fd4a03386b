package routing

import (
	"context"
)

// clientIPKey is an unexported context key for passing the gateway client IP
// down to the audit hook.
//
// The HTTP gateway resolves the client IP (Gin) and attaches it with
// WithClientIP. Lambda invocations have none.

type clientIPKey struct{}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	v := ctx.Value(clientIPKey{})
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
