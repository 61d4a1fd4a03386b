package auth

import (
	"context"
	"errors"
)

type ctxKey int

const ctxCaller ctxKey = iota

func WithCaller(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxCaller, subject)
}

func Caller(ctx context.Context) (string, error) {
	v := ctx.Value(ctxCaller)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("caller not in context")
}
