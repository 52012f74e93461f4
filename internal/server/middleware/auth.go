// Package middleware provides HTTP middleware for authentication and
// request logging.
package middleware

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// operatorKeyContextKey is the context key for the masked operator key.
const operatorKeyContextKey contextKey = "operator_key_masked"

// Auth returns a middleware that extracts the operator API key from the
// Authorization or X-API-Key header and records it masked. The console runs
// behind the office gateway which performs the actual verification, so an
// absent key is allowed through.
func Auth(logger log.Logger) middleware.Middleware {
	helper := log.NewHelper(logger)
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			var apiKey string

			if tr, ok := transport.FromServerContext(ctx); ok {
				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()

					authHeader := httpReq.Header.Get("Authorization")
					if authHeader != "" {
						apiKey = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
					}
					if apiKey == "" {
						apiKey = httpReq.Header.Get("X-API-Key")
					}
				}
			}

			if apiKey != "" {
				masked := maskAPIKey(apiKey)
				helper.WithContext(ctx).Debugw("authenticated request",
					"operator_key", masked)
				ctx = context.WithValue(ctx, operatorKeyContextKey, masked)
			}

			return handler(ctx, req)
		}
	}
}

// maskAPIKey shows only the first 8 characters of a key.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "***"
}
