package middleware

import (
	"context"
	"strings"
	"time"

	pkglog "RatePilot/pkg/log"

	kratoserrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// slowRequestThreshold flags requests worth a separate warning. Batch sync
// requests legitimately run long, so this is generous.
const slowRequestThreshold = 10 * time.Second

// Logging returns a middleware that logs every HTTP request with method,
// path, status and duration. It generates a request ID when the client did
// not supply one and injects it into the context for downstream log lines.
func Logging(logger log.Logger) middleware.Middleware {
	helper := log.NewHelper(logger)
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				method    string
				path      string
				ip        string
				userAgent string
				requestID string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				method = tr.Operation()
				path = tr.Operation()

				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
					if httpReq.URL.RawQuery != "" {
						path = path + "?" + httpReq.URL.RawQuery
					}

					ip = extractClientIP(httpReq)
					userAgent = httpReq.Header.Get("User-Agent")

					requestID = httpReq.Header.Get("X-Request-ID")
					if requestID == "" {
						requestID = pkglog.GenerateRequestID()
					}
				}
			}

			ctx = pkglog.WithRequestContext(ctx, requestID, 0)

			reply, err := handler(ctx, req)

			duration := time.Since(startTime)

			status := 200
			if err != nil {
				status = int(kratoserrors.FromError(err).Code)
			}

			helper.WithContext(ctx).Infow("http request",
				"request_id", requestID,
				"method", method,
				"path", path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"ip", ip,
				"user_agent", userAgent,
			)

			if duration > slowRequestThreshold {
				helper.WithContext(ctx).Warnw("slow request",
					"request_id", requestID,
					"method", method,
					"path", path,
					"duration_ms", duration.Milliseconds(),
				)
			}

			return reply, err
		}
	}
}

// extractClientIP extracts the client IP from the request.
// Priority: X-Real-IP > X-Forwarded-For > RemoteAddr.
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	return req.RemoteAddr
}
