package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"rack-rpc/message"
)

// RateLimitMiddleware creates a token-bucket rate limiting middleware.
// A burst of lease uploads from many agents should not be able to starve
// the command handlers behind it.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.RPCMessage) *message.RPCMessage {
			if !limiter.Allow() {
				return &message.RPCMessage{
					Error: "rate limit exceeded",
				}
			}
			return next(ctx, req)
		}
	}
}
