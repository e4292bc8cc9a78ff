package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlore/playlore-server/internal/ratelimit"
)

// newPerMinuteLimiter allows perMinute requests per client per minute, all of which may
// arrive at once.
func newPerMinuteLimiter(perMinute int) *ratelimit.KeyedRateLimiter {
	return ratelimit.New(float64(perMinute)/60, perMinute)
}

// syncRateLimited is huma middleware bounding sync triggers per client IP. It answers 429
// once a client's bucket is empty.
func (s *Server) syncRateLimited(ctx huma.Context, next func(huma.Context)) {
	if s.syncLimiter == nil {
		next(ctx)
		return
	}

	ip := clientIP(ctx)
	if s.syncLimiter.Allow(ip) {
		next(ctx)
		return
	}
	s.logger.Warn("sync rate limit exceeded", "ip", ip, "path", ctx.URL().Path)
	_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many sync requests, try again later")
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := ctx.Header("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(ctx.RemoteAddr())
	if err != nil {
		return ctx.RemoteAddr()
	}
	return host
}
