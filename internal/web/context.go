package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/nexus/internal/history"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for the
// ingestion history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // already rewritten by TrustedRealIP
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ctx = history.ContextWithIPAddress(ctx, ip)
	ctx = history.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
