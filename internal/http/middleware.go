package http

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const clientIPContextKey contextKey = "client_ip"

// ClientIPConfig controls where the client address is read from.
type ClientIPConfig struct {
	// TrustProxyHeaders honours X-Forwarded-For and X-Real-IP. Enable only behind a proxy
	// that overwrites them.
	TrustProxyHeaders bool
}

// ExtractClientIP returns the client address of r. With trustProxy set the first
// X-Forwarded-For entry wins, then X-Real-IP; otherwise only RemoteAddr is used.
func ExtractClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIPFromContext extracts the client IP from the request context.
// Returns "" outside handlers wrapped by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// WithClientIP returns a context carrying ip.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey, ip)
}

// ClientIPMiddleware stores the client IP in the request context. API key validation
// records it as the key's last-used address.
func ClientIPMiddleware(cfg ClientIPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithClientIP(r.Context(), ExtractClientIP(r, cfg.TrustProxyHeaders))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
