package auth

import (
	"context"
	"net"
	"net/http"
	"strings"

	"campusboard/pkg/logger"
	"campusboard/pkg/utils"
)

// SecConfig carries the perimeter settings the gateway middleware needs.
type SecConfig struct {
	AllowedOrigins []string
	IPWhitelist    []string
	RPS            float64
	Burst          int
}

type ctxKey int

const userKey ctxKey = 0

// UserFromContext returns the authenticated pseudonymous username, or ""
// when the request was anonymous.
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userKey).(string)
	return u
}

// WithUser returns a context carrying the given username. Exposed for
// handler tests.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GatewayMiddleware handles CORS, the optional IP whitelist, bearer token
// verification and per-identity rate limiting. Read-only feed endpoints
// work anonymously; everything else under /v1 requires a valid token.
func GatewayMiddleware(cfg SecConfig) func(http.Handler) http.Handler {
	// rate limiters keyed by username or remote ip
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// log request (redacts sensitive headers)
			logger.LogRequest(r)

			// cors preflight
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// ip whitelist
			if len(cfg.IPWhitelist) > 0 {
				ip := clientIP(r)
				logger.Debug("ip_check", "ip", ip)
				if !ipWhitelisted(ip, cfg.IPWhitelist) {
					utils.JSONError(w, http.StatusForbidden, "forbidden")
					logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", ip, "path", r.URL.Path)
					return
				}
			}

			// allow unauthenticated health checks for probes
			if exemptPath(r.URL.Path) && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			// A presented credential must verify even on public read
			// paths; anonymous mode is only for requests that carry no
			// credential at all. Serving a bad token anonymously would
			// hide key rotations and expiry from the client.
			hasCredential := strings.TrimSpace(r.Header.Get("Authorization")) != ""
			user, err := identify(r)
			if err != nil {
				if hasCredential || !anonymousAllowed(r) {
					utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
					logger.Warn("request_unauthorized", "path", r.URL.Path, "remote", r.RemoteAddr)
					return
				}
			}

			// rate limit per identity, falling back to remote ip
			rlKey := user
			if rlKey == "" {
				rlKey = clientIP(r)
			}
			if !limiters.Allow(rlKey) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("rate_limited", "path", r.URL.Path, "key", rlKey)
				return
			}

			if user != "" {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			logger.Debug("request_allowed", "method", r.Method, "path", r.URL.Path, "user", user)
			next.ServeHTTP(w, r)
		})
	}
}

// identify extracts and verifies the bearer token, returning the username.
func identify(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return "", ErrUnauthenticated
	}
	token := strings.TrimSpace(auth[7:])
	if token == "" {
		return "", ErrUnauthenticated
	}
	return VerifyToken(token)
}

// anonymousAllowed reports whether the request may proceed without an
// identity. The feed and topic listings are public reads; the caller just
// gets no per-user reaction data.
func anonymousAllowed(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/v1/feed") || r.URL.Path == "/v1/topics"
}

func exemptPath(path string) bool {
	switch {
	case path == "/healthz", path == "/readyz", path == "/metrics":
		return true
	case strings.HasPrefix(path, "/docs"):
		return true
	}
	return false
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ipWhitelisted(ip string, list []string) bool {
	for _, w := range list {
		if ip == w {
			return true
		}
	}
	return false
}
