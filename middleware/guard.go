package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	sentinel "github.com/agentboard/sentinel"
	"github.com/agentboard/sentinel/session"
)

// SessionCookie is the cookie consulted for the session id when no bearer
// token is present.
const SessionCookie = "sentinel_session"

type sessionContextKey struct{}

// SessionFromContext returns the session injected by [Guard].
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(session.Session)
	return sess, ok
}

// Guard validates the request's session and injects it into the context.
// Requests without a resolvable, valid session are rejected with 401.
func Guard(rt *sentinel.Runtime) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rt == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, ok := sessionID(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res := rt.ValidateSession(id, BindingInfo(r))
			if !res.Valid {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, res.Session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BindingInfo captures the request attributes the session store binds and
// validates against.
func BindingInfo(r *http.Request) session.BindingInfo {
	return session.BindingInfo{
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
		Accept:    r.Header.Get("Accept"),
	}
}

// ClientIP resolves the client network address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then the connection's remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sessionID(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
