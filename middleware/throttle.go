package middleware

import (
	"net/http"
	"strconv"

	sentinel "github.com/agentboard/sentinel"
)

// KeyFunc derives the throttle key for a request. The runtime treats keys as
// opaque strings; key shape is entirely a gateway concern.
type KeyFunc func(*http.Request) string

// ThrottleKey is the default key derivation: client address plus the
// protected resource path.
func ThrottleKey(r *http.Request) string {
	return ClientIP(r) + ":" + r.URL.Path
}

// Throttle asks the rate limiter for admission before the handler runs.
// Blocked requests get 429 with a Retry-After header; outcome recording
// stays with the handler (success forgives, failure escalates).
func Throttle(rt *sentinel.Runtime, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = ThrottleKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rt == nil {
				next.ServeHTTP(w, r)
				return
			}

			decision := rt.Admit(keyFn(r))
			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
