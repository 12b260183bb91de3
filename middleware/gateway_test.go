package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sentinel "github.com/agentboard/sentinel"
	"github.com/agentboard/sentinel/session"
)

func testRuntime(t *testing.T, cfg sentinel.Config) *sentinel.Runtime {
	t.Helper()

	rt, err := sentinel.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt
}

func gatewayConfig() sentinel.Config {
	return sentinel.Config{
		Session: sentinel.SessionConfig{
			MaxAge:             time.Hour,
			MaxSessionsPerUser: 5,
		},
		RateLimit: sentinel.RateLimitConfig{
			MaxAttempts:           2,
			Window:                time.Minute,
			BlockDuration:         30 * time.Second,
			ProgressiveMultiplier: 2,
		},
		Audit: sentinel.AuditConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		CleanupInterval: time.Hour,
	}
}

// httptest defaults RemoteAddr to 192.0.2.1:1234; bind sessions to that
// address so validation sees a consistent client.
func testBinding() session.BindingInfo {
	return session.BindingInfo{IP: "192.0.2.1", UserAgent: "", Accept: ""}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardRejectsAnonymousRequest(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	h := Guard(rt)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secure", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardRejectsUnknownSessionID(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	h := Guard(rt)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "no-such-session"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardAcceptsCookieAndInjectsSession(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	sess, err := rt.CreateSession("u-1", "ops@example.com", "admin", testBinding())
	require.NoError(t, err)

	var seen session.Session
	h := Guard(rt)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		seen = got
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sess.ID, seen.ID)
	assert.Equal(t, "u-1", seen.UserID)
	assert.Equal(t, "admin", seen.UserRole)
}

func TestGuardPrefersBearerToken(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	sess, err := rt.CreateSession("u-1", "", "viewer", testBinding())
	require.NoError(t, err)

	h := Guard(rt)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+sess.ID)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale-cookie"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardEnforcesIPBindingWhenConfigured(t *testing.T) {
	cfg := gatewayConfig()
	cfg.Session.EnforceIPConsistency = true
	rt := testRuntime(t, cfg)

	sess, err := rt.CreateSession("u-1", "", "viewer", session.BindingInfo{IP: "198.51.100.9"})
	require.NoError(t, err)

	h := Guard(rt)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The session itself survives the rejection.
	_, ok := rt.GetSession(sess.ID)
	assert.True(t, ok)
}

func TestThrottleBlocksAfterRepeatedFailures(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	h := Throttle(rt, nil)(okHandler())

	key := ThrottleKey(httptest.NewRequest(http.MethodPost, "/login", nil))
	rt.RecordOutcome(key, false)
	rt.RecordOutcome(key, false) // second failure trips the 2-attempt limit

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestThrottleKeysAreIndependentPerPath(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	h := Throttle(rt, nil)(okHandler())

	key := ThrottleKey(httptest.NewRequest(http.MethodPost, "/login", nil))
	rt.RecordOutcome(key, false)
	rt.RecordOutcome(key, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reset-password", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottleCustomKeyFunc(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	byUser := func(r *http.Request) string { return "user:" + r.Header.Get("X-User") }
	h := Throttle(rt, byUser)(okHandler())

	rt.RecordOutcome("user:alice", false)
	rt.RecordOutcome("user:alice", false)

	blocked := httptest.NewRequest(http.MethodPost, "/login", nil)
	blocked.Header.Set("X-User", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, blocked)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.Header.Set("X-User", "bob")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFSkipsSafeMethods(t *testing.T) {
	h := CSRF()(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/secure", nil))
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}
}

func TestCSRFRejectsWithoutSessionOrToken(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	sess, err := rt.CreateSession("u-1", "", "viewer", testBinding())
	require.NoError(t, err)

	h := Guard(rt)(CSRF()(okHandler()))

	// Valid session, missing token.
	req := httptest.NewRequest(http.MethodPost, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Valid session, wrong token.
	req = httptest.NewRequest(http.MethodPost, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	req.Header.Set(CSRFHeader, "forged")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No session in context at all.
	rec = httptest.NewRecorder()
	CSRF()(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/secure", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFAcceptsMatchingToken(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())
	sess, err := rt.CreateSession("u-1", "", "viewer", testBinding())
	require.NoError(t, err)

	h := Guard(rt)(CSRF()(okHandler()))

	req := httptest.NewRequest(http.MethodPost, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	req.Header.Set(CSRFHeader, sess.CSRFToken)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIPResolution(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", ClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "192.0.2.1", ClientIP(req))
}

// Full gateway: throttled login issuing a session cookie, then a guarded,
// CSRF-protected route consumed with that cookie.
func TestGatewayLoginFlow(t *testing.T) {
	rt := testRuntime(t, gatewayConfig())

	r := chi.NewRouter()
	r.With(Throttle(rt, nil)).Post("/login", func(w http.ResponseWriter, req *http.Request) {
		key := ThrottleKey(req)
		if req.Header.Get("X-Password") != "correct-horse" {
			rt.RecordOutcome(key, false)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sess, err := rt.CreateSession("u-1", "ops@example.com", "admin", BindingInfo(req))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		rt.RecordOutcome(key, true)

		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: sess.ID, HttpOnly: true})
		w.Header().Set(CSRFHeader, sess.CSRFToken)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(Guard(rt), CSRF())
		r.Post("/workflows", func(w http.ResponseWriter, req *http.Request) {
			sess, _ := SessionFromContext(req.Context())
			w.Write([]byte(sess.UserID))
		})
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	// Two bad passwords, then the limiter refuses the third attempt.
	for i := 0; i < 2; i++ {
		res, err := http.Post(srv.URL+"/login", "application/json", nil)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	}
	res, err := http.Post(srv.URL+"/login", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)

	// A different client address is unaffected and can log in.
	loginReq, err := http.NewRequest(http.MethodPost, srv.URL+"/login", nil)
	require.NoError(t, err)
	loginReq.Header.Set("X-Forwarded-For", "203.0.113.50")
	loginReq.Header.Set("X-Password", "correct-horse")

	res, err = http.DefaultClient.Do(loginReq)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	csrfToken := res.Header.Get(CSRFHeader)
	require.NotEmpty(t, csrfToken)

	apiReq, err := http.NewRequest(http.MethodPost, srv.URL+"/api/workflows", nil)
	require.NoError(t, err)
	apiReq.Header.Set("X-Forwarded-For", "203.0.113.50")
	apiReq.AddCookie(cookie)
	apiReq.Header.Set(CSRFHeader, csrfToken)

	res, err = http.DefaultClient.Do(apiReq)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
