package sentinel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentboard/sentinel/audit"
	"github.com/agentboard/sentinel/ratelimit"
	"github.com/agentboard/sentinel/session"
)

// Runtime is the process-wide security state space: one session store, one
// adaptive rate limiter, one audit dispatcher, and one background sweeper.
//
// Construct it once through [Builder.Build] at process start and inject it
// into every request handler; there is deliberately no package-level
// instance. All operations are synchronous in-memory state transitions and
// are safe for concurrent use. Close stops the sweeper, drains the audit
// dispatcher, and renders the runtime inert.
type Runtime struct {
	cfg   Config
	clock Clock
	log   zerolog.Logger

	sessions   *session.Store
	limiter    *ratelimit.Limiter
	dispatcher *audit.Dispatcher

	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

/*
====================================
SESSION OPERATIONS
====================================
*/

// CreateSession issues a new session for the authenticated identity,
// evicting the user's oldest session first if the per-user cap is reached.
func (rt *Runtime) CreateSession(userID, userEmail, userRole string, binding session.BindingInfo) (session.Session, error) {
	if rt.closed.Load() {
		return session.Session{}, ErrRuntimeClosed
	}
	return rt.sessions.Create(userID, userEmail, userRole, binding)
}

// GetSession returns the live session for id, lazily destroying it when
// expired. The second return is false for unknown or expired ids.
func (rt *Runtime) GetSession(id string) (session.Session, bool) {
	if rt.closed.Load() {
		return session.Session{}, false
	}
	return rt.sessions.Get(id)
}

// ValidateSession resolves the session and applies binding checks.
func (rt *Runtime) ValidateSession(id string, binding session.BindingInfo) session.ValidationResult {
	if rt.closed.Load() {
		return session.ValidationResult{Reason: session.ReasonNotFound}
	}
	return rt.sessions.Validate(id, binding)
}

// UpdateSession merges CSRF token and metadata changes into a live session.
func (rt *Runtime) UpdateSession(id string, upd session.SessionUpdate) bool {
	if rt.closed.Load() {
		return false
	}
	return rt.sessions.Update(id, upd)
}

// DestroySession removes one session. Idempotent.
func (rt *Runtime) DestroySession(id string) bool {
	if rt.closed.Load() {
		return false
	}
	return rt.sessions.Destroy(id)
}

// DestroyAllForUser revokes every session for the user (global logout).
func (rt *Runtime) DestroyAllForUser(userID string) int {
	if rt.closed.Load() {
		return 0
	}
	return rt.sessions.DestroyAllForUser(userID)
}

// UserSessions returns copies of the user's live sessions, oldest first.
func (rt *Runtime) UserSessions(userID string) []session.Session {
	if rt.closed.Load() {
		return nil
	}
	return rt.sessions.UserSessions(userID)
}

/*
====================================
RATE LIMIT OPERATIONS
====================================
*/

// Admit reports whether a request for the throttle key may proceed.
func (rt *Runtime) Admit(key string) ratelimit.Decision {
	if rt.closed.Load() {
		return ratelimit.Decision{Allowed: true}
	}
	return rt.limiter.Admit(key)
}

// RecordOutcome folds an authentication outcome into the key's throttle
// state: success forgives, failure escalates.
func (rt *Runtime) RecordOutcome(key string, success bool) {
	if rt.closed.Load() {
		return
	}
	rt.limiter.RecordOutcome(key, success)
}

// Attempts returns the current failure count for a throttle key.
func (rt *Runtime) Attempts(key string) int {
	if rt.closed.Load() {
		return 0
	}
	return rt.limiter.Attempts(key)
}

/*
====================================
LIFECYCLE
====================================
*/

// SweepNow runs one synchronous sweep pass outside the background schedule
// and reports (sessions destroyed, rate-limit records removed).
func (rt *Runtime) SweepNow() (int, int) {
	if rt.closed.Load() {
		return 0, 0
	}
	return rt.sessions.Sweep(), rt.limiter.Cleanup()
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (rt *Runtime) AuditDropped() uint64 {
	return rt.dispatcher.Dropped()
}

// Close stops the background sweeper, drains and closes the audit
// dispatcher, and marks the runtime closed. Idempotent. Session and
// rate-limit state is unreachable afterwards: reads report not-found and
// writes are rejected.
func (rt *Runtime) Close() {
	rt.closeOnce.Do(func() {
		rt.closed.Store(true)
		close(rt.done)
		rt.wg.Wait()
		rt.dispatcher.Close()
	})
}

func (rt *Runtime) sweeper() {
	defer rt.wg.Done()

	ticker := time.NewTicker(rt.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			destroyed := rt.sessions.Sweep()
			removed := rt.limiter.Cleanup()
			if destroyed > 0 || removed > 0 {
				rt.log.Debug().
					Int("sessions_destroyed", destroyed).
					Int("rate_records_removed", removed).
					Msg("background sweep completed")
			}
		case <-rt.done:
			return
		}
	}
}
