package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentboard/sentinel/audit"
	"github.com/agentboard/sentinel/internal"
)

// ErrIDCollision is returned when a freshly generated session id already
// exists in the store. This indicates a broken entropy source and is fatal.
var ErrIDCollision = errors.New("session id collision")

// ErrTokenGeneration is returned when the identity generator cannot produce
// a session id or CSRF secret.
var ErrTokenGeneration = errors.New("token generation failed")

// Config holds session store tuning parameters.
type Config struct {
	MaxAge               time.Duration
	MaxSessionsPerUser   int
	EnforceIPConsistency bool
}

// Store is an in-memory session store that handles creation, validation,
// per-user capacity eviction, lazy expiry, and periodic sweeping.
//
// All maps are guarded by a single mutex so the session map and the user
// index are never observable in a partially updated state. Expiration is
// absolute: LastAccessedAt is refreshed on reads but ExpiresAt never moves.
type Store struct {
	cfg  Config
	now  func() time.Time
	sink audit.Sink
	log  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]map[string]struct{}
}

// NewStore creates a session [Store]. sink receives lifecycle audit events
// and may be nil; now overrides the clock and may be nil for wall time.
func NewStore(cfg Config, sink audit.Sink, log zerolog.Logger, now func() time.Time) *Store {
	if sink == nil {
		sink = audit.NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		cfg:      cfg,
		now:      now,
		sink:     sink,
		log:      log,
		sessions: make(map[string]*Session),
		byUser:   make(map[string]map[string]struct{}),
	}
}

// Create generates a new session bound to the caller's identity snapshot and
// request attributes, enforcing the per-user capacity limit by evicting the
// oldest live session first. Eviction and insertion happen under one lock
// hold, so callers never observe the user above capacity.
//
// Create may return an error when the identity generator fails or a generated
// id collides with a live session; both are unexpected and fatal to the call.
func (s *Store) Create(userID, userEmail, userRole string, binding BindingInfo) (Session, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	csrf, err := internal.NewCSRFSecret()
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	now := s.now()
	sess := &Session{
		ID:                sid.String(),
		UserID:            userID,
		UserEmail:         userEmail,
		UserRole:          userRole,
		IPAddress:         binding.IP,
		UserAgent:         binding.UserAgent,
		DeviceFingerprint: internal.Fingerprint(binding.UserAgent, binding.Accept, binding.IP),
		CSRFToken:         csrf,
		CreatedAt:         now,
		LastAccessedAt:    now,
		ExpiresAt:         now.Add(s.cfg.MaxAge),
	}

	s.mu.Lock()
	if _, exists := s.sessions[sess.ID]; exists {
		s.mu.Unlock()
		s.emit(audit.Event{
			Timestamp:   now,
			EventType:   audit.EventConsistencyFailure,
			Severity:    audit.SeverityHigh,
			UserID:      userID,
			SessionID:   sess.ID,
			Description: "generated session id collided with a live session",
		})
		return Session{}, ErrIDCollision
	}

	if s.cfg.MaxSessionsPerUser > 0 {
		for len(s.byUser[userID]) >= s.cfg.MaxSessionsPerUser {
			victim := s.oldestLocked(userID)
			if victim == "" {
				break
			}
			s.destroyLocked(victim, "capacity_eviction")
		}
	}

	s.sessions[sess.ID] = sess
	ids, ok := s.byUser[userID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[userID] = ids
	}
	ids[sess.ID] = struct{}{}
	s.mu.Unlock()

	s.emit(audit.Event{
		Timestamp:   now,
		EventType:   audit.EventSessionCreated,
		Severity:    audit.SeverityInfo,
		UserID:      userID,
		SessionID:   sess.ID,
		IP:          binding.IP,
		Description: "session created",
		Metadata: map[string]string{
			"role":        userRole,
			"fingerprint": sess.DeviceFingerprint,
		},
	})

	return copySession(sess), nil
}

// Get returns the session for id while it is still live. An expired session
// is destroyed as a side effect of the lookup and reported as not found, so
// expiry holds even between sweeps. A successful read refreshes
// LastAccessedAt only; it never extends ExpiresAt.
func (s *Store) Get(id string) (Session, bool) {
	now := s.now()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return Session{}, false
	}
	if !now.Before(sess.ExpiresAt) {
		s.destroyLocked(id, "expired")
		s.mu.Unlock()
		return Session{}, false
	}
	sess.LastAccessedAt = now
	out := copySession(sess)
	s.mu.Unlock()

	return out, true
}

// Validate resolves the session and applies binding consistency checks.
//
// The IP check is opt-in (Config.EnforceIPConsistency): legitimate mobile and
// proxied clients change addresses, so a mismatch invalidates the request but
// deliberately does not destroy the session. A user-agent change is a weak
// signal and is only logged.
func (s *Store) Validate(id string, binding BindingInfo) ValidationResult {
	sess, ok := s.Get(id)
	if !ok {
		return ValidationResult{Reason: ReasonNotFound}
	}

	if s.cfg.EnforceIPConsistency && binding.IP != "" && binding.IP != sess.IPAddress {
		s.emit(audit.Event{
			Timestamp:   s.now(),
			EventType:   audit.EventSuspiciousActivity,
			Severity:    audit.SeverityHigh,
			UserID:      sess.UserID,
			SessionID:   sess.ID,
			IP:          binding.IP,
			Description: "session presented from unexpected IP address",
			Metadata: map[string]string{
				"bound_ip":     sess.IPAddress,
				"presented_ip": binding.IP,
			},
		})
		return ValidationResult{Reason: ReasonIPMismatch}
	}

	if binding.UserAgent != "" && binding.UserAgent != sess.UserAgent {
		s.log.Warn().
			Str("session_id", sess.ID).
			Str("user_id", sess.UserID).
			Msg("session user-agent changed")
	}

	return ValidationResult{Valid: true, Session: sess}
}

// Update merges the provided fields into a live session and refreshes
// LastAccessedAt. Returns false when the session is absent or expired.
func (s *Store) Update(id string, upd SessionUpdate) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	if !now.Before(sess.ExpiresAt) {
		s.destroyLocked(id, "expired")
		return false
	}

	if upd.CSRFToken != nil {
		sess.CSRFToken = *upd.CSRFToken
	}
	if len(upd.Metadata) > 0 {
		if sess.Metadata == nil {
			sess.Metadata = make(map[string]string, len(upd.Metadata))
		}
		for k, v := range upd.Metadata {
			sess.Metadata[k] = v
		}
	}
	sess.LastAccessedAt = now

	return true
}

// Destroy removes the session from the store and from its user's index.
// Idempotent: destroying an absent id returns false without error.
func (s *Store) Destroy(id string) bool {
	s.mu.Lock()
	_, ok := s.destroyLocked(id, "explicit")
	s.mu.Unlock()
	return ok
}

// DestroyAllForUser destroys every session currently indexed for the user
// and returns the number actually destroyed.
func (s *Store) DestroyAllForUser(userID string) int {
	s.mu.Lock()
	ids := make([]string, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		ids = append(ids, id)
	}

	count := 0
	for _, id := range ids {
		if _, ok := s.destroyLocked(id, "revoked"); ok {
			count++
		}
	}
	s.mu.Unlock()

	return count
}

// Sweep destroys every expired session and returns the number removed.
//
// Candidates are collected under a read lock first, then destroyed one by one
// under the write lock with a re-check, so a long scan never blocks request
// handlers for its full duration and concurrent mutation stays safe.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.RLock()
	candidates := make([]string, 0)
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	count := 0
	for _, id := range candidates {
		s.mu.Lock()
		if sess, ok := s.sessions[id]; ok && !now.Before(sess.ExpiresAt) {
			s.destroyLocked(id, "expired")
			count++
		}
		s.mu.Unlock()
	}

	if count > 0 {
		s.log.Debug().Int("destroyed", count).Msg("session sweep completed")
	}

	return count
}

// UserSessions returns copies of the user's live sessions, oldest first.
func (s *Store) UserSessions(userID string) []Session {
	now := s.now()

	s.mu.RLock()
	out := make([]Session, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		if sess, ok := s.sessions[id]; ok && now.Before(sess.ExpiresAt) {
			out = append(out, copySession(sess))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}

// UserSessionCount returns the number of tracked session IDs for a user.
func (s *Store) UserSessionCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser[userID])
}

// Len returns the total number of tracked sessions, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// oldestLocked selects the eviction victim for a user: smallest CreatedAt,
// ties broken by id so the choice is deterministic. Caller holds mu.
func (s *Store) oldestLocked(userID string) string {
	var (
		victim string
		oldest time.Time
	)
	for id := range s.byUser[userID] {
		sess, ok := s.sessions[id]
		if !ok {
			continue
		}
		if victim == "" ||
			sess.CreatedAt.Before(oldest) ||
			(sess.CreatedAt.Equal(oldest) && id < victim) {
			victim = id
			oldest = sess.CreatedAt
		}
	}
	return victim
}

// destroyLocked removes a session from both maps and emits the destroyed
// event. Caller holds mu. Returns the removed session and whether it existed.
func (s *Store) destroyLocked(id, cause string) (*Session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	delete(s.sessions, id)
	if ids, ok := s.byUser[sess.UserID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, sess.UserID)
		}
	}

	now := s.now()
	s.emit(audit.Event{
		Timestamp:   now,
		EventType:   audit.EventSessionDestroyed,
		Severity:    audit.SeverityInfo,
		UserID:      sess.UserID,
		SessionID:   sess.ID,
		IP:          sess.IPAddress,
		Description: "session destroyed",
		Metadata: map[string]string{
			"cause":       cause,
			"duration_ms": strconv.FormatInt(sess.Duration(now).Milliseconds(), 10),
		},
	})

	return sess, true
}

func (s *Store) emit(event audit.Event) {
	s.sink.Emit(context.Background(), event)
}

func copySession(sess *Session) Session {
	out := *sess
	if sess.Metadata != nil {
		out.Metadata = make(map[string]string, len(sess.Metadata))
		for k, v := range sess.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
