package session

import "time"

// Session defines a public type used by sentinel APIs.
//
// Session instances are snapshots: the store hands out copies, and the
// identity and binding fields are fixed at creation. Only CSRFToken,
// Metadata, and LastAccessedAt ever change, and only through the store.
type Session struct {
	ID        string
	UserID    string
	UserEmail string
	UserRole  string

	IPAddress         string
	UserAgent         string
	DeviceFingerprint string

	CSRFToken string
	Metadata  map[string]string

	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      time.Time
}

// Duration reports how long the session has been alive at the given instant.
func (s *Session) Duration(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// BindingInfo carries the request attributes captured at session creation and
// compared on validation.
type BindingInfo struct {
	IP        string
	UserAgent string
	Accept    string
}

// SessionUpdate defines a public type used by sentinel APIs.
//
// Nil fields are left untouched by [Store.Update]; metadata keys merge into
// the existing map.
type SessionUpdate struct {
	CSRFToken *string
	Metadata  map[string]string
}

// ValidationResult is the outcome of [Store.Validate].
type ValidationResult struct {
	Valid   bool
	Session Session
	Reason  string
}

// Validation failure reasons returned in [ValidationResult.Reason].
const (
	// ReasonNotFound is an exported constant or variable used by the security runtime.
	ReasonNotFound = "not found or expired"
	// ReasonIPMismatch is an exported constant or variable used by the security runtime.
	ReasonIPMismatch = "IP address mismatch"
)
