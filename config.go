package sentinel

import (
	"errors"
	"time"
)

// Config defines a public type used by sentinel APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session   SessionConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig

	// CleanupInterval is the period of the background sweeper that purges
	// expired sessions and stale rate-limit records.
	CleanupInterval time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by sentinel APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// MaxAge is the absolute session lifetime. Expiry never slides: a
	// session expires at CreatedAt + MaxAge regardless of activity.
	MaxAge               time.Duration
	MaxSessionsPerUser   int
	EnforceIPConsistency bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by sentinel APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	MaxAttempts           int
	Window                time.Duration
	BlockDuration         time.Duration
	ProgressiveMultiplier float64
}

// AuditConfig defines a public type used by sentinel APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			MaxAge:               24 * time.Hour,
			MaxSessionsPerUser:   5,
			EnforceIPConsistency: false,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:           5,
			Window:                15 * time.Minute,
			BlockDuration:         15 * time.Minute,
			ProgressiveMultiplier: 2,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		CleanupInterval: 5 * time.Minute,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation fails.
// Validate does not mutate shared global state and can be used concurrently.
func (c *Config) Validate() error {
	// Session
	if c.Session.MaxAge <= 0 {
		return errors.New("Session MaxAge must be > 0")
	}
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("Session MaxSessionsPerUser must be >= 0")
	}

	// Rate limit
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RateLimit MaxAttempts must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}
	if c.RateLimit.BlockDuration <= 0 {
		return errors.New("RateLimit BlockDuration must be > 0")
	}
	if c.RateLimit.ProgressiveMultiplier < 1 {
		return errors.New("RateLimit ProgressiveMultiplier must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.CleanupInterval <= 0 {
		return errors.New("CleanupInterval must be > 0")
	}

	return nil
}
