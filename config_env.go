package sentinel

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	SessionMaxAge        time.Duration `env:"SENTINEL_SESSION_MAX_AGE" envDefault:"24h"`
	MaxSessionsPerUser   int           `env:"SENTINEL_MAX_SESSIONS_PER_USER" envDefault:"5"`
	EnforceIPConsistency bool          `env:"SENTINEL_ENFORCE_IP_CONSISTENCY" envDefault:"false"`

	RateLimitMaxAttempts  int           `env:"SENTINEL_RATE_MAX_ATTEMPTS" envDefault:"5"`
	RateLimitWindow       time.Duration `env:"SENTINEL_RATE_WINDOW" envDefault:"15m"`
	RateLimitBlock        time.Duration `env:"SENTINEL_RATE_BLOCK_DURATION" envDefault:"15m"`
	ProgressiveMultiplier float64       `env:"SENTINEL_RATE_MULTIPLIER" envDefault:"2"`

	AuditEnabled    bool `env:"SENTINEL_AUDIT_ENABLED" envDefault:"true"`
	AuditBufferSize int  `env:"SENTINEL_AUDIT_BUFFER" envDefault:"1024"`
	AuditDropIfFull bool `env:"SENTINEL_AUDIT_DROP_IF_FULL" envDefault:"true"`

	CleanupInterval time.Duration `env:"SENTINEL_CLEANUP_INTERVAL" envDefault:"5m"`
}

// ConfigFromEnv builds a [Config] from SENTINEL_* environment variables,
// falling back to the documented defaults for anything unset. The result is
// validated before it is returned.
func ConfigFromEnv() (Config, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Session: SessionConfig{
			MaxAge:               e.SessionMaxAge,
			MaxSessionsPerUser:   e.MaxSessionsPerUser,
			EnforceIPConsistency: e.EnforceIPConsistency,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:           e.RateLimitMaxAttempts,
			Window:                e.RateLimitWindow,
			BlockDuration:         e.RateLimitBlock,
			ProgressiveMultiplier: e.ProgressiveMultiplier,
		},
		Audit: AuditConfig{
			Enabled:    e.AuditEnabled,
			BufferSize: e.AuditBufferSize,
			DropIfFull: e.AuditDropIfFull,
		},
		CleanupInterval: e.CleanupInterval,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
