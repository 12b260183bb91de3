package sentinel

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentboard/sentinel/audit"
	"github.com/agentboard/sentinel/ratelimit"
	"github.com/agentboard/sentinel/session"
)

// Clock supplies the current time to the runtime. Injectable so tests can
// drive expiry and windowing deterministically.
type Clock func() time.Time

// AuditEvent defines a public type used by sentinel APIs.
type AuditEvent = audit.Event

// AuditSink defines a public type used by sentinel APIs.
type AuditSink = audit.Sink

// Builder defines a public type used by sentinel APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	clock  Clock
	sink   AuditSink
	logger zerolog.Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithClock describes the withclock operation and its observable behavior.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and assembles a [Runtime]: session
// store, rate limiter, audit dispatcher, and one background sweeper.
//
// Build is meant to run exactly once at process start; the returned Runtime
// is the single shared state space and should be injected everywhere a
// handler needs it. A Builder cannot be reused after a successful Build.
func (b *Builder) Build() (*Runtime, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, b.sink)

	sessions := session.NewStore(session.Config{
		MaxAge:               b.config.Session.MaxAge,
		MaxSessionsPerUser:   b.config.Session.MaxSessionsPerUser,
		EnforceIPConsistency: b.config.Session.EnforceIPConsistency,
	}, dispatcherSink(dispatcher), b.logger, func() time.Time { return clock() })

	limiter := ratelimit.New(ratelimit.Config{
		MaxAttempts:   b.config.RateLimit.MaxAttempts,
		Window:        b.config.RateLimit.Window,
		BlockDuration: b.config.RateLimit.BlockDuration,
		Multiplier:    b.config.RateLimit.ProgressiveMultiplier,
	}, dispatcherSink(dispatcher), b.logger, func() time.Time { return clock() })

	rt := &Runtime{
		cfg:        b.config,
		clock:      clock,
		log:        b.logger,
		sessions:   sessions,
		limiter:    limiter,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
	}

	rt.wg.Add(1)
	go rt.sweeper()

	b.built = true
	return rt, nil
}

// dispatcherSink adapts a possibly-nil dispatcher (audit disabled) into a
// usable sink.
func dispatcherSink(d *audit.Dispatcher) audit.Sink {
	if d == nil {
		return audit.NoOpSink{}
	}
	return d
}
