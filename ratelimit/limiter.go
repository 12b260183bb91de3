package ratelimit

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentboard/sentinel/audit"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
	Multiplier    float64
}

// Decision is the outcome of [Limiter.Admit].
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterSeconds returns the remaining block time rounded up to whole
// seconds, suitable for a Retry-After response header.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed || d.RetryAfter <= 0 {
		return 0
	}
	return int((d.RetryAfter + time.Second - 1) / time.Second)
}

type record struct {
	count        int
	firstAttempt time.Time
	blocked      bool
	blockUntil   time.Time
}

// Limiter enforces per-key adaptive rate limits with a counting window and
// progressively escalating block durations.
//
// Keys are opaque: deriving them from client identity and resource is the
// caller's job. All state transitions are total functions of the current
// record and the clock; Admit never fails and a never-seen key is always
// allowed.
type Limiter struct {
	cfg  Config
	now  func() time.Time
	sink audit.Sink
	log  zerolog.Logger

	mu      sync.Mutex
	records map[string]*record
}

// New creates a rate [Limiter]. sink receives block-transition audit events
// and may be nil; now overrides the clock and may be nil for wall time.
func New(cfg Config, sink audit.Sink, log zerolog.Logger, now func() time.Time) *Limiter {
	if sink == nil {
		sink = audit.NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		cfg:     cfg,
		now:     now,
		sink:    sink,
		log:     log,
		records: make(map[string]*record),
	}
}

// Admit reports whether a request for key may proceed.
//
// A record whose counting window has fully elapsed is discarded as part of
// the check, regardless of block state: the key gets a fresh start. An
// active block yields a not-allowed decision carrying the remaining time.
func (l *Limiter) Admit(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[key]
	if !ok {
		return Decision{Allowed: true}
	}

	if now.Sub(r.firstAttempt) > l.cfg.Window {
		delete(l.records, key)
		return Decision{Allowed: true}
	}

	if r.blocked {
		if now.Before(r.blockUntil) {
			return Decision{RetryAfter: r.blockUntil.Sub(now)}
		}
		// Block served; back to tracking within the same window.
		r.blocked = false
	}

	return Decision{Allowed: true}
}

// RecordOutcome folds an attempt result into the key's state. A success
// deletes the record outright — one success forgives all prior failures. A
// failure increments the counter and, at every full cycle of MaxAttempts,
// (re)blocks the key with a progressively multiplied duration.
func (l *Limiter) RecordOutcome(key string, success bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if success {
		delete(l.records, key)
		return
	}

	r, ok := l.records[key]
	if !ok || now.Sub(r.firstAttempt) > l.cfg.Window {
		r = &record{firstAttempt: now}
		l.records[key] = r
	}

	r.count++
	if r.count < l.cfg.MaxAttempts {
		return
	}

	cycles := r.count / l.cfg.MaxAttempts
	duration := l.blockFor(cycles)
	wasBlocked := r.blocked
	r.blocked = true
	r.blockUntil = now.Add(duration)

	if !wasBlocked {
		l.log.Warn().
			Str("key", key).
			Int("attempts", r.count).
			Dur("block", duration).
			Msg("rate limit engaged")
		l.sink.Emit(context.Background(), audit.Event{
			Timestamp:   now,
			EventType:   audit.EventRateLimitEngaged,
			Severity:    audit.SeverityWarning,
			Description: "rate limit block engaged",
			Metadata: map[string]string{
				"key":      key,
				"attempts": strconv.Itoa(r.count),
				"block_ms": strconv.FormatInt(duration.Milliseconds(), 10),
			},
		})
	}
}

// Cleanup removes records whose window elapsed more than twice the window
// duration ago and whose block, if any, has expired. Returns the number of
// records removed.
func (l *Limiter) Cleanup() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for key, r := range l.records {
		if now.Sub(r.firstAttempt) <= 2*l.cfg.Window {
			continue
		}
		if r.blocked && now.Before(r.blockUntil) {
			continue
		}
		delete(l.records, key)
		count++
	}

	return count
}

// Attempts returns the current failure count for a key. Missing keys return
// zero and do not reveal whether the key has ever been seen.
func (l *Limiter) Attempts(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[key]
	if !ok {
		return 0
	}
	return r.count
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// blockFor computes the block duration for the Nth full violation cycle:
// BlockDuration * Multiplier^(cycles-1). Growth is unbounded; the only cap
// is saturation at the int64 limit of time.Duration to avoid wrap-around.
func (l *Limiter) blockFor(cycles int) time.Duration {
	if cycles < 1 {
		cycles = 1
	}
	d := float64(l.cfg.BlockDuration) * math.Pow(l.cfg.Multiplier, float64(cycles-1))
	if math.IsNaN(d) || d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
