// Package ratelimit provides the in-memory adaptive rate limiter: per-key
// failure counting over a fixed window with progressively escalating blocks.
//
// # Window semantics
//
// A record starts at the first failed attempt for a key and is discarded once
// the window has elapsed since that first attempt — a fresh start, even for a
// blocked key. A single success deletes the record entirely. Every full cycle
// of MaxAttempts failures multiplies the block duration by Multiplier, so
// persistent abuse escalates without bound.
//
// # What this package must NOT do
//
//   - Derive throttle keys (callers supply opaque strings).
//   - Implement domain-specific policies (those live in the caller).
//   - Return errors from Admit; unrecognized keys are always allowed.
package ratelimit
