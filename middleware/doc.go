// Package middleware exposes the HTTP security gateway built on top of the
// sentinel Runtime: rate-limit admission, session validation, and CSRF
// enforcement as composable net/http middleware (chi-compatible).
//
// # Pipeline
//
// The canonical per-request flow is Throttle → Guard → CSRF → handler, with
// the handler reporting authentication outcomes back through
// Runtime.RecordOutcome.
//
//   - [Throttle] — asks the rate limiter for admission; 429 + Retry-After.
//   - [Guard] — resolves the session id (bearer token or cookie), validates
//     it with the request's binding info, and injects the session into the
//     request context.
//   - [CSRF] — requires the session's CSRF token on state-changing methods.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Runtime calls. It does NOT
// implement session or throttling logic itself, and it owns key derivation
// ([ThrottleKey]) precisely because the core refuses to.
//
// # What this package must NOT do
//
//   - Mutate session or rate-limit state directly (Runtime owns both).
//   - Emit audit events (state transitions emit their own).
package middleware
