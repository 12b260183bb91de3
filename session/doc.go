// Package session provides the in-memory session store: creation, binding
// validation, per-user capacity eviction, lazy expiry, and periodic sweeping.
//
// # Expiration model
//
// Expiration is absolute. ExpiresAt is fixed at CreatedAt + MaxAge and never
// extended; LastAccessedAt is refreshed on reads for observability only. An
// expired session becomes unreachable immediately (lazily purged on access)
// and is eventually removed by [Store.Sweep].
//
// # Architecture boundaries
//
// This package owns the [Session] records and the per-user index. Callers
// receive copies; nothing outside the store mutates a live record. It does
// NOT verify credentials, derive throttle keys, or enforce rate limits —
// those belong to the caller and the ratelimit package.
//
// # What this package must NOT do
//
//   - Import sentinel or ratelimit (no upward or sideways imports).
//   - Block on audit delivery (events go through a non-blocking sink).
//   - Extend a session's lifetime on access.
package session
