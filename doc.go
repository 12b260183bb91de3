// Package sentinel provides the in-memory session-lifecycle and adaptive
// rate-limiting security runtime behind the agentboard control plane.
//
// The package is designed for concurrent server workloads: Runtime methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sentinel is the public surface. It exposes [Runtime], [Builder], [Config],
// and re-exported audit types. Mechanics live in subpackages: session
// lifecycle in session, adaptive throttling in ratelimit, async event
// delivery in audit, HTTP adapters in middleware.
//
// # What this package must NOT do
//
//   - Persist state or coordinate across processes (single address space by
//     design; revocation and quotas hold within one process).
//   - Verify credentials or derive throttle keys (callers own both).
//   - Block an operation on audit delivery.
//
// # Performance contract
//
// Every Runtime operation is a synchronous in-memory state transition under
// a store-scoped mutex; none performs I/O. The background sweeper snapshots
// candidates before destroying them so a full scan never starves request
// handlers.
package sentinel
