// Package audit implements async event dispatching for security-relevant
// state transitions.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, zerolog,
//     Redis stream, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured audit record with timestamp, type, severity, subject,
//     IP, and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit — that responsibility belongs to the session store, the rate
// limiter, and the Runtime.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import sentinel or any sibling package.
//   - Fail or block an emitting operation when a sink misbehaves.
package audit
