package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event type names emitted by the security runtime.
const (
	// EventSessionCreated is an exported constant or variable used by the security runtime.
	EventSessionCreated = "session_created"
	// EventSessionDestroyed is an exported constant or variable used by the security runtime.
	EventSessionDestroyed = "session_destroyed"
	// EventSuspiciousActivity is an exported constant or variable used by the security runtime.
	EventSuspiciousActivity = "suspicious_activity"
	// EventRateLimitEngaged is an exported constant or variable used by the security runtime.
	EventRateLimitEngaged = "rate_limit_engaged"
	// EventConsistencyFailure is an exported constant or variable used by the security runtime.
	EventConsistencyFailure = "consistency_failure"
)

// Severity classifies how urgently an event should be reviewed.
type Severity string

const (
	// SeverityInfo is an exported constant or variable used by the security runtime.
	SeverityInfo Severity = "info"
	// SeverityWarning is an exported constant or variable used by the security runtime.
	SeverityWarning Severity = "warning"
	// SeverityHigh is an exported constant or variable used by the security runtime.
	SeverityHigh Severity = "high"
)

// Event is the canonical audit event model used by internal dispatching and root APIs.
type Event struct {
	EventID     string            `json:"event_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	EventType   string            `json:"event_type"`
	Severity    Severity          `json:"severity"`
	UserID      string            `json:"user_id,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	IP          string            `json:"ip,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
