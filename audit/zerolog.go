package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologSink forwards audit events to a zerolog logger, one structured log
// line per event. Severity maps onto the logger's level so downstream
// alerting can filter on it.
type ZerologSink struct {
	log zerolog.Logger
}

func NewZerologSink(log zerolog.Logger) *ZerologSink {
	return &ZerologSink{log: log}
}

func (s *ZerologSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}

	var entry *zerolog.Event
	switch event.Severity {
	case SeverityHigh:
		entry = s.log.Error()
	case SeverityWarning:
		entry = s.log.Warn()
	default:
		entry = s.log.Info()
	}

	entry = entry.
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("severity", string(event.Severity)).
		Time("event_time", event.Timestamp)

	if event.UserID != "" {
		entry = entry.Str("user_id", event.UserID)
	}
	if event.SessionID != "" {
		entry = entry.Str("session_id", event.SessionID)
	}
	if event.IP != "" {
		entry = entry.Str("ip", event.IP)
	}
	for k, v := range event.Metadata {
		entry = entry.Str("meta_"+k, v)
	}

	entry.Msg(event.Description)
}
