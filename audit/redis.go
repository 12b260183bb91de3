package audit

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const defaultStream = "sentinel:audit"

// RedisStreamSink appends audit events to a Redis stream via XADD.
//
// Delivery is fire-and-forget: a failed append is counted but never surfaced
// to the emitting operation. MaxLen bounds the stream with approximate
// trimming (XADD MAXLEN ~) so an unread stream cannot grow without limit.
type RedisStreamSink struct {
	redis  redis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisStreamSink(redisClient redis.UniversalClient, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = defaultStream
	}
	return &RedisStreamSink{
		redis:  redisClient,
		stream: stream,
		maxLen: maxLen,
	}
}

func (s *RedisStreamSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.redis == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"event_type": event.EventType,
			"severity":   string(event.Severity),
			"payload":    payload,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	_ = s.redis.XAdd(ctx, args).Err()
}
