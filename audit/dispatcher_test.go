package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type countingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *countingSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *countingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

type blockingSink struct {
	release chan struct{}
	sink    *countingSink
}

func (s *blockingSink) Emit(ctx context.Context, event Event) {
	<-s.release
	s.sink.Emit(ctx, event)
}

func TestDisabledDispatcherIsNilAndSafe(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}

	// nil receiver methods must not panic
	d.Emit(context.Background(), Event{EventType: EventSessionCreated})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	sink := &countingSink{}
	release := make(chan struct{})
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, &blockingSink{release: release, sink: sink})

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: EventSessionCreated})
	}
	close(release)
	d.Close()

	if got := len(sink.snapshot()); got != 5 {
		t.Fatalf("expected 5 drained events, got %d", got)
	}
}

func TestEmitAssignsEventID(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	d.Emit(context.Background(), Event{EventType: EventRateLimitEngaged})
	d.Emit(context.Background(), Event{EventType: EventRateLimitEngaged, EventID: "fixed-id"})
	d.Close()

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventID == "" {
		t.Fatal("dispatcher must assign an EventID")
	}
	if events[1].EventID != "fixed-id" {
		t.Fatalf("caller-supplied EventID overwritten: %q", events[1].EventID)
	}
	if events[0].EventID == events[1].EventID {
		t.Fatal("event ids must be distinct")
	}
}

func TestDropIfFullCountsInsteadOfBlocking(t *testing.T) {
	sink := &countingSink{}
	release := make(chan struct{})
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, &blockingSink{release: release, sink: sink})

	// One event may be in flight with the worker and one in the buffer;
	// everything beyond that must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Emit(context.Background(), Event{EventType: EventSessionDestroyed})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked in drop-if-full mode")
	}

	close(release)
	d.Close()

	delivered := uint64(len(sink.snapshot()))
	if delivered+d.Dropped() != 10 {
		t.Fatalf("delivered %d + dropped %d != 10", delivered, d.Dropped())
	}
	if d.Dropped() == 0 {
		t.Fatal("expected at least one dropped event")
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), Event{EventType: EventSessionCreated})
	if got := len(sink.snapshot()); got != 0 {
		t.Fatalf("closed dispatcher delivered %d events", got)
	}
}
