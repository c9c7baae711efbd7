package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &recordingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher should report zero drops")
	}
}

func TestDispatcherFlushesOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()
	if got := sink.len(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "after_close"})
	if got := sink.len(); got != 10 {
		t.Fatalf("events after close must be ignored, got %d", got)
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		d.Emit(context.Background(), Event{EventType: "flood"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a blocked sink")
	}
	close(sink.release)
	d.Close()
}

type panickingSink struct{ recordingSink }

func (s *panickingSink) Emit(ctx context.Context, e Event) {
	if e.EventType == "boom" {
		panic("sink failure")
	}
	s.recordingSink.Emit(ctx, e)
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	sink := &panickingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Close()
	d.Close()

	if got := sink.len(); got != 1 {
		t.Fatalf("expected the event after the panic to be delivered, got %d", got)
	}
	if d.Dropped() != 1 {
		t.Fatalf("expected the panicking event counted as dropped, got %d", d.Dropped())
	}
}

func TestDispatcherBlockingEmitHonorsContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	// "b" can only enter the buffer once the loop took "a" into the
	// blocked sink, so the buffer is full afterwards.
	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "c"})
	if d.Dropped() != 1 {
		t.Fatal("expected a cancelled emit to be counted")
	}
	close(sink.release)
	d.Close()
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "register_step1", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "invalid_credentials"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.EventType != "register_step1" || first.UserID != "u1" || !first.Success {
		t.Fatalf("unexpected event %+v", first)
	}
}

func TestLogrusSinkLevels(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewLogrusSink(logger)

	sink.Emit(context.Background(), Event{EventType: "login_success", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{
		EventType: "login_failure",
		Error:     "invalid_credentials",
		Metadata:  map[string]string{"identifier": "alice"},
	})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != logrus.InfoLevel || entries[0].Data["user_id"] != "u1" {
		t.Fatalf("unexpected success entry %+v", entries[0].Data)
	}
	if entries[1].Level != logrus.WarnLevel || entries[1].Data["error"] != "invalid_credentials" {
		t.Fatalf("unexpected failure entry %+v", entries[1].Data)
	}
	if entries[1].Data["meta_identifier"] != "alice" {
		t.Fatalf("metadata not flattened: %+v", entries[1].Data)
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{EventType: "x"})
	select {
	case e := <-sink.Events():
		if e.EventType != "x" {
			t.Fatalf("unexpected %q", e.EventType)
		}
	default:
		t.Fatal("expected buffered event")
	}
}
