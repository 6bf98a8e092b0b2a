package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func drain(sink *ChannelSink) []AuditEvent {
	var events []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	srv := newIdentity(t)
	sink := &countingSink{}
	c, _, _ := newTestClient(t, srv.URL(), func(b *Builder) {
		b.WithAuditSink(sink)
		b.config.Audit.Enabled = false
	})

	c.Login(context.Background(), "admin", "wrong-password")
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditLoginEventsCarryOutcome(t *testing.T) {
	srv := newIdentity(t)
	sink := NewChannelSink(16)
	c, _, _ := newTestClient(t, srv.URL(), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	c.Login(ctx, "admin", "wrong-password")
	c.Login(ctx, "admin", "admin123")
	c.Logout(ctx)
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := drain(sink)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	failure, success, logout := events[0], events[1], events[2]
	if failure.EventType != auditEventLoginFailure || failure.Success || failure.Error != string(auditErrRejected) {
		t.Fatalf("unexpected failure event %+v", failure)
	}
	if failure.Username != "admin" {
		t.Fatalf("expected identifier on failure event, got %q", failure.Username)
	}
	if success.EventType != auditEventLoginSuccess || !success.Success || success.Metadata["credential"] != "bearer" {
		t.Fatalf("unexpected success event %+v", success)
	}
	if logout.EventType != auditEventLogout || !logout.Success || logout.Username != "admin" {
		t.Fatalf("unexpected logout event %+v", logout)
	}
	for _, ev := range events {
		if ev.ID == "" || ev.RequestID == "" {
			t.Fatalf("event missing ids: %+v", ev)
		}
		if !ev.Timestamp.Equal(fixedNow) {
			t.Fatalf("expected timestamp %v got %v", fixedNow, ev.Timestamp)
		}
	}
	if events[0].ID == events[1].ID {
		t.Fatal("event ids must be unique")
	}
}

func TestAuditTransportFailureCode(t *testing.T) {
	srv := newIdentity(t)
	sink := NewChannelSink(4)
	c, _, _ := newTestClient(t, srv.URL(), func(b *Builder) { b.WithAuditSink(sink) })
	srv.Close()

	c.Logout(context.Background())
	_ = c.Close()

	events := drain(sink)
	if len(events) != 1 || events[0].Error != string(auditErrTransport) || events[0].Success {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	srv := newIdentity(t)
	var buf syncBuffer
	c, _, _ := newTestClient(t, srv.URL(), func(b *Builder) { b.WithAuditSink(NewJSONWriterSink(&buf)) })
	ctx := context.Background()

	const password = "admin123"
	if res := c.Login(ctx, "admin", password); !res.Success {
		t.Fatalf("login failed: %s", res.Message)
	}
	sess := c.Session(ctx)
	c.RefreshToken(ctx)
	refreshed := c.Session(ctx)
	c.ValidateToken(ctx)
	c.CheckAuthStatus(ctx)
	c.Logout(ctx)
	_ = c.Close()

	needles := []string{password, sess.Token, sess.RefreshToken, refreshed.Token, refreshed.RefreshToken}
	lines := buf.Lines()
	if len(lines) < 5 {
		t.Fatalf("expected at least 5 audit lines, got %d", len(lines))
	}
	for _, line := range lines {
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("audit line is not JSON: %q", line)
		}
		for _, needle := range needles {
			if needle != "" && strings.Contains(line, needle) {
				t.Fatalf("sensitive value leaked in audit line: %q", line)
			}
		}
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, nil)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink, nil)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{}, nil)

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

type panicSink struct {
	count atomic.Int64
}

func (s *panicSink) Emit(_ context.Context, ev AuditEvent) {
	s.count.Add(1)
	if ev.EventType == "boom" {
		panic("sink exploded")
	}
}

func TestAuditSinkPanicLosesOnlyThatEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := &panicSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, sink, zap.New(core))

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "boom"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "after"})
	dispatcher.Close()

	if sink.count.Load() != 2 {
		t.Fatalf("expected both events delivered, got %d", sink.count.Load())
	}
	if dispatcher.panicked.Load() != 1 {
		t.Fatalf("expected one recorded panic, got %d", dispatcher.panicked.Load())
	}
	if logs.FilterMessage("audit sink panicked; event lost").Len() != 1 {
		t.Fatal("expected panic to be logged")
	}
}

func TestAuditDropWarningsBackOff(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, zap.New(core))
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	// one event held by the sink, one in the queue
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	deadline := time.Now().Add(2 * time.Second)
	for len(dispatcher.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	for i := 0; i < 8; i++ {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "drop"})
	}
	if dispatcher.Dropped() != 8 {
		t.Fatalf("expected 8 drops, got %d", dispatcher.Dropped())
	}
	// warnings on drops 1, 2, 4 and 8
	if n := logs.FilterMessage("audit queue full; dropping events").Len(); n != 4 {
		t.Fatalf("expected 4 drop warnings, got %d", n)
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		ID:        "id-1",
		Timestamp: fixedNow,
		EventType: auditEventLoginSuccess,
		Username:  "admin",
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})

	lines := buf.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"event_type":"login_success"`) || !strings.Contains(lines[0], `"username":"admin"`) {
		t.Fatalf("unexpected line %q", lines[0])
	}
}

func TestAuditZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), AuditEvent{
		ID:        "id-1",
		EventType: auditEventLoginSuccess,
		Username:  "admin",
		Success:   true,
		Metadata:  map[string]string{"credential": "bearer"},
	})
	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventLoginFailure,
		Username:  "admin",
		Error:     string(auditErrRejected),
	})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].Message != "audit login_success" {
		t.Fatalf("unexpected success entry %+v", entries[0].Entry)
	}
	if entries[0].ContextMap()["meta.credential"] != "bearer" {
		t.Fatalf("expected metadata field, got %v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["error"] != "rejected" {
		t.Fatalf("unexpected failure entry %+v", entries[1])
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	cases := map[error]AuditErrorCode{
		nil:                  "",
		ErrTransport:         auditErrTransport,
		ErrMalformedResponse: auditErrMalformed,
		rejected("/x", 500):  auditErrRejected,
		ErrNoSession:         auditErrNoSession,
		ErrNoRefreshToken:    auditErrNoRefreshToken,
		ErrNoToken:           auditErrNoToken,
		errDiskOnFire:        auditErrInternal,
	}
	for err, want := range cases {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
