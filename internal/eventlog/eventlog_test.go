package eventlog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ceremic-storefront/internal/backend/mocks"
	"github.com/example/ceremic-storefront/internal/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (s *recordingSink) Send(_ context.Context, e Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type recordingPublisher struct {
	key, eventType string
	event          any
}

func (p *recordingPublisher) Publish(_ context.Context, key, eventType string, event any) error {
	p.key, p.eventType, p.event = key, eventType, event
	return nil
}

func flush(t *testing.T, l *Logger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Flush(ctx))
}

// ============================================
// Logger Tests
// ============================================

func TestLogger_LogDoesNotBlock(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	l := NewLogger(sink, logger.Discard())

	start := time.Now()
	l.Log(ActionVisit, "COLLECTIONS_PAGE", PageCollections, -1)
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Flush(ctx), context.DeadlineExceeded)

	close(sink.block)
	flush(t, l)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, ActionVisit, events[0].Action)
	assert.Equal(t, "COLLECTIONS_PAGE", events[0].ElementTag)
	assert.Equal(t, int64(-1), events[0].UserID)
	assert.NotEmpty(t, events[0].ID)
}

func TestLogger_FailuresAreSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("503")}
	l := NewLogger(sink, logger.Discard())

	l.Log(ActionView, "7", PageCollections, 4)
	flush(t, l)

	assert.Len(t, sink.all(), 1)
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.Log(ActionView, "7", PageCollections, 4)
	assert.NoError(t, l.Flush(context.Background()))
}

func TestLogger_EnrichesWithIP(t *testing.T) {
	var lookups atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		_, _ = w.Write([]byte(`{"ip":"203.0.113.9"}`))
	}))
	defer srv.Close()

	sink := &recordingSink{}
	resolver := NewIPResolver(srv.URL, srv.Client(), logger.Discard())
	l := NewLogger(sink, logger.Discard(), WithIPResolver(resolver), WithIPWait(5*time.Second))

	l.Log(ActionVisit, "a", PageCollections, -1)
	l.Log(ActionVisit, "b", PageCollections, -1)
	flush(t, l)

	for _, e := range sink.all() {
		assert.Equal(t, "203.0.113.9", e.IP)
	}
	assert.Equal(t, int32(1), lookups.Load())
}

func TestLogger_SlowIPDoesNotBlockLogging(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"ip":"203.0.113.9"}`))
	}))
	defer srv.Close()
	defer close(release)

	sink := &recordingSink{}
	resolver := NewIPResolver(srv.URL, srv.Client(), logger.Discard())
	l := NewLogger(sink, logger.Discard(), WithIPResolver(resolver), WithIPWait(10*time.Millisecond))

	l.Log(ActionVisit, "a", PageCollections, -1)
	flush(t, l)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "", events[0].IP)
}

// ============================================
// IP Resolver Tests
// ============================================

func TestIPResolver_PlainTextAndFailures(t *testing.T) {
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("198.51.100.4\n"))
	}))
	defer plain.Close()
	r := NewIPResolver(plain.URL, plain.Client(), logger.Discard())
	assert.Equal(t, "198.51.100.4", r.Wait(context.Background(), 5*time.Second))

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	r = NewIPResolver(broken.URL, broken.Client(), logger.Discard())
	assert.Equal(t, "", r.Wait(context.Background(), 5*time.Second))

	r = NewIPResolver("", nil, logger.Discard())
	assert.Equal(t, "", r.Wait(context.Background(), 5*time.Second))
}

// ============================================
// Sink Tests
// ============================================

func TestBackendSink(t *testing.T) {
	mb := mocks.NewMockBackend()
	sink := NewBackendSink(mb)

	err := sink.Send(context.Background(), Event{IP: "1.2.3.4", UserID: 4, PageName: PageCart, Action: ActionRemove, ElementTag: "7"})

	require.NoError(t, err)
	logs := mb.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "1.2.3.4", logs[0].IP)
	assert.Equal(t, int64(4), logs[0].UserID)
	assert.Equal(t, ActionRemove, logs[0].Action)
}

func TestKafkaSink(t *testing.T) {
	pub := &recordingPublisher{}
	e := Event{ID: "e1", UserID: -1, Action: ActionVisit}

	require.NoError(t, NewKafkaSink(pub).Send(context.Background(), e))

	assert.Equal(t, "user--1", pub.key)
	assert.Equal(t, ActionVisit, pub.eventType)
	assert.Equal(t, e, pub.event)
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("down")}

	err := MultiSink{bad, good}.Send(context.Background(), Event{Action: ActionView})

	assert.ErrorContains(t, err, "down")
	assert.Len(t, good.all(), 1)
	assert.Len(t, bad.all(), 1)
}
