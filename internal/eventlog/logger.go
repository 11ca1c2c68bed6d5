package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultIPWait      = 2 * time.Second
)

// Logger sends events on detached goroutines. Log never blocks on the
// network and never reports a failure; failures go to the slog logger.
type Logger struct {
	sink        Sink
	ip          *IPResolver
	logger      *slog.Logger
	now         func() time.Time
	sendTimeout time.Duration
	ipWait      time.Duration

	wg sync.WaitGroup
}

// Option customizes a Logger.
type Option func(*Logger)

func WithIPResolver(r *IPResolver) Option {
	return func(l *Logger) { l.ip = r }
}

func WithSendTimeout(d time.Duration) Option {
	return func(l *Logger) { l.sendTimeout = d }
}

func WithIPWait(d time.Duration) Option {
	return func(l *Logger) { l.ipWait = d }
}

func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

func NewLogger(sink Sink, logger *slog.Logger, opts ...Option) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		sink:        sink,
		logger:      logger.With("component", "eventlog"),
		now:         time.Now,
		sendTimeout: defaultSendTimeout,
		ipWait:      defaultIPWait,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.ip != nil {
		l.ip.Start()
	}
	return l
}

// Log records one action. It returns immediately.
func (l *Logger) Log(action, elementTag, pageName string, userID int64) {
	if l == nil || l.sink == nil {
		return
	}
	e := Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		PageName:   pageName,
		Action:     action,
		ElementTag: elementTag,
		At:         l.now(),
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("event send panicked", "event_id", e.ID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), l.sendTimeout)
		defer cancel()

		if l.ip != nil {
			e.IP = l.ip.Wait(ctx, l.ipWait)
		}
		if err := l.sink.Send(ctx, e); err != nil {
			l.logger.Warn("event log failed", "event_id", e.ID, "action", e.Action, "error", err)
			return
		}
		l.logger.Debug("event logged", "event_id", e.ID, "action", e.Action)
	}()
}

// Flush waits for in-flight sends, or for ctx to end.
func (l *Logger) Flush(ctx context.Context) error {
	if l == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
