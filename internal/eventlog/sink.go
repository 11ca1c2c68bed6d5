package eventlog

import (
	"context"
	"errors"
	"strconv"

	"github.com/example/ceremic-storefront/internal/backend"
)

// Sink delivers one event somewhere.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// LogBackend is the part of the REST client BackendSink uses.
type LogBackend interface {
	Log(ctx context.Context, e backend.LogEntry) error
}

// BackendSink posts events to the backend's /log endpoint.
type BackendSink struct {
	client LogBackend
}

func NewBackendSink(client LogBackend) *BackendSink {
	return &BackendSink{client: client}
}

func (s *BackendSink) Send(ctx context.Context, e Event) error {
	return s.client.Log(ctx, backend.LogEntry{
		IP:         e.IP,
		UserID:     e.UserID,
		PageName:   e.PageName,
		Action:     e.Action,
		ElementTag: e.ElementTag,
	})
}

// Publisher is satisfied by the Kafka producer.
type Publisher interface {
	Publish(ctx context.Context, key, eventType string, event any) error
}

// KafkaSink publishes events keyed by user id, so one user's events keep
// their order within a partition.
type KafkaSink struct {
	publisher Publisher
}

func NewKafkaSink(publisher Publisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

func (s *KafkaSink) Send(ctx context.Context, e Event) error {
	return s.publisher.Publish(ctx, "user-"+strconv.FormatInt(e.UserID, 10), e.Action, e)
}

// MultiSink sends to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
