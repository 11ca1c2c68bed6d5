package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ceremic-storefront/internal/eventlog"
	"github.com/example/ceremic-storefront/internal/infrastructure/kafka"
	"github.com/example/ceremic-storefront/internal/logger"
)

func message(t *testing.T, e eventlog.Event) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("user-1"), Value: raw, EventType: e.Action}
}

func TestPrinter_FiltersByAction(t *testing.T) {
	var buf bytes.Buffer
	handle := printer(&buf, eventlog.ActionAddToCart, logger.Discard())
	at := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	require.NoError(t, handle(context.Background(), message(t, eventlog.Event{ID: "a", UserID: 1, Action: eventlog.ActionVisit, At: at})))
	require.NoError(t, handle(context.Background(), message(t, eventlog.Event{ID: "b", UserID: 1, Action: eventlog.ActionAddToCart, ElementTag: "7", At: at})))

	var got eventlog.Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "b", got.ID)
	assert.Equal(t, "7", got.ElementTag)
}

func TestPrinter_SkipsUndecodable(t *testing.T) {
	var buf bytes.Buffer
	handle := printer(&buf, "", logger.Discard())

	err := handle(context.Background(), kafka.Message{Value: []byte("{broken")})

	assert.NoError(t, err)
	assert.Empty(t, buf.String())
}
