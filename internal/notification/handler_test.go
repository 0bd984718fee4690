package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace-orders/internal/broadcast"
)

type recordingSink struct {
	sent []broadcast.UserNotification
	err  error
}

func (s *recordingSink) PublishNotification(_ context.Context, n broadcast.UserNotification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func envelope(t *testing.T, room, event string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(broadcast.Envelope{Origin: "api-1", Room: room, Event: event, Data: data})
	require.NoError(t, err)
	return raw
}

func TestHandleEvent_ForwardsUserNotification(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(sink)

	n := broadcast.UserNotification{ID: "n-1", Type: "order_status", Title: "Order delivered", Priority: broadcast.PriorityLow}
	err := h.HandleEvent(context.Background(), []byte("user-u-1"), envelope(t, "user-u-1", broadcast.EventUserOrderNotification, n))

	require.NoError(t, err)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "n-1", sink.sent[0].ID)
	assert.Equal(t, "u-1", sink.sent[0].RecipientID, "recipient falls back to the user room")
}

func TestHandleEvent_KeepsExplicitRecipient(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(sink)

	n := broadcast.UserNotification{ID: "n-2", RecipientID: "u-9"}
	require.NoError(t, h.HandleEvent(context.Background(), nil, envelope(t, "user-u-1", broadcast.EventUserOrderNotification, n)))

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "u-9", sink.sent[0].RecipientID)
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(sink)

	err := h.HandleEvent(context.Background(), nil, envelope(t, "business-b-1", broadcast.EventOrderCreated, map[string]string{"id": "o-1"}))

	require.NoError(t, err)
	assert.Empty(t, sink.sent)
}

func TestHandleEvent_Errors(t *testing.T) {
	t.Run("malformed envelope", func(t *testing.T) {
		h := NewHandler(&recordingSink{})
		assert.Error(t, h.HandleEvent(context.Background(), nil, []byte("{not json")))
	})

	t.Run("sink failure", func(t *testing.T) {
		sinkErr := errors.New("channel closed")
		h := NewHandler(&recordingSink{err: sinkErr})
		err := h.HandleEvent(context.Background(), nil, envelope(t, "user-u-1", broadcast.EventUserOrderNotification, broadcast.UserNotification{ID: "n-3"}))
		assert.ErrorIs(t, err, sinkErr)
	})
}
