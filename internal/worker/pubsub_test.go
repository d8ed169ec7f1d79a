package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushrelay/pushrelay/internal/api/models"
	"github.com/pushrelay/pushrelay/internal/dispatch"
)

type fakeDispatcher struct {
	lastReq dispatch.Request
	calls   int
	result  *dispatch.Result
	err     error
}

func (f *fakeDispatcher) DeliverOnly(_ context.Context, req dispatch.Request) (*dispatch.Result, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestHandler(d Dispatcher) *PubSubHandler {
	return &PubSubHandler{
		dispatcher: d,
		logger:     zerolog.Nop(),
	}
}

func TestHandleEvent_DispatchesAndAcks(t *testing.T) {
	fake := &fakeDispatcher{result: &dispatch.Result{Sent: 2}}
	h := newTestHandler(fake)

	payload := []byte(`{
		"user_id": "user-1",
		"title": "Order shipped",
		"body": "Your order is on its way",
		"data": {"target": "mobile", "order_id": "ord-9"},
		"notification_id": "notif-42"
	}`)

	ack := h.handleEvent(context.Background(), payload, zerolog.Nop())

	assert.True(t, ack)
	require.Equal(t, 1, fake.calls)
	assert.Equal(t, "user-1", fake.lastReq.UserID)
	assert.Equal(t, "Order shipped", fake.lastReq.Title)
	assert.Equal(t, "mobile", fake.lastReq.Data["target"])
	assert.Equal(t, "notif-42", fake.lastReq.Data["notification_id"])
}

func TestHandleEvent_NestedRecordUserID(t *testing.T) {
	fake := &fakeDispatcher{result: &dispatch.Result{Sent: 1}}
	h := newTestHandler(fake)

	payload := []byte(`{
		"record": {"user_id": "user-7"},
		"title": "Reminder",
		"body": "Check in",
		"data": {"target": "mobile"}
	}`)

	ack := h.handleEvent(context.Background(), payload, zerolog.Nop())

	assert.True(t, ack)
	assert.Equal(t, "user-7", fake.lastReq.UserID)
}

func TestHandleEvent_MalformedPayloadAcked(t *testing.T) {
	fake := &fakeDispatcher{}
	h := newTestHandler(fake)

	ack := h.handleEvent(context.Background(), []byte("not json"), zerolog.Nop())

	assert.True(t, ack, "malformed payloads must not be redelivered")
	assert.Zero(t, fake.calls)
}

func TestHandleEvent_ValidationErrorAcked(t *testing.T) {
	fake := &fakeDispatcher{err: &dispatch.ValidationError{
		Errors: []models.FieldError{{Field: "user_id", Message: "is required"}},
	}}
	h := newTestHandler(fake)

	payload := []byte(`{"title": "No user", "body": "missing"}`)

	ack := h.handleEvent(context.Background(), payload, zerolog.Nop())

	assert.True(t, ack, "invalid events must not be redelivered")
	assert.Equal(t, 1, fake.calls)
}

func TestHandleEvent_DispatchErrorNacked(t *testing.T) {
	fake := &fakeDispatcher{err: errors.New("token registry unavailable")}
	h := newTestHandler(fake)

	payload := []byte(`{"user_id": "user-1", "title": "T", "body": "B"}`)

	ack := h.handleEvent(context.Background(), payload, zerolog.Nop())

	assert.False(t, ack, "transient failures should be redelivered")
}

func TestHandleEvent_RoutingSkipAcked(t *testing.T) {
	fake := &fakeDispatcher{result: &dispatch.Result{
		Skipped:    true,
		SkipReason: `target "email" does not match routing key`,
	}}
	h := newTestHandler(fake)

	payload := []byte(`{"user_id": "user-1", "title": "T", "body": "B", "data": {"target": "email"}}`)

	ack := h.handleEvent(context.Background(), payload, zerolog.Nop())

	assert.True(t, ack)
	assert.Equal(t, 1, fake.calls)
}
