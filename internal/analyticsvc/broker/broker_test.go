package broker

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/kidzone-services/internal/analyticsvc/models"
	"github.com/avvvet/kidzone-services/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeEventWriter struct {
	Events     []models.StoredEvent
	InsertFunc func(ctx context.Context, e models.StoredEvent) error
}

func (f *FakeEventWriter) Insert(ctx context.Context, e models.StoredEvent) error {
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, e)
	}
	f.Events = append(f.Events, e)
	return nil
}

func newTestBroker(w EventWriter) *Broker {
	b := NewBroker(nil, w, 90*24*time.Hour)
	b.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func TestHandleMessage_StoresEventWithExpiry(t *testing.T) {
	w := &FakeEventWriter{}
	b := newTestBroker(w)
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	uid := int64(9)

	payload, err := comm.Envelope("event", map[string]interface{}{
		"id":      "e-1",
		"name":    "submission.approved",
		"props":   map[string]interface{}{"submission_id": 3},
		"user_id": uid,
		"at":      at,
	}, "")
	require.NoError(t, err)

	require.NoError(t, b.handleMessage(payload))
	require.Len(t, w.Events, 1)

	e := w.Events[0]
	assert.Equal(t, "e-1", e.ID)
	assert.Equal(t, "submission.approved", e.Name)
	require.NotNil(t, e.UserID)
	assert.Equal(t, uid, *e.UserID)
	assert.True(t, e.At.Equal(at))
	assert.True(t, e.ExpiresAt.Equal(at.Add(90*24*time.Hour)))
}

func TestHandleMessage_DefaultsTimestamp(t *testing.T) {
	w := &FakeEventWriter{}
	b := newTestBroker(w)

	payload, err := comm.Envelope("event", map[string]string{"id": "e-2", "name": "game_start"}, "")
	require.NoError(t, err)

	require.NoError(t, b.handleMessage(payload))
	require.Len(t, w.Events, 1)
	assert.True(t, w.Events[0].At.Equal(b.now()))
}

func TestHandleMessage_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte("{nope")},
		{"bad event data", []byte(`{"type":"event","data":"oops"}`)},
		{"missing name", []byte(`{"type":"event","data":{"id":"x"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &FakeEventWriter{}
			err := newTestBroker(w).handleMessage(tt.payload)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Empty(t, w.Events)
		})
	}
}

func TestHandleMessage_IgnoresUnknownType(t *testing.T) {
	w := &FakeEventWriter{}
	err := newTestBroker(w).handleMessage([]byte(`{"type":"chat","data":{}}`))
	assert.NoError(t, err)
	assert.Empty(t, w.Events)
}

func TestHandleMessage_StoreError(t *testing.T) {
	w := &FakeEventWriter{InsertFunc: func(ctx context.Context, e models.StoredEvent) error {
		return assert.AnError
	}}
	payload, _ := comm.Envelope("event", map[string]string{"id": "e-3", "name": "x"}, "")
	err := newTestBroker(w).handleMessage(payload)
	assert.ErrorIs(t, err, assert.AnError)
}
