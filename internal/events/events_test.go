package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equiplend/frontend/internal/models"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{w: w}
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), Event{
		Type:      TypeForAction(models.ActionReject),
		RequestID: 42,
		Status:    models.StatusRejected,
		ActorID:   1,
		ActorRole: models.RoleStaff,
		Reason:    "damaged",
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "42", string(w.msgs[0].Key))
	assert.True(t, at.Equal(w.msgs[0].Time))

	var got Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, TypeRequestRejected, got.Type)
	assert.Equal(t, "damaged", got.Reason)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{w: &captureWriter{err: errors.New("no leader")}}
	err := p.Publish(context.Background(), Event{Type: TypeRequestCreated, RequestID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no leader")
}

func TestNew_NoBrokersIsNop(t *testing.T) {
	p := New(nil, "borrow_request_events")
	_, ok := p.(Nop)
	assert.True(t, ok)
	assert.NoError(t, p.Publish(context.Background(), Event{}))

	_, ok = New([]string{"kafka:9092"}, "borrow_request_events").(*KafkaPublisher)
	assert.True(t, ok)
}

func TestTypeForAction(t *testing.T) {
	assert.Equal(t, TypeRequestApproved, TypeForAction(models.ActionApprove))
	assert.Equal(t, TypeRequestIssued, TypeForAction(models.ActionIssue))
	assert.Equal(t, TypeRequestReturned, TypeForAction(models.ActionReturn))
}
