package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishEvent(t *testing.T) {
	writer := &recordingWriter{}
	producer := &Producer{writer: writer}

	event, err := NewEvent("cart-1", "Cart", "ItemAddedToCart", map[string]any{"product_id": "p1", "quantity": 2})
	require.NoError(t, err)

	require.NoError(t, producer.Publish(context.Background(), event.AggregateID, event))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "cart-1", string(writer.messages[0].Key))

	decoded, err := DecodeEvent(writer.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "ItemAddedToCart", decoded.EventType)
	assert.JSONEq(t, `{"product_id":"p1","quantity":2}`, string(decoded.Data))

	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)
}

func TestProducer_PublishError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker unavailable")}
	producer := &Producer{writer: writer}

	err := producer.Publish(context.Background(), "cart-1", map[string]string{"a": "b"})

	assert.ErrorIs(t, err, writer.err)
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent("cart-1", "Cart", "Broken", make(chan int))
	assert.Error(t, err)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := DecodeEvent([]byte("not json"))
	assert.Error(t, err)
}
