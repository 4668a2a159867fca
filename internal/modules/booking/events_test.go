package booking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	pub := NewKafkaPublisher(w, nil)

	ev, err := NewCloudEvent(EventBookingStatusChanged, subjectOf(17), StatusChanged{BookingID: 17, From: StatusPending, To: StatusConfirmed})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "17", string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "ce_type", msg.Headers[0].Key)
	assert.Equal(t, EventBookingStatusChanged, string(msg.Headers[0].Value))

	var decoded CloudEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "1.0", decoded.SpecVersion)
	assert.Equal(t, "ridebook/bookings", decoded.Source)
	_, err = uuid.Parse(decoded.ID)
	assert.NoError(t, err)

	var data StatusChanged
	require.NoError(t, decoded.ParseData(&data))
	assert.Equal(t, StatusConfirmed, data.To)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	broken := errors.New("leader not available")
	pub := NewKafkaPublisher(&fakeWriter{err: broken}, nil)
	ev, err := NewCloudEvent(EventBookingCreated, "1", map[string]int{"id": 1})
	require.NoError(t, err)
	assert.ErrorIs(t, pub.Publish(context.Background(), ev), broken)
}

func TestNewCloudEvent_UnmarshalableData(t *testing.T) {
	_, err := NewCloudEvent(EventBookingCreated, "1", make(chan int))
	assert.Error(t, err)
}
