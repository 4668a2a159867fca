// README: Booking lifecycle events published as CloudEvents.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"

	eventSource = "ridebook/bookings"
)

// CloudEvent is the envelope written to the bookings topic.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

func NewCloudEvent(eventType, subject string, data any) (CloudEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return CloudEvent{}, fmt.Errorf("marshal %s data: %w", eventType, err)
	}
	return CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.NewString(),
		Source:          eventSource,
		Type:            eventType,
		Subject:         subject,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            raw,
	}, nil
}

func (e CloudEvent) ParseData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// StatusChanged is the data of a booking.status_changed event.
type StatusChanged struct {
	BookingID int64  `json:"bookingId"`
	RefCode   string `json:"refCode"`
	From      Status `json:"from"`
	To        Status `json:"to"`
}

type Publisher interface {
	Publish(ctx context.Context, ev CloudEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, CloudEvent) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// KafkaPublisher writes events keyed by subject, so every event of one
// booking lands on the same partition.
type KafkaPublisher struct {
	w   messageWriter
	log *zap.Logger
}

func NewKafkaPublisher(w messageWriter, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{w: w, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev CloudEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(ev.Subject),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "ce_type", Value: []byte(ev.Type)},
			{Key: "ce_id", Value: []byte(ev.ID)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.log.Debug("event published",
		zap.String("type", ev.Type),
		zap.String("subject", ev.Subject),
		zap.String("id", ev.ID),
	)
	return nil
}

func subjectOf(id int64) string {
	return strconv.FormatInt(id, 10)
}
