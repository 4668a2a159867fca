// README: Kafka writer for booking events.
package infra

import (
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// NewKafkaWriter returns a writer for topic. Messages with the same key go to
// the same partition.
func NewKafkaWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}
