// Package kafka forwards catalog events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/narwhalmedia/catalog/pkg/events"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// Forwarder relays bus events to Kafka, keyed by aggregate id so events
// for one library stay ordered within a partition.
type Forwarder struct {
	producer sarama.SyncProducer
	topic    string
	logger   interfaces.Logger
}

// ProducerConfig is the producer configuration used by NewForwarder.
func ProducerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	return config
}

// NewForwarder dials brokers and returns a forwarder for topic.
func NewForwarder(brokers []string, topic string, logger interfaces.Logger) (*Forwarder, error) {
	producer, err := sarama.NewSyncProducer(brokers, ProducerConfig("catalog"))
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return NewForwarderWithProducer(producer, topic, logger), nil
}

// NewForwarderWithProducer wraps an existing producer.
func NewForwarderWithProducer(producer sarama.SyncProducer, topic string, logger interfaces.Logger) *Forwarder {
	return &Forwarder{producer: producer, topic: topic, logger: logger}
}

func (f *Forwarder) EventType() string {
	return events.AllEvents
}

// Handle sends the event envelope. SyncProducer has no context support so
// ctx is only checked before sending.
func (f *Forwarder) Handle(ctx context.Context, event interfaces.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, err := events.NewEnvelope(event)
	if err != nil {
		return err
	}
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: f.topic,
		Key:   sarama.StringEncoder(env.AggregateID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(env.Type)},
			{Key: []byte("event_id"), Value: []byte(env.ID)},
		},
	}

	partition, offset, err := f.producer.SendMessage(msg)
	if err != nil {
		f.logger.Error("Failed to forward event",
			interfaces.String("event_type", env.Type),
			interfaces.String("topic", f.topic),
			interfaces.Error(err))
		return fmt.Errorf("sending message: %w", err)
	}

	f.logger.Debug("Event forwarded",
		interfaces.String("event_type", env.Type),
		interfaces.Any("partition", partition),
		interfaces.Int64("offset", offset))
	return nil
}

// Close closes the producer.
func (f *Forwarder) Close() error {
	return f.producer.Close()
}
