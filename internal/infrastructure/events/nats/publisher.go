package nats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/narwhalmedia/catalog/pkg/events"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// Publisher is the part of jetstream.JetStream the forwarder needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Forwarder relays every event it handles to JetStream. Subscribe it to
// events.AllEvents on the in-memory bus.
type Forwarder struct {
	js      Publisher
	timeout time.Duration
	logger  interfaces.Logger
}

// NewForwarder creates a forwarder.
func NewForwarder(js Publisher, logger interfaces.Logger) *Forwarder {
	return &Forwarder{js: js, timeout: 5 * time.Second, logger: logger}
}

// Subject maps an event type to its subject. Event types already carry
// the catalog prefix.
func Subject(eventType string) string {
	if strings.HasPrefix(eventType, SubjectPrefix+".") {
		return eventType
	}
	return SubjectPrefix + "." + eventType
}

func (f *Forwarder) EventType() string {
	return events.AllEvents
}

// Handle publishes the event with its envelope id as deduplication id.
func (f *Forwarder) Handle(ctx context.Context, event interfaces.Event) error {
	env, err := events.NewEnvelope(event)
	if err != nil {
		return err
	}
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	subject := Subject(event.EventType())
	ack, err := f.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(env.ID))
	if err != nil {
		f.logger.Error("Failed to forward event",
			interfaces.String("event_type", event.EventType()),
			interfaces.String("subject", subject),
			interfaces.Error(err))
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	f.logger.Debug("Event forwarded",
		interfaces.String("event_type", event.EventType()),
		interfaces.String("stream", ack.Stream),
		interfaces.Any("sequence", ack.Sequence))
	return nil
}
