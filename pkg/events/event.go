package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// Envelope is the wire form of an event sent to a broker.
type Envelope struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Timestamp   int64           `json:"timestamp"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEnvelope encodes event into an envelope with a fresh id.
func NewEnvelope(event interfaces.Event) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event.EventType(), err)
	}
	return &Envelope{
		ID:          uuid.New().String(),
		Type:        event.EventType(),
		Timestamp:   event.Timestamp(),
		AggregateID: event.AggregateID(),
		Payload:     payload,
	}, nil
}

// Marshal returns the JSON encoding of the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
