package queue

import (
	"encoding/json"
	"time"
)

// TypePropertyStatusChanged is sent when a property's derived status moves.
const TypePropertyStatusChanged = "property.status_changed"

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Type           string    `json:"type"`
	PropertyID     string    `json:"propertyId"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus"`
	OccurredAt     time.Time `json:"occurredAt"`
	Version        int       `json:"version"`
}

// StatusChanged builds a status-change message for a property.
func StatusChanged(propertyID, previous, current string, at time.Time) Message {
	return Message{
		Type:           TypePropertyStatusChanged,
		PropertyID:     propertyID,
		Status:         current,
		PreviousStatus: previous,
		OccurredAt:     at.UTC(),
		Version:        1,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
