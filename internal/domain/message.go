package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire message kinds. The protocol is one JSON object per frame with a
// mandatory "type" tag; inbound frames are decoded once at the transport
// boundary into the closed set of variants below.
const (
	MessageTypeInit  = "init"
	MessageTypeEvent = "event"
	MessageTypeError = "error"
)

var ErrMalformedMessage = errors.New("malformed message")

// InboundMessage is the closed set of client-to-server frames.
type InboundMessage interface{ inboundMessage() }

// InitMessage registers the sending connection for a device.
type InitMessage struct {
	UserID string
}

func (InitMessage) inboundMessage() {}

// DecodeInbound parses a raw frame into its tagged variant. Unknown or
// missing type tags are malformed.
func DecodeInbound(data []byte) (InboundMessage, error) {
	var frame struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch frame.Type {
	case MessageTypeInit:
		if frame.UserID == "" {
			return nil, fmt.Errorf("%w: init without userId", ErrMalformedMessage)
		}
		return InitMessage{UserID: frame.UserID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, frame.Type)
	}
}

// EventMessage delivers the currently active program event to a device.
type EventMessage struct {
	Type  string `json:"type"`
	Event *Event `json:"event"`
}

// eventPayload is the wire shape of an Event.
type eventPayload struct {
	ID        string          `json:"id"`
	ConcertID string          `json:"concertId"`
	Type      string          `json:"type"`
	Label     string          `json:"label"`
	Payload   json.RawMessage `json:"payload"`
	Position  int             `json:"position"`
}

func (m EventMessage) MarshalJSON() ([]byte, error) {
	payload := m.Event.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	return json.Marshal(struct {
		Type  string       `json:"type"`
		Event eventPayload `json:"event"`
	}{
		Type: MessageTypeEvent,
		Event: eventPayload{
			ID:        m.Event.ID.String(),
			ConcertID: m.Event.ConcertID.String(),
			Type:      m.Event.Type,
			Label:     m.Event.Label,
			Payload:   payload,
			Position:  m.Event.Position,
		},
	})
}

// NewEventMessage wraps an event for delivery.
func NewEventMessage(event *Event) EventMessage {
	return EventMessage{Type: MessageTypeEvent, Event: event}
}

// ErrorMessage reports a protocol error to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorMessage wraps a human-readable protocol error.
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: MessageTypeError, Message: message}
}
