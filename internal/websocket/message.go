package websocket

import (
	"encoding/json"
	"time"

	"github.com/patrykmil/passy/internal/domain"
)

type MessageType string

const (
	TypeEvent MessageType = "event"
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

type Message struct {
	Type      MessageType      `json:"type"`
	Event     domain.EventType `json:"event,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func NewEventMessage(event *domain.Event) (*Message, error) {
	msg, err := NewMessage(TypeEvent, event.Payload)
	if err != nil {
		return nil, err
	}
	msg.Event = event.Type
	return msg, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
