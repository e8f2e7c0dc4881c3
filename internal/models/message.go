package models

import (
	"encoding/json"
	"time"
)

// MessageType represents the type of a status stream message
type MessageType string

const (
	MessageTypeStatus  MessageType = "status"
	MessageTypeCommand MessageType = "command"
	MessageTypeError   MessageType = "error"
)

// Message is the envelope for all status stream and MQTT payloads
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      msgType,
		Payload:   payloadJSON,
		Timestamp: time.Now(),
	}, nil
}

// StatusMessage is the payload for MessageTypeStatus
type StatusMessage struct {
	Device *DeviceInfo  `json:"device"`
	Uptime int64        `json:"uptime"`
	Record *CycleRecord `json:"record"`
}

// ErrorMessage is the payload for MessageTypeError
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnmarshalPayload unmarshals the message payload into the provided struct
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}
