package ws

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMessage     = errors.New("invalid message")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrNotController      = errors.New("client does not control the race")
)

type baseMessage struct {
	Type string `json:"type" msgpack:"type"`
}

// ParseMessage decodes an incoming client message into its concrete type.
func ParseMessage(codec Codec, data []byte) (interface{}, error) {
	var base baseMessage
	if err := codec.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	var msg interface{}
	switch base.Type {
	case MessageTypeKey:
		msg = &KeyMessage{}
	case MessageTypeRestart, MessageTypePause, MessageTypeResume:
		msg = &ControlMessage{}
	case MessageTypePing:
		msg = &PingMessage{}
	case MessageTypePong:
		msg = &PongMessage{}
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, base.Type)
	}

	if err := codec.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("error parsing %s message: %w", base.Type, err)
	}
	return msg, nil
}

// GetMessageType returns the type field of a parsed message.
func GetMessageType(message interface{}) string {
	switch msg := message.(type) {
	case *KeyMessage:
		return msg.Type
	case *ControlMessage:
		return msg.Type
	case *PingMessage:
		return msg.Type
	case *PongMessage:
		return msg.Type
	default:
		return ""
	}
}
