package ws

import (
	"time"

	"space-racer/backend/internal/game"
	"space-racer/backend/internal/world"
)

const (
	// Server to client
	MessageTypeInfo  = "info"
	MessageTypeTrack = "track"
	MessageTypeFrame = "frame"
	MessageTypeEvent = "event"
	MessageTypeError = "error"

	// Client to server
	MessageTypeKey     = "key"
	MessageTypeRestart = "restart"
	MessageTypePause   = "pause"
	MessageTypeResume  = "resume"

	// Both directions
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// InfoMessage greets a client and tells it whether its keys drive the race.
type InfoMessage struct {
	Type       string `json:"type" msgpack:"type"`
	Message    string `json:"message" msgpack:"message"`
	ClientID   uint64 `json:"client_id" msgpack:"client_id"`
	Controller bool   `json:"controller" msgpack:"controller"`
	Codec      string `json:"codec" msgpack:"codec"`
}

// TrackMessage describes the static scene once per connection.
type TrackMessage struct {
	Type               string      `json:"type" msgpack:"type"`
	Track              world.Track `json:"track" msgpack:"track"`
	Start              [3]float64  `json:"start" msgpack:"start"`
	ClockSeconds       int         `json:"clock_seconds" msgpack:"clock_seconds"`
	CollisionThreshold float64     `json:"collision_threshold" msgpack:"collision_threshold"`
}

// KeyMessage is a key-down or key-up for one action.
type KeyMessage struct {
	Type   string `json:"type" msgpack:"type"`
	Action string `json:"action" msgpack:"action"`
	Down   bool   `json:"down" msgpack:"down"`
}

// ControlMessage carries restart, pause and resume requests.
type ControlMessage struct {
	Type string `json:"type" msgpack:"type"`
}

type PingMessage struct {
	Type       string `json:"type" msgpack:"type"`
	ClientTime int64  `json:"client_time,omitempty" msgpack:"client_time,omitempty"`
	ServerTime int64  `json:"server_time,omitempty" msgpack:"server_time,omitempty"`
}

type PongMessage struct {
	Type       string `json:"type" msgpack:"type"`
	ClientTime int64  `json:"client_time" msgpack:"client_time"`
	ServerTime int64  `json:"server_time" msgpack:"server_time"`
}

// FrameMessage wraps one simulation snapshot.
type FrameMessage struct {
	Type       string        `json:"type" msgpack:"type"`
	ServerTime int64         `json:"server_time" msgpack:"server_time"`
	Frame      game.Snapshot `json:"frame" msgpack:"frame"`
}

// EventMessage mirrors a game.RaceEventSink call.
type EventMessage struct {
	Type         string           `json:"type" msgpack:"type"`
	Kind         string           `json:"kind" msgpack:"kind"`
	PickupKind   game.PickupKind  `json:"pickup_kind,omitempty" msgpack:"pickup_kind,omitempty"`
	Slot         int              `json:"slot,omitempty" msgpack:"slot,omitempty"`
	Obstacle     int              `json:"obstacle,omitempty" msgpack:"obstacle,omitempty"`
	Velocity     float64          `json:"velocity,omitempty" msgpack:"velocity,omitempty"`
	Position     *[3]float64      `json:"position,omitempty" msgpack:"position,omitempty"`
	ClockExpired bool             `json:"clock_expired,omitempty" msgpack:"clock_expired,omitempty"`
	Result       *game.RaceResult `json:"result,omitempty" msgpack:"result,omitempty"`
	ServerTime   int64            `json:"server_time" msgpack:"server_time"`
}

type ErrorMessage struct {
	Type    string `json:"type" msgpack:"type"`
	Message string `json:"message" msgpack:"message"`
}

// Event kinds carried by EventMessage.
const (
	EventPickup   = "pickup"
	EventHit      = "hit"
	EventOffTrack = "offtrack"
	EventRaceOver = "race_over"
)

// GetCurrentServerTime returns unix time in milliseconds.
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

func NewInfoMessage(message string, clientID uint64, controller bool, codec string) *InfoMessage {
	return &InfoMessage{
		Type:       MessageTypeInfo,
		Message:    message,
		ClientID:   clientID,
		Controller: controller,
		Codec:      codec,
	}
}

func NewPongMessage(clientTime int64) *PongMessage {
	return &PongMessage{
		Type:       MessageTypePong,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
}

func NewFrameMessage(snapshot game.Snapshot) *FrameMessage {
	return &FrameMessage{
		Type:       MessageTypeFrame,
		ServerTime: GetCurrentServerTime(),
		Frame:      snapshot,
	}
}

func NewEventMessage(kind string) *EventMessage {
	return &EventMessage{
		Type:       MessageTypeEvent,
		Kind:       kind,
		ServerTime: GetCurrentServerTime(),
	}
}

func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{Type: MessageTypeError, Message: message}
}
