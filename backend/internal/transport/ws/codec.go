package ws

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec names accepted by NewCodec.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Codec turns outgoing messages into websocket frames. JSON goes out as text
// frames and msgpack as binary frames.
type Codec interface {
	Name() string
	FrameType() int
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string                               { return CodecJSON }
func (jsonCodec) FrameType() int                             { return websocket.TextMessage }
func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                               { return CodecMsgpack }
func (msgpackCodec) FrameType() int                             { return websocket.BinaryMessage }
func (msgpackCodec) Marshal(v interface{}) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v interface{}) error { return msgpack.Unmarshal(data, v) }

// NewCodec looks a codec up by name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case CodecJSON, "":
		return jsonCodec{}, nil
	case CodecMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// CodecFor picks the decoder for an incoming frame: clients may send text
// (JSON) or binary (msgpack) regardless of what the server broadcasts.
func CodecFor(frameType int) Codec {
	if frameType == websocket.BinaryMessage {
		return msgpackCodec{}
	}
	return jsonCodec{}
}
