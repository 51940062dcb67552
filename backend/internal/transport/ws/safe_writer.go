package ws

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 5 * time.Second

// SafeWriter serialises writes to one websocket connection. Reads are not
// guarded; only the connection's read loop may call ReadMessage.
type SafeWriter struct {
	conn         *websocket.Conn
	mutex        sync.Mutex
	writeTimeout time.Duration
}

func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{
		conn:         conn,
		writeTimeout: DefaultWriteTimeout,
	}
}

func (w *SafeWriter) WriteJSON(v interface{}) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.setDeadline()
	return w.conn.WriteJSON(v)
}

func (w *SafeWriter) WriteMessage(messageType int, data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.setDeadline()
	return w.conn.WriteMessage(messageType, data)
}

// WriteEncoded marshals v with codec and writes it as the codec's frame type.
func (w *SafeWriter) WriteEncoded(codec Codec, v interface{}) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteMessage(codec.FrameType(), data)
}

func (w *SafeWriter) setDeadline() {
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
}

func (w *SafeWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}

func (w *SafeWriter) ReadMessage() (int, []byte, error) {
	return w.conn.ReadMessage()
}

func (w *SafeWriter) RemoteAddr() net.Addr {
	return w.conn.RemoteAddr()
}
