package ws

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"space-racer/backend/internal/game"
	"space-racer/backend/internal/input"
)

const (
	DefaultPingInterval = 2 * time.Second
	// DefaultSendBuffer is how many encoded messages may wait per client
	// before new ones are dropped.
	DefaultSendBuffer = 32
)

// MessageHandler handles one decoded client message.
type MessageHandler func(client *Client, message interface{}) error

// Restarter accepts restart requests; the race applies them between frames.
type Restarter interface {
	RequestRestart()
}

// Pauser stops and resumes the simulation clock.
type Pauser interface {
	Pause()
	Resume()
}

type outbound struct {
	frameType int
	data      []byte
	frame     bool
	// at is the earliest write time under simulated latency.
	at time.Time
}

// Client is one websocket connection. The oldest connected client controls
// the race; everyone else only watches.
type Client struct {
	ID   uint64
	Conn *SafeWriter

	send       chan outbound
	controller bool
	dropped    atomic.Uint64
	lost       atomic.Uint64
}

func (c *Client) enqueue(out outbound) bool {
	select {
	case c.send <- out:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// WSServer streams one race session to its clients and feeds the controlling
// client's keys into the shared KeyState.
type WSServer struct {
	upgrader     websocket.Upgrader
	codec        Codec
	keys         *input.KeyState
	track        TrackMessage
	handlers     map[string]MessageHandler
	pingInterval time.Duration
	sendBuffer   int

	restarter Restarter
	pauser    Pauser

	clients map[uint64]*Client
	nextID  uint64
	mu      sync.RWMutex

	lastFrame  []byte
	lastHUD    game.HUD
	lastPhase  game.Phase
	lastIndex  uint64
	frameMu    sync.RWMutex
	framesSent atomic.Uint64

	netsim NetworkConditions
	simMu  sync.RWMutex

	logger zerolog.Logger
}

// NewWSServer builds a server broadcasting with codec. cfg supplies the track
// description sent to every client on connect.
func NewWSServer(codec Codec, keys *input.KeyState, cfg game.Config, logger zerolog.Logger) *WSServer {
	server := &WSServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		codec: codec,
		keys:  keys,
		track: TrackMessage{
			Type:               MessageTypeTrack,
			Track:              cfg.Track,
			Start:              [3]float64(cfg.StartPosition()),
			ClockSeconds:       cfg.Clock.StartSeconds,
			CollisionThreshold: cfg.CollisionThreshold,
		},
		handlers:     make(map[string]MessageHandler),
		pingInterval: DefaultPingInterval,
		sendBuffer:   DefaultSendBuffer,
		clients:      make(map[uint64]*Client),
		logger:       logger.With().Str("component", "WSServer").Logger(),
	}

	server.RegisterHandler(MessageTypeKey, server.handleKey)
	server.RegisterHandler(MessageTypeRestart, server.handleRestart)
	server.RegisterHandler(MessageTypePause, server.handlePause)
	server.RegisterHandler(MessageTypeResume, server.handleResume)
	server.RegisterHandler(MessageTypePing, server.handlePing)
	server.RegisterHandler(MessageTypePong, server.handlePong)

	return server
}

func (s *WSServer) RegisterHandler(messageType string, handler MessageHandler) {
	s.handlers[messageType] = handler
}

// SetRaceControls wires restart and pause requests. Either may be nil, in
// which case the matching messages are rejected.
func (s *WSServer) SetRaceControls(restarter Restarter, pauser Pauser) {
	s.restarter = restarter
	s.pauser = pauser
}

// SetPingInterval changes the keepalive period; zero disables pings.
func (s *WSServer) SetPingInterval(interval time.Duration) {
	s.pingInterval = interval
}

// HandleWS upgrades the request and serves the connection until it closes.
func (s *WSServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	safeConn := NewSafeWriter(conn)
	client := s.addClient(safeConn)
	defer func() {
		s.removeClient(client)
		safeConn.Close()
	}()

	go s.writePump(client)

	log := s.logger.With().Uint64("client", client.ID).Stringer("remote", conn.RemoteAddr()).Logger()
	log.Info().Bool("controller", s.isController(client)).Msg("client connected")

	s.send(client, NewInfoMessage("connected to SpaceRacer", client.ID, s.isController(client), s.codec.Name()))
	s.send(client, &s.track)

	s.frameMu.RLock()
	if s.lastFrame != nil {
		s.deliver(s.NetworkConditions(), client, outbound{frameType: s.codec.FrameType(), data: s.lastFrame, frame: true})
	}
	s.frameMu.RUnlock()

	done := make(chan struct{})
	defer close(done)
	if s.pingInterval > 0 {
		go s.startPing(client, done)
	}

	for {
		frameType, data, err := safeConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			break
		}

		message, err := ParseMessage(CodecFor(frameType), data)
		if err != nil {
			log.Debug().Err(err).Msg("dropping message")
			s.send(client, NewErrorMessage(err.Error()))
			continue
		}

		messageType := GetMessageType(message)
		handler, ok := s.handlers[messageType]
		if !ok {
			log.Debug().Str("type", messageType).Msg("no handler registered")
			continue
		}
		if err := handler(client, message); err != nil {
			log.Debug().Err(err).Str("type", messageType).Msg("handler failed")
			s.send(client, NewErrorMessage(err.Error()))
		}
	}

	log.Info().
		Uint64("dropped", client.dropped.Load()).
		Uint64("lost", client.lost.Load()).
		Msg("client disconnected")
}

func (s *WSServer) addClient(conn *SafeWriter) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	client := &Client{
		ID:         s.nextID,
		Conn:       conn,
		send:       make(chan outbound, s.sendBuffer),
		controller: s.controllerLocked() == nil,
	}
	s.clients[client.ID] = client
	return client
}

// removeClient drops the client and, if it was driving, releases every key
// and hands control to the oldest remaining client.
func (s *WSServer) removeClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client.ID]; !ok {
		return
	}
	delete(s.clients, client.ID)
	close(client.send)

	if !client.controller {
		return
	}
	client.controller = false
	s.keys.ReleaseAll()

	ids := make([]uint64, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	next := s.clients[ids[0]]
	next.controller = true
	s.logger.Info().Uint64("client", next.ID).Msg("control handed over")
	s.sendLocked(next, NewInfoMessage("you now control the race", next.ID, true, s.codec.Name()))
}

func (s *WSServer) controllerLocked() *Client {
	for _, c := range s.clients {
		if c.controller {
			return c
		}
	}
	return nil
}

func (s *WSServer) isController(client *Client) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return client.controller
}

// writePump owns the connection's outgoing side until send is closed.
func (s *WSServer) writePump(client *Client) {
	for out := range client.send {
		if wait := time.Until(out.at); wait > 0 {
			time.Sleep(wait)
		}
		if err := client.Conn.WriteMessage(out.frameType, out.data); err != nil {
			s.logger.Debug().Err(err).Uint64("client", client.ID).Msg("write failed")
			// unblocks the read loop, which then removes the client
			client.Conn.Close()
			for range client.send {
			}
			return
		}
	}
}

// send encodes v with the server codec and queues it for one client.
func (s *WSServer) send(client *Client, v interface{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.sendLocked(client, v)
}

func (s *WSServer) sendLocked(client *Client, v interface{}) {
	if _, ok := s.clients[client.ID]; !ok {
		return
	}
	data, err := s.codec.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("encoding message")
		return
	}
	s.deliver(s.NetworkConditions(), client, outbound{frameType: s.codec.FrameType(), data: data})
}

func (s *WSServer) deliver(nc NetworkConditions, client *Client, out outbound) {
	out, ok := nc.shape(out, time.Now())
	if !ok {
		client.lost.Add(1)
		return
	}
	client.enqueue(out)
}

// broadcast queues v for every client without blocking.
func (s *WSServer) broadcast(v interface{}, frame bool) ([]byte, error) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := outbound{frameType: s.codec.FrameType(), data: data, frame: frame}
	nc := s.NetworkConditions()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		s.deliver(nc, c, out)
	}
	return data, nil
}

// BroadcastFrame sends the snapshot to every client and keeps it for clients
// that connect later. It satisfies game.FrameBroadcaster.
func (s *WSServer) BroadcastFrame(snapshot game.Snapshot) error {
	data, err := s.broadcast(NewFrameMessage(snapshot), true)
	if err != nil {
		return err
	}

	s.frameMu.Lock()
	s.lastFrame = data
	s.lastHUD = snapshot.HUD
	s.lastPhase = snapshot.Phase
	s.lastIndex = snapshot.Frame
	s.frameMu.Unlock()
	s.framesSent.Add(1)
	return nil
}

// The methods below satisfy game.RaceEventSink. They run inside a frame and
// only queue messages.

func (s *WSServer) PickupConsumed(kind game.PickupKind, slot int, pos mgl64.Vec3) {
	msg := NewEventMessage(EventPickup)
	msg.PickupKind = kind
	msg.Slot = slot
	p := [3]float64(pos)
	msg.Position = &p
	s.broadcastEvent(msg)
}

func (s *WSServer) ObstacleHit(index int, velocity float64) {
	msg := NewEventMessage(EventHit)
	msg.Obstacle = index
	msg.Velocity = velocity
	s.broadcastEvent(msg)
}

func (s *WSServer) OffTrack(pos mgl64.Vec3, clockExpired bool) {
	msg := NewEventMessage(EventOffTrack)
	p := [3]float64(pos)
	msg.Position = &p
	msg.ClockExpired = clockExpired
	s.broadcastEvent(msg)
}

func (s *WSServer) RaceOver(result game.RaceResult) {
	msg := NewEventMessage(EventRaceOver)
	msg.Result = &result
	s.broadcastEvent(msg)
}

func (s *WSServer) broadcastEvent(msg *EventMessage) {
	if _, err := s.broadcast(msg, false); err != nil {
		s.logger.Error().Err(err).Str("kind", msg.Kind).Msg("encoding event")
	}
}

// ClientCount is the number of connected clients.
func (s *WSServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Stats reports connection counters and the last broadcast HUD.
func (s *WSServer) Stats() map[string]interface{} {
	s.frameMu.RLock()
	hud, phase, frame := s.lastHUD, s.lastPhase, s.lastIndex
	s.frameMu.RUnlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var dropped, lost uint64
	var controller uint64
	for _, c := range s.clients {
		dropped += c.dropped.Load()
		lost += c.lost.Load()
		if c.controller {
			controller = c.ID
		}
	}

	return map[string]interface{}{
		"clients":     len(s.clients),
		"controller":  controller,
		"codec":       s.codec.Name(),
		"frames_sent": s.framesSent.Load(),
		"dropped":     dropped,
		"lost":        lost,
		"netsim":      s.NetworkConditions().Enabled(),
		"last_frame":  frame,
		"phase":       phase,
		"hud":         hud,
	}
}
