package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"space-racer/backend/internal/game"
	"space-racer/backend/internal/input"
	"space-racer/backend/internal/logging"
	"space-racer/backend/internal/transport/ws"
	"space-racer/backend/internal/world"
)

// Bot drives the race over the websocket with the autopilot.
type Bot struct {
	ID        string
	ServerURL string
	Duration  time.Duration
	Races     int

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu         sync.Mutex
	track      world.Track
	controller bool
	held       map[input.Action]bool

	Stats  BotStats
	logger zerolog.Logger
}

// BotStats is reported when the bot exits.
type BotStats struct {
	mu             sync.Mutex
	StartTime      time.Time
	Frames         int
	KeysSent       int
	Events         map[string]int
	RacesFinished  int
	BestScore      int
	TotalScore     int
	Errors         int
	ServerMessages int
}

func NewBot(id, serverURL string, duration time.Duration, races int, logger zerolog.Logger) *Bot {
	return &Bot{
		ID:        id,
		ServerURL: serverURL,
		Duration:  duration,
		Races:     races,
		track:     world.DefaultTrack(),
		held:      make(map[input.Action]bool),
		Stats: BotStats{
			StartTime: time.Now(),
			Events:    make(map[string]int),
		},
		logger: logger.With().Str("bot", id).Logger(),
	}
}

func (b *Bot) Connect() error {
	u, err := url.Parse(b.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}

	b.conn = conn
	b.logger.Info().Str("url", u.String()).Msg("connected")
	return nil
}

func (b *Bot) Disconnect() {
	if b.conn == nil {
		return
	}

	b.writeMu.Lock()
	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	b.writeMu.Unlock()
	b.conn.Close()
}

func (b *Bot) write(v interface{}) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(v)
}

// setKey sends a key message only when the held state changes.
func (b *Bot) setKey(action input.Action, down bool) error {
	b.mu.Lock()
	if b.held[action] == down {
		b.mu.Unlock()
		return nil
	}
	b.held[action] = down
	b.mu.Unlock()

	b.Stats.mu.Lock()
	b.Stats.KeysSent++
	b.Stats.mu.Unlock()

	return b.write(ws.KeyMessage{Type: ws.MessageTypeKey, Action: string(action), Down: down})
}

func (b *Bot) steer(frame game.Snapshot) error {
	b.mu.Lock()
	track, controller := b.track, b.controller
	b.mu.Unlock()
	if !controller || frame.Phase != game.PhaseRacing {
		return nil
	}

	d := Steer(frame.Position, frame.Heading, track)
	return errors.Join(
		b.setKey(input.Forward, d.Forward),
		b.setKey(input.TurnLeft, d.TurnLeft),
		b.setKey(input.TurnRight, d.TurnRight),
	)
}

// handleMessage decodes one server message; it returns done once the bot has
// finished the requested number of races.
func (b *Bot) handleMessage(frameType int, data []byte) (done bool, err error) {
	codec := ws.CodecFor(frameType)

	var base struct {
		Type string `json:"type" msgpack:"type"`
	}
	if err := codec.Unmarshal(data, &base); err != nil {
		return false, fmt.Errorf("decoding message: %w", err)
	}

	b.Stats.mu.Lock()
	b.Stats.ServerMessages++
	b.Stats.mu.Unlock()

	switch base.Type {
	case ws.MessageTypeInfo:
		var msg ws.InfoMessage
		if err := codec.Unmarshal(data, &msg); err != nil {
			return false, err
		}
		b.mu.Lock()
		b.controller = msg.Controller
		b.mu.Unlock()
		b.logger.Info().Bool("controller", msg.Controller).Str("codec", msg.Codec).Msg(msg.Message)

	case ws.MessageTypeTrack:
		var msg ws.TrackMessage
		if err := codec.Unmarshal(data, &msg); err != nil {
			return false, err
		}
		b.mu.Lock()
		b.track = msg.Track
		b.mu.Unlock()
		b.logger.Debug().Float64("inner", msg.Track.InnerRadius).Float64("outer", msg.Track.OuterRadius).Msg("track")

	case ws.MessageTypeFrame:
		var msg ws.FrameMessage
		if err := codec.Unmarshal(data, &msg); err != nil {
			return false, err
		}
		b.Stats.mu.Lock()
		b.Stats.Frames++
		b.Stats.mu.Unlock()
		return false, b.steer(msg.Frame)

	case ws.MessageTypeEvent:
		var msg ws.EventMessage
		if err := codec.Unmarshal(data, &msg); err != nil {
			return false, err
		}
		return b.handleEvent(msg)

	case ws.MessageTypePing:
		var msg ws.PingMessage
		if err := codec.Unmarshal(data, &msg); err != nil {
			return false, err
		}
		return false, b.write(ws.PongMessage{
			Type:       ws.MessageTypePong,
			ClientTime: time.Now().UnixMilli(),
			ServerTime: msg.ServerTime,
		})

	case ws.MessageTypeError:
		var msg ws.ErrorMessage
		if err := codec.Unmarshal(data, &msg); err != nil {
			return false, err
		}
		b.logger.Warn().Str("error", msg.Message).Msg("server rejected a message")
		b.Stats.mu.Lock()
		b.Stats.Errors++
		b.Stats.mu.Unlock()
	}

	return false, nil
}

func (b *Bot) handleEvent(msg ws.EventMessage) (bool, error) {
	b.Stats.mu.Lock()
	b.Stats.Events[msg.Kind]++
	if msg.Kind != ws.EventRaceOver || msg.Result == nil {
		b.Stats.mu.Unlock()
		return false, nil
	}

	b.Stats.RacesFinished++
	b.Stats.TotalScore += msg.Result.Score
	if msg.Result.Score > b.Stats.BestScore {
		b.Stats.BestScore = msg.Result.Score
	}
	finished := b.Stats.RacesFinished
	b.Stats.mu.Unlock()

	b.logger.Info().
		Int("score", msg.Result.Score).
		Int("collisions", msg.Result.Collisions).
		Bool("timed_out", msg.Result.TimedOut).
		Msg("race over")

	if b.Races > 0 && finished >= b.Races {
		return true, nil
	}

	b.mu.Lock()
	for a := range b.held {
		b.held[a] = false
	}
	b.mu.Unlock()
	return false, b.write(ws.ControlMessage{Type: ws.MessageTypeRestart})
}

// Run drives races until ctx is cancelled, the duration elapses or the race
// budget is spent.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Connect(); err != nil {
		return err
	}
	defer b.Disconnect()

	if b.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Duration)
		defer cancel()
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			frameType, data, err := b.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			done, err := b.handleMessage(frameType, data)
			if err != nil {
				b.logger.Debug().Err(err).Msg("handling message")
				b.Stats.mu.Lock()
				b.Stats.Errors++
				b.Stats.mu.Unlock()
			}
			if done {
				readErr <- nil
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		b.logger.Info().Msg("stopping")
		return nil
	case err := <-readErr:
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return fmt.Errorf("read: %w", err)
		}
		return nil
	}
}

func (b *Bot) PrintStats() {
	b.Stats.mu.Lock()
	defer b.Stats.mu.Unlock()

	elapsed := time.Since(b.Stats.StartTime)
	ev := b.logger.Info().
		Dur("uptime", elapsed).
		Int("frames", b.Stats.Frames).
		Int("keys_sent", b.Stats.KeysSent).
		Int("races", b.Stats.RacesFinished).
		Int("best_score", b.Stats.BestScore).
		Int("errors", b.Stats.Errors)
	if elapsed > 0 {
		ev = ev.Float64("frames_per_sec", float64(b.Stats.Frames)/elapsed.Seconds())
	}
	if b.Stats.RacesFinished > 0 {
		ev = ev.Float64("avg_score", float64(b.Stats.TotalScore)/float64(b.Stats.RacesFinished))
	}
	for kind, n := range b.Stats.Events {
		ev = ev.Int("event_"+kind, n)
	}
	ev.Msg("bot stats")
}

func main() {
	var (
		serverURL = flag.String("url", "ws://localhost:8080/ws", "race server websocket URL")
		botID     = flag.String("id", "bot1", "bot name used in logs")
		duration  = flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
		races     = flag.Int("races", 1, "stop after this many finished races (0 keeps restarting)")
		logLevel  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := logging.New(*logLevel, logging.FormatConsole, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bot := NewBot(*botID, *serverURL, *duration, *races, logger)
	err := bot.Run(ctx)
	bot.PrintStats()
	if err != nil {
		logger.Error().Err(err).Msg("bot failed")
		os.Exit(1)
	}
}
