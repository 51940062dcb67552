package ws

import (
	"fmt"
	"time"

	"space-racer/backend/internal/input"
)

func (s *WSServer) handleKey(client *Client, message interface{}) error {
	keyMsg, ok := message.(*KeyMessage)
	if !ok {
		return ErrInvalidMessage
	}
	if !s.isController(client) {
		return ErrNotController
	}

	action, err := input.ParseAction(keyMsg.Action)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	s.keys.Set(action, keyMsg.Down)
	return nil
}

func (s *WSServer) handleRestart(client *Client, message interface{}) error {
	if !s.isController(client) {
		return ErrNotController
	}
	if s.restarter == nil {
		return fmt.Errorf("restart is not available")
	}

	s.logger.Info().Uint64("client", client.ID).Msg("restart requested")
	s.restarter.RequestRestart()
	return nil
}

func (s *WSServer) handlePause(client *Client, message interface{}) error {
	if !s.isController(client) {
		return ErrNotController
	}
	if s.pauser == nil {
		return fmt.Errorf("pause is not available")
	}

	s.pauser.Pause()
	return nil
}

func (s *WSServer) handleResume(client *Client, message interface{}) error {
	if !s.isController(client) {
		return ErrNotController
	}
	if s.pauser == nil {
		return fmt.Errorf("resume is not available")
	}

	s.pauser.Resume()
	return nil
}

func (s *WSServer) handlePing(client *Client, message interface{}) error {
	pingMsg, ok := message.(*PingMessage)
	if !ok {
		return ErrInvalidMessage
	}

	s.send(client, NewPongMessage(pingMsg.ClientTime))
	return nil
}

// handlePong logs the round trip of a server ping.
func (s *WSServer) handlePong(client *Client, message interface{}) error {
	pongMsg, ok := message.(*PongMessage)
	if !ok {
		return ErrInvalidMessage
	}
	if pongMsg.ServerTime > 0 {
		s.logger.Debug().
			Uint64("client", client.ID).
			Int64("rtt_ms", GetCurrentServerTime()-pongMsg.ServerTime).
			Msg("pong")
	}
	return nil
}

// startPing sends keepalive pings until done is closed.
func (s *WSServer) startPing(client *Client, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.send(client, &PingMessage{
				Type:       MessageTypePing,
				ServerTime: GetCurrentServerTime(),
			})
		}
	}
}
