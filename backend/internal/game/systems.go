package game

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"space-racer/backend/internal/input"
)

// KeySource hands the race the keys held right now.
type KeySource interface {
	Snapshot() input.State
}

// RaceSystem advances the race session by one frame per tick. Restart
// requests from other goroutines are queued and applied before the next
// frame.
type RaceSystem struct {
	name       string
	priority   int
	session    *RaceSession
	keys       KeySource
	gameTicker *GameTicker
	logger     zerolog.Logger

	restart chan struct{}
}

func NewRaceSystem(session *RaceSession, keys KeySource, gameTicker *GameTicker, logger zerolog.Logger) *RaceSystem {
	return &RaceSystem{
		name:       "RaceSystem",
		priority:   10,
		session:    session,
		keys:       keys,
		gameTicker: gameTicker,
		logger:     logger.With().Str("component", "RaceSystem").Logger(),
		restart:    make(chan struct{}, 1),
	}
}

// RequestRestart asks for a fresh race. Multiple requests between two frames
// collapse into one.
func (rs *RaceSystem) RequestRestart() {
	select {
	case rs.restart <- struct{}{}:
	default:
	}
}

func (rs *RaceSystem) Update(deltaTime time.Duration) error {
	select {
	case <-rs.restart:
		if err := rs.session.Restart(); err != nil {
			return fmt.Errorf("restart race: %w", err)
		}
	default:
	}

	rs.session.Frame(rs.keys.Snapshot(), deltaTime.Seconds(), rs.gameTicker.Elapsed().Seconds())
	return nil
}

func (rs *RaceSystem) GetName() string {
	return rs.name
}

func (rs *RaceSystem) GetPriority() int {
	return rs.priority
}

// FrameBroadcaster sends a finished frame to connected clients.
type FrameBroadcaster interface {
	BroadcastFrame(snapshot Snapshot) error
}

// NetworkSyncSystem pushes session snapshots to clients at most once per
// broadcastInterval.
type NetworkSyncSystem struct {
	name          string
	priority      int
	session       *RaceSession
	logger        zerolog.Logger
	lastBroadcast time.Time

	broadcastInterval time.Duration
	broadcaster       FrameBroadcaster
}

func NewNetworkSyncSystem(session *RaceSession, broadcastInterval time.Duration, logger zerolog.Logger) *NetworkSyncSystem {
	return &NetworkSyncSystem{
		name:              "NetworkSyncSystem",
		priority:          100,
		session:           session,
		logger:            logger.With().Str("component", "NetworkSyncSystem").Logger(),
		broadcastInterval: broadcastInterval,
	}
}

func (nss *NetworkSyncSystem) SetBroadcaster(broadcaster FrameBroadcaster) {
	nss.broadcaster = broadcaster
}

func (nss *NetworkSyncSystem) Update(deltaTime time.Duration) error {
	if nss.broadcaster == nil {
		return nil
	}

	now := time.Now()
	if now.Sub(nss.lastBroadcast) < nss.broadcastInterval {
		return nil
	}
	nss.lastBroadcast = now

	if err := nss.broadcaster.BroadcastFrame(nss.session.Snapshot()); err != nil {
		return fmt.Errorf("broadcast frame: %w", err)
	}
	return nil
}

func (nss *NetworkSyncSystem) GetName() string {
	return nss.name
}

func (nss *NetworkSyncSystem) GetPriority() int {
	return nss.priority
}

// GameMetricsSystem logs loop health and race progress periodically.
type GameMetricsSystem struct {
	name       string
	priority   int
	gameTicker *GameTicker
	session    *RaceSession
	logger     zerolog.Logger

	lastMetricsLog  time.Time
	metricsInterval time.Duration
}

func NewGameMetricsSystem(gameTicker *GameTicker, session *RaceSession, metricsInterval time.Duration, logger zerolog.Logger) *GameMetricsSystem {
	return &GameMetricsSystem{
		name:            "GameMetricsSystem",
		priority:        200,
		gameTicker:      gameTicker,
		session:         session,
		logger:          logger.With().Str("component", "GameMetrics").Logger(),
		metricsInterval: metricsInterval,
	}
}

func (gms *GameMetricsSystem) Update(deltaTime time.Duration) error {
	now := time.Now()
	if now.Sub(gms.lastMetricsLog) < gms.metricsInterval {
		return nil
	}
	gms.lastMetricsLog = now

	actual := gms.gameTicker.ActualFPS()
	target := gms.gameTicker.TargetFPS()
	hud := gms.session.HUD()

	gms.logger.Info().
		Float64("fps", actual).
		Int("targetFps", target).
		Uint64("ticks", gms.gameTicker.GetTickCount()).
		Dur("avgTick", gms.gameTicker.AverageTickTime()).
		Str("phase", string(gms.session.Phase())).
		Int("seconds", hud.Seconds).
		Int("score", hud.Score).
		Int("collisions", gms.session.Collisions()).
		Msg("race metrics")

	if actual > 0 && actual < float64(target)*0.9 {
		gms.logger.Warn().Float64("fps", actual).Msg("frame rate below target")
	}
	return nil
}

func (gms *GameMetricsSystem) GetName() string {
	return gms.name
}

func (gms *GameMetricsSystem) GetPriority() int {
	return gms.priority
}
