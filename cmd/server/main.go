package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"space-racer/backend/internal/config"
	"space-racer/backend/internal/game"
	"space-racer/backend/internal/input"
	"space-racer/backend/internal/logging"
	"space-racer/backend/internal/monitoring"
	"space-racer/backend/internal/telemetry"
	"space-racer/backend/internal/transport/ws"
)

func main() {
	configDir := flag.String("config", ".", "directory holding "+config.FileName)
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		bootLogger := logging.New("info", logging.FormatConsole, os.Stderr)
		bootLogger.Fatal().Err(err).Msg("loading config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if used := config.ConfigFileUsed(); used != "" {
		logger.Info().Str("file", used).Msg("config loaded")
	} else {
		logger.Info().Msg("no config file, using defaults and environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger.Info().Uint64("seed", seed).Msg("race seed")

	session, err := game.NewRaceSession(cfg.Race, rand.New(rand.NewPCG(seed, seed>>1|1)), logger)
	if err != nil {
		return err
	}

	codec, err := ws.NewCodec(cfg.Server.Codec)
	if err != nil {
		return err
	}

	keys := input.NewKeyState()
	gameTicker := game.NewGameTicker(cfg.Ticker.FPS, logger)

	raceSystem := game.NewRaceSystem(session, keys, gameTicker, logger)
	syncSystem := game.NewNetworkSyncSystem(session, cfg.Server.BroadcastInterval, logger)
	metricsSystem := game.NewGameMetricsSystem(gameTicker, session, cfg.Ticker.MetricsInterval, logger)

	wsServer := ws.NewWSServer(codec, keys, cfg.Race, logger)
	wsServer.SetRaceControls(raceSystem, gameTicker)
	if cfg.Server.NetworkProfile != "" {
		conditions, err := ws.NetworkProfile(cfg.Server.NetworkProfile)
		if err != nil {
			return err
		}
		wsServer.SetNetworkConditions(conditions)
	}
	syncSystem.SetBroadcaster(wsServer)

	sinks := game.MultiSink{wsServer}
	monitor := monitoring.New(gameTicker, raceSystem, logger)
	monitor.AddSection("websocket", wsServer)

	if cfg.Telemetry.Enabled {
		tm, err := telemetry.NewManager(cfg.Telemetry.MaxEntries, cfg.Telemetry.PrintInterval, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, tm)
		gameTicker.RegisterSystem(tm)
		monitor.AddSection("telemetry", tm)
		monitor.SetEventLog(tm)
	}
	session.SetEventSink(sinks)

	gameTicker.RegisterSystem(raceSystem)
	gameTicker.RegisterSystem(syncSystem)
	gameTicker.RegisterSystem(metricsSystem)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.HandleWS)
	monitor.Register(mux)
	if _, err := os.Stat(cfg.Server.StaticDir); err != nil {
		logger.Warn().Str("dir", cfg.Server.StaticDir).Msg("static directory missing, only /ws and monitoring are served")
	}
	mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := gameTicker.Start(); err != nil {
		return err
	}
	defer gameTicker.Stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("listen", cfg.Server.Listen).
			Str("codec", codec.Name()).
			Int("fps", cfg.Ticker.FPS).
			Msg("race server listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
