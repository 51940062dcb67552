// Command terminal runs a race locally and draws it in the terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"space-racer/backend/internal/audio"
	"space-racer/backend/internal/config"
	"space-racer/backend/internal/game"
	"space-racer/backend/internal/input"
	"space-racer/backend/internal/logging"
	"space-racer/backend/internal/tui"
)

func main() {
	var (
		configDir = flag.String("config", ".", "directory holding "+config.FileName)
		logFile   = flag.String("log", "", "write logs to this file (default: discard)")
		seed      = flag.Uint64("seed", 0, "race seed (0 uses the config or the clock)")
		hold      = flag.Duration("hold", 500*time.Millisecond, "how long a key press keeps an action held")
		mute      = flag.Bool("mute", false, "disable sound")
	)
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	logger := logging.New(cfg.LogLevel, logging.FormatJSON, out)

	if *seed != 0 {
		cfg.Seed = *seed
	}
	if err := run(cfg, *hold, *mute, logger); err != nil {
		logger.Error().Err(err).Msg("terminal client failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, hold time.Duration, mute bool, logger zerolog.Logger) error {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger.Info().Uint64("seed", seed).Msg("race seed")

	session, err := game.NewRaceSession(cfg.Race, rand.New(rand.NewPCG(seed, seed>>1|1)), logger)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	player := audio.NewPlayer(logger)
	if !mute {
		if err := player.Start(); err != nil {
			logger.Warn().Err(err).Msg("audio unavailable, continuing without sound")
		}
	}
	defer player.Stop()
	session.SetEventSink(player)

	keys := input.NewKeyState()
	latch := tui.NewKeyLatch(keys, hold)
	gameTicker := game.NewGameTicker(cfg.Ticker.FPS, logger)

	raceSystem := game.NewRaceSystem(session, keys, gameTicker, logger)
	renderSystem := tui.NewRenderSystem(session, tui.NewRenderer(screen, cfg.Race.Track), latch, logger)
	gameTicker.RegisterSystem(raceSystem)
	gameTicker.RegisterSystem(renderSystem)

	if err := gameTicker.Start(); err != nil {
		return err
	}
	defer gameTicker.Stop()

	paused := false
	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil

		case *tcell.EventResize:
			screen.Sync()
			if paused {
				renderSystem.Redraw(true)
			}

		case *tcell.EventKey:
			action, command := tui.Translate(ev)
			if action != "" && !paused {
				latch.Press(action, time.Now())
			}

			switch command {
			case tui.CommandQuit:
				logger.Info().Msg("quit")
				return nil
			case tui.CommandCamera:
				latch.Press(input.ToggleCamera, time.Now())
			case tui.CommandRestart:
				latch.ReleaseAll()
				raceSystem.RequestRestart()
				if paused {
					paused = false
					gameTicker.Resume()
				}
			case tui.CommandPause:
				paused = !paused
				if paused {
					latch.ReleaseAll()
					gameTicker.Pause()
					renderSystem.Redraw(true)
				} else {
					gameTicker.Resume()
				}
			}
		}
	}
}
