package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"space-racer/backend/internal/game"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "./web", cfg.Server.StaticDir)
	assert.Equal(t, "json", cfg.Server.Codec)
	assert.Equal(t, 33*time.Millisecond, cfg.Server.BroadcastInterval)
	assert.Empty(t, cfg.Server.NetworkProfile)
	assert.Equal(t, 60, cfg.Ticker.FPS)
	assert.Equal(t, 30*time.Second, cfg.Ticker.MetricsInterval)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 200, cfg.Telemetry.MaxEntries)
	assert.Equal(t, uint64(0), cfg.Seed)
	assert.Equal(t, game.DefaultConfig(), cfg.Race)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"server": { "listen": "127.0.0.1:9000", "codec": "msgpack", "broadcastInterval": "100ms", "networkProfile": "wifi_poor" },
		"ticker": { "fps": 30 },
		"race": {
			"seed": 42,
			"vehicle": { "maxSpeed": 2.5 },
			"clock": { "startSeconds": 45, "accumulateResidual": true },
			"pickups": { "coinActive": 2 }
		}
	}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, "msgpack", cfg.Server.Codec)
	assert.Equal(t, 100*time.Millisecond, cfg.Server.BroadcastInterval)
	assert.Equal(t, "wifi_poor", cfg.Server.NetworkProfile)
	assert.Equal(t, 30, cfg.Ticker.FPS)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 2.5, cfg.Race.Vehicle.MaxSpeed)
	assert.Equal(t, 0.02, cfg.Race.Vehicle.Acceleration)
	assert.Equal(t, 45, cfg.Race.Clock.StartSeconds)
	assert.True(t, cfg.Race.Clock.AccumulateResidual)
	assert.Equal(t, 2, cfg.Race.Pickups.CoinActive)
	assert.Equal(t, 70.0, cfg.Race.Track.InnerRadius)
	assert.Equal(t, filepath.Join(dir, FileName), ConfigFileUsed())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, game.DefaultConfig(), cfg.Race)
	assert.Equal(t, "", ConfigFileUsed())
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	_, err := Load(writeConfig(t, `{"logLevel": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("SPACERACER_SERVER_LISTEN", ":7070")
	t.Setenv("SPACERACER_RACE_CLOCK_STARTSECONDS", "12")

	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, 12, cfg.Race.Clock.StartSeconds)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"codec", `{"server": {"codec": "xml"}}`},
		{"fps", `{"ticker": {"fps": 0}}`},
		{"race", `{"race": {"track": {"innerRadius": 90}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)

			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidate_WrapsRaceError(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{Listen: ":1", Codec: "json"},
		Ticker: TickerConfig{FPS: 60},
		Race:   game.DefaultConfig(),
	}
	require.NoError(t, cfg.Validate())

	cfg.Race.CollisionThreshold = 0
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, game.ErrInvalidConfig)
}
