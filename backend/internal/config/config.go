package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"space-racer/backend/internal/game"
)

// FileName is looked up in the directory passed to Load.
const FileName = "spaceracer.cfg.json"

// EnvPrefix prefixes environment overrides: SPACERACER_SERVER_LISTEN and so on.
const EnvPrefix = "SPACERACER"

var ErrInvalid = errors.New("invalid configuration")

type ServerConfig struct {
	Listen            string        `mapstructure:"listen"`
	StaticDir         string        `mapstructure:"staticDir"`
	Codec             string        `mapstructure:"codec"`
	BroadcastInterval time.Duration `mapstructure:"broadcastInterval"`
	// NetworkProfile degrades outgoing traffic for client testing, e.g.
	// "mobile_3g". Empty means a clean link.
	NetworkProfile string `mapstructure:"networkProfile"`
}

type TickerConfig struct {
	FPS             int           `mapstructure:"fps"`
	MetricsInterval time.Duration `mapstructure:"metricsInterval"`
}

type TelemetryConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxEntries    int           `mapstructure:"maxEntries"`
	PrintInterval time.Duration `mapstructure:"printInterval"`
}

// Config is the whole process configuration.
type Config struct {
	LogLevel  string          `mapstructure:"logLevel"`
	LogFormat string          `mapstructure:"logFormat"`
	Server    ServerConfig    `mapstructure:"server"`
	Ticker    TickerConfig    `mapstructure:"ticker"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	// Seed drives every random choice of a race. Zero picks one at startup.
	Seed uint64      `mapstructure:"-"`
	Race game.Config `mapstructure:"race"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFormat", "console")

	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.staticDir", "./web")
	viper.SetDefault("server.codec", "json")
	viper.SetDefault("server.broadcastInterval", "33ms")
	viper.SetDefault("server.networkProfile", "")

	viper.SetDefault("ticker.fps", 60)
	viper.SetDefault("ticker.metricsInterval", "30s")

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.maxEntries", 200)
	viper.SetDefault("telemetry.printInterval", "10s")

	d := game.DefaultConfig()
	viper.SetDefault("race.seed", 0)

	viper.SetDefault("race.track.innerRadius", d.Track.InnerRadius)
	viper.SetDefault("race.track.outerRadius", d.Track.OuterRadius)
	viper.SetDefault("race.track.entityZ", d.Track.EntityZ)
	viper.SetDefault("race.track.sunRadius", d.Track.SunRadius)
	viper.SetDefault("race.track.diskScale", d.Track.DiskScale)

	viper.SetDefault("race.vehicle.acceleration", d.Vehicle.Acceleration)
	viper.SetDefault("race.vehicle.deceleration", d.Vehicle.Deceleration)
	viper.SetDefault("race.vehicle.maxSpeed", d.Vehicle.MaxSpeed)
	viper.SetDefault("race.vehicle.turnRate", d.Vehicle.TurnRate)
	viper.SetDefault("race.vehicle.scale", d.Vehicle.Scale)
	viper.SetDefault("race.vehicle.start", d.Vehicle.Start[:])
	viper.SetDefault("race.vehicle.fallRate", d.Vehicle.FallRate)
	viper.SetDefault("race.vehicle.fallFloor", d.Vehicle.FallFloor)

	viper.SetDefault("race.obstacles.count", d.Obstacles.Count)
	viper.SetDefault("race.obstacles.minSpeed", d.Obstacles.MinSpeed)
	viper.SetDefault("race.obstacles.speedRange", d.Obstacles.SpeedRange)
	viper.SetDefault("race.obstacles.jitterMin", d.Obstacles.JitterMin)
	viper.SetDefault("race.obstacles.jitterMax", d.Obstacles.JitterMax)
	viper.SetDefault("race.obstacles.margin", d.Obstacles.Margin)
	viper.SetDefault("race.obstacles.buffer", d.Obstacles.Buffer)
	viper.SetDefault("race.obstacles.nudgeFactor", d.Obstacles.NudgeFactor)

	viper.SetDefault("race.pickups.timeSlots", d.Pickups.TimeSlots)
	viper.SetDefault("race.pickups.timeActive", d.Pickups.TimeActive)
	viper.SetDefault("race.pickups.timeBonusSeconds", d.Pickups.TimeBonusSeconds)
	viper.SetDefault("race.pickups.coinSlots", d.Pickups.CoinSlots)
	viper.SetDefault("race.pickups.coinActive", d.Pickups.CoinActive)
	viper.SetDefault("race.pickups.coinMaxSpeedBonus", d.Pickups.CoinMaxSpeedBonus)
	viper.SetDefault("race.pickups.coinAccelBonus", d.Pickups.CoinAccelBonus)

	viper.SetDefault("race.boundary.innerMargin", d.Boundary.InnerMargin)
	viper.SetDefault("race.boundary.outerMargin", d.Boundary.OuterMargin)

	viper.SetDefault("race.clock.startSeconds", d.Clock.StartSeconds)
	viper.SetDefault("race.clock.accumulateResidual", d.Clock.AccumulateResidual)

	viper.SetDefault("race.collisionThreshold", d.CollisionThreshold)
}

// Load reads FileName from configDir on top of the defaults and applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(configDir string) (Config, error) {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	if configDir != "" {
		viper.AddConfigPath(configDir)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Seed = viper.GetUint64("race.seed")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the process settings and the race config.
func (c Config) Validate() error {
	switch {
	case c.Server.Listen == "":
		return fmt.Errorf("%w: server.listen is empty", ErrInvalid)
	case c.Server.Codec != "json" && c.Server.Codec != "msgpack":
		return fmt.Errorf("%w: server.codec %q, want json or msgpack", ErrInvalid, c.Server.Codec)
	case c.Server.BroadcastInterval < 0:
		return fmt.Errorf("%w: negative server.broadcastInterval", ErrInvalid)
	case c.Ticker.FPS <= 0:
		return fmt.Errorf("%w: ticker.fps must be positive", ErrInvalid)
	}

	if err := c.Race.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ConfigFileUsed reports the file Load read, or "" when only defaults and
// the environment were used.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
