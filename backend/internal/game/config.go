package game

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"space-racer/backend/internal/world"
)

var ErrInvalidConfig = errors.New("invalid race config")

// VehicleConfig tunes the UFO. Magnitudes are per rendered frame.
type VehicleConfig struct {
	Acceleration float64    `mapstructure:"acceleration"`
	Deceleration float64    `mapstructure:"deceleration"`
	MaxSpeed     float64    `mapstructure:"maxSpeed"`
	TurnRate     float64    `mapstructure:"turnRate"` // radians per frame
	Scale        float64    `mapstructure:"scale"`
	Start        [3]float64 `mapstructure:"start"`
	FallRate     float64    `mapstructure:"fallRate"`  // world units per frame while falling
	FallFloor    float64    `mapstructure:"fallFloor"` // race is over below this height
}

type ObstacleConfig struct {
	Count       int     `mapstructure:"count"`
	MinSpeed    float64 `mapstructure:"minSpeed"`
	SpeedRange  float64 `mapstructure:"speedRange"`
	JitterMin   int     `mapstructure:"jitterMin"`
	JitterMax   int     `mapstructure:"jitterMax"`
	Margin      float64 `mapstructure:"margin"`      // bounce band outside the annulus
	Buffer      float64 `mapstructure:"buffer"`      // clamp distance inside the band
	NudgeFactor float64 `mapstructure:"nudgeFactor"` // idle vehicle push, times obstacle speed
}

type PickupConfig struct {
	TimeSlots         int     `mapstructure:"timeSlots"`
	TimeActive        int     `mapstructure:"timeActive"`
	TimeBonusSeconds  int     `mapstructure:"timeBonusSeconds"`
	CoinSlots         int     `mapstructure:"coinSlots"`
	CoinActive        int     `mapstructure:"coinActive"`
	CoinMaxSpeedBonus float64 `mapstructure:"coinMaxSpeedBonus"`
	CoinAccelBonus    float64 `mapstructure:"coinAccelBonus"`
}

type BoundaryConfig struct {
	InnerMargin float64 `mapstructure:"innerMargin"`
	OuterMargin float64 `mapstructure:"outerMargin"`
}

type ClockConfig struct {
	StartSeconds int `mapstructure:"startSeconds"`
	// AccumulateResidual carries sub-second remainders between frames so a
	// long frame gap costs every second it spans.
	AccumulateResidual bool `mapstructure:"accumulateResidual"`
}

// Config is everything a RaceSession needs.
type Config struct {
	Track              world.Track    `mapstructure:"track"`
	Vehicle            VehicleConfig  `mapstructure:"vehicle"`
	Obstacles          ObstacleConfig `mapstructure:"obstacles"`
	Pickups            PickupConfig   `mapstructure:"pickups"`
	Boundary           BoundaryConfig `mapstructure:"boundary"`
	Clock              ClockConfig    `mapstructure:"clock"`
	CollisionThreshold float64        `mapstructure:"collisionThreshold"`
}

func DefaultConfig() Config {
	track := world.DefaultTrack()
	return Config{
		Track: track,
		Vehicle: VehicleConfig{
			Acceleration: 0.02,
			Deceleration: 0.02,
			MaxSpeed:     1.5,
			TurnRate:     0.075,
			Scale:        0.5,
			Start:        [3]float64{(track.InnerRadius + track.OuterRadius) / 2, 0, track.EntityZ},
			FallRate:     0.3,
			FallFloor:    -30,
		},
		Obstacles: ObstacleConfig{
			Count:       30,
			MinSpeed:    0.1,
			SpeedRange:  0.05,
			JitterMin:   5,
			JitterMax:   20,
			Margin:      10,
			Buffer:      0.1,
			NudgeFactor: 2,
		},
		Pickups: PickupConfig{
			TimeSlots:         12,
			TimeActive:        3,
			TimeBonusSeconds:  5,
			CoinSlots:         18,
			CoinActive:        5,
			CoinMaxSpeedBonus: 0.12,
			CoinAccelBonus:    0.002,
		},
		Boundary: BoundaryConfig{
			InnerMargin: 10,
			OuterMargin: 15,
		},
		Clock: ClockConfig{
			StartSeconds: 30,
		},
		CollisionThreshold: 3,
	}
}

// StartPosition returns the configured spawn point.
func (c Config) StartPosition() mgl64.Vec3 {
	return mgl64.Vec3{c.Vehicle.Start[0], c.Vehicle.Start[1], c.Vehicle.Start[2]}
}

// Validate rejects configs the simulation cannot run. Registry target/slot
// counts are checked again by NewPickupRegistry.
func (c Config) Validate() error {
	switch {
	case c.Track.InnerRadius <= 0 || c.Track.OuterRadius <= c.Track.InnerRadius:
		return fmt.Errorf("%w: track radii %.1f/%.1f", ErrInvalidConfig, c.Track.InnerRadius, c.Track.OuterRadius)
	case c.Vehicle.MaxSpeed <= 0:
		return fmt.Errorf("%w: vehicle max speed must be positive", ErrInvalidConfig)
	case c.Vehicle.Acceleration < 0 || c.Vehicle.Deceleration < 0:
		return fmt.Errorf("%w: vehicle acceleration and deceleration must not be negative", ErrInvalidConfig)
	case c.Vehicle.Scale <= 0:
		return fmt.Errorf("%w: vehicle scale must be positive", ErrInvalidConfig)
	case c.Obstacles.Count < 0:
		return fmt.Errorf("%w: negative obstacle count", ErrInvalidConfig)
	case c.Obstacles.JitterMin > c.Obstacles.JitterMax || c.Obstacles.JitterMin < 0:
		return fmt.Errorf("%w: obstacle jitter range [%d,%d]", ErrInvalidConfig, c.Obstacles.JitterMin, c.Obstacles.JitterMax)
	case c.Obstacles.Buffer < 0 || c.Obstacles.Buffer >= c.Obstacles.Margin+c.Track.InnerRadius:
		return fmt.Errorf("%w: obstacle buffer %.2f", ErrInvalidConfig, c.Obstacles.Buffer)
	case c.CollisionThreshold <= 0:
		return fmt.Errorf("%w: collision threshold must be positive", ErrInvalidConfig)
	case c.Clock.StartSeconds <= 0:
		return fmt.Errorf("%w: clock must start above zero", ErrInvalidConfig)
	}
	return nil
}
