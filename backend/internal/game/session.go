package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"space-racer/backend/internal/input"
	"space-racer/backend/internal/logging"
	"space-racer/backend/internal/world"
)

// Phase is the coarse state of a race.
type Phase string

const (
	PhaseRacing  Phase = "racing"
	PhaseFalling Phase = "falling"
	PhaseOver    Phase = "over"
)

// HUD is what the overlay shows every frame.
type HUD struct {
	Seconds int `json:"seconds" msgpack:"seconds"`
	Score   int `json:"score" msgpack:"score"`
}

// Snapshot is a value copy of a frame, safe to hand to other goroutines.
type Snapshot struct {
	Frame      uint64           `json:"frame" msgpack:"frame"`
	Time       float64          `json:"time" msgpack:"time"`
	Phase      Phase            `json:"phase" msgpack:"phase"`
	HUD        HUD              `json:"hud" msgpack:"hud"`
	Velocity   float64          `json:"velocity" msgpack:"velocity"`
	MaxSpeed   float64          `json:"maxSpeed" msgpack:"maxSpeed"`
	Heading    float64          `json:"heading" msgpack:"heading"`
	Position   mgl64.Vec3       `json:"position" msgpack:"position"`
	OffTrack   bool             `json:"offTrack" msgpack:"offTrack"`
	Collisions int              `json:"collisions" msgpack:"collisions"`
	Camera     Camera           `json:"camera" msgpack:"camera"`
	Drawables  []world.Drawable `json:"drawables" msgpack:"drawables"`
}

// RaceSession owns every entity of one race. All methods except Snapshot's
// result must be used from the single goroutine that calls Frame.
type RaceSession struct {
	cfg      Config
	rng      *rand.Rand
	logger   zerolog.Logger
	frameLog zerolog.Logger
	sink     RaceEventSink

	vehicle     *Vehicle
	controller  *VehicleController
	obstacles   *ObstacleField
	timeBonuses *PickupRegistry
	coins       *PickupRegistry
	collisions  *CollisionManager
	boundary    TrackBoundary
	clock       *RaceClock
	scene       *world.Scene

	score       int
	phase       Phase
	offTrack    bool
	thirdPerson bool
	frames      uint64
	elapsed     float64
	lastTime    float64
}

// NewRaceSession validates cfg and builds a ready-to-run race.
func NewRaceSession(cfg Config, rng *rand.Rand, logger zerolog.Logger) (*RaceSession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger = logger.With().Str("component", "RaceSession").Logger()
	s := &RaceSession{
		cfg:      cfg,
		rng:      rng,
		logger:   logger,
		frameLog: logging.Sampled(logger, 600),
		scene:    world.NewScene(),
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RaceSession) build() error {
	cfg := s.cfg

	s.vehicle = NewVehicle(cfg.Vehicle, cfg.StartPosition())
	s.controller = NewVehicleController(cfg.Vehicle.TurnRate)

	s.obstacles = NewObstacleField(cfg.Obstacles, cfg.Track, s.rng)
	s.obstacles.Generate(cfg.Obstacles.Count)

	var err error
	s.timeBonuses, err = NewPickupRegistry(PickupTimeBonus, cfg.Pickups.TimeSlots, cfg.Pickups.TimeActive, cfg.Track, s.rng, s.applyTimeBonus)
	if err != nil {
		return fmt.Errorf("time bonus registry: %w", err)
	}
	s.coins, err = NewPickupRegistry(PickupCoin, cfg.Pickups.CoinSlots, cfg.Pickups.CoinActive, cfg.Track, s.rng, s.applyCoin)
	if err != nil {
		return fmt.Errorf("coin registry: %w", err)
	}

	s.collisions = NewCollisionManager(cfg.CollisionThreshold, cfg.Obstacles.NudgeFactor,
		s.vehicle, s.obstacles, s.logger, s.timeBonuses, s.coins)
	s.collisions.SetEventSink(s.sink)

	s.boundary = NewTrackBoundary(cfg.Track, cfg.Boundary)
	s.clock = NewRaceClock(cfg.Clock)

	s.score = 0
	s.phase = PhaseRacing
	s.offTrack = false
	s.frames = 0
	s.elapsed = 0
	s.lastTime = 0
	s.rebuildScene()
	return nil
}

// SetEventSink attaches the receiver of race events. Pass nil to detach.
func (s *RaceSession) SetEventSink(sink RaceEventSink) {
	s.sink = sink
	s.collisions.SetEventSink(sink)
}

// Restart throws the current race away and starts a new one from the same
// config. The random source carries on, so layouts differ between races.
func (s *RaceSession) Restart() error {
	s.logger.Info().Int("score", s.score).Uint64("frames", s.frames).Msg("race restarted")
	return s.build()
}

func (s *RaceSession) applyTimeBonus(int) {
	s.clock.Add(s.cfg.Pickups.TimeBonusSeconds)
}

func (s *RaceSession) applyCoin(int) {
	s.score++
	s.vehicle.Upgrade(s.cfg.Pickups.CoinMaxSpeedBonus, s.cfg.Pickups.CoinAccelBonus)
}

// Frame runs one rendered frame. dt is the wall time since the previous
// frame and t the absolute animation time, both in seconds. Once the race is
// over Frame does nothing.
func (s *RaceSession) Frame(in input.State, dt, t float64) {
	if s.phase == PhaseOver {
		return
	}
	s.frames++
	s.elapsed += dt
	s.lastTime = t
	s.thirdPerson = in.ThirdPerson

	s.controller.Update(s.vehicle, in, s.phase == PhaseFalling)
	s.obstacles.AdvanceAll()
	s.collisions.Check(s.vehicle.Position())

	s.offTrack = s.boundary.IsOffTrack(s.vehicle.Position())
	s.clock.Tick(t)

	if s.phase == PhaseRacing && (s.offTrack || s.clock.Expired()) {
		s.phase = PhaseFalling
		pos := s.vehicle.Position()
		s.logger.Info().
			Bool("offTrack", s.offTrack).
			Int("seconds", s.clock.Remaining()).
			Floats64("position", pos[:]).
			Msg("vehicle falling")
		if s.sink != nil {
			s.sink.OffTrack(pos, s.clock.Expired())
		}
	}

	if s.phase == PhaseFalling {
		s.vehicle.Drop(s.cfg.Vehicle.FallRate)
		if s.vehicle.Position().Z() < s.cfg.Vehicle.FallFloor {
			s.finish()
		}
	}

	s.frameLog.Debug().
		Uint64("frame", s.frames).
		Float64("dt", dt).
		Float64("velocity", s.vehicle.Velocity).
		Int("seconds", s.clock.Remaining()).
		Msg("frame")

	s.rebuildScene()
}

func (s *RaceSession) finish() {
	s.phase = PhaseOver
	result := s.Result()
	s.logger.Info().
		Int("score", result.Score).
		Int("collisions", result.Collisions).
		Bool("timedOut", result.TimedOut).
		Uint64("frames", result.Frames).
		Msg("race over")
	if s.sink != nil {
		s.sink.RaceOver(result)
	}
}

// Result reports the race summary so far.
func (s *RaceSession) Result() RaceResult {
	return RaceResult{
		Score:      s.score,
		Collisions: s.collisions.Collisions(),
		Frames:     s.frames,
		Elapsed:    s.elapsed,
		TimedOut:   s.clock.Expired(),
	}
}

// rebuildScene refreshes the drawables the render collaborator will read.
func (s *RaceSession) rebuildScene() {
	s.scene.Reset()
	s.cfg.Track.StaticScenery(s.scene)

	s.scene.Add(world.Drawable{
		ID:        "ufo",
		Shape:     world.ShapeUFO,
		Material:  world.MaterialUFO,
		Transform: s.vehicle.Transform,
	})

	for _, registry := range []*PickupRegistry{s.timeBonuses, s.coins} {
		shape, material := registry.Kind().Shape()
		for _, i := range registry.ActiveSlots() {
			s.scene.AddAt(world.EntityID(string(registry.Kind()), i), shape, material, registry.Slot(i))
		}
	}

	for i := 0; i < s.obstacles.Len(); i++ {
		s.scene.AddAt(world.EntityID("obstacle", i), world.ShapeObstacle, world.MaterialObstacle, s.obstacles.At(i).Position)
	}
}

// Render hands the current frame to a render collaborator.
func (s *RaceSession) Render(r world.Renderer) {
	s.scene.Render(r)
}

// Snapshot copies the current frame.
func (s *RaceSession) Snapshot() Snapshot {
	pos := s.vehicle.Position()
	return Snapshot{
		Frame:      s.frames,
		Time:       s.lastTime,
		Phase:      s.phase,
		HUD:        s.HUD(),
		Velocity:   s.vehicle.Velocity,
		MaxSpeed:   s.vehicle.MaxSpeed,
		Heading:    s.vehicle.Heading,
		Position:   pos,
		OffTrack:   s.offTrack,
		Collisions: s.collisions.Collisions(),
		Camera:     FollowCamera(pos, s.vehicle.Heading, s.thirdPerson),
		Drawables:  s.scene.Drawables(),
	}
}

func (s *RaceSession) HUD() HUD {
	return HUD{Seconds: s.clock.Display(), Score: s.score}
}

func (s *RaceSession) Config() Config { return s.cfg }
func (s *RaceSession) Vehicle() *Vehicle { return s.vehicle }
func (s *RaceSession) Obstacles() *ObstacleField { return s.obstacles }
func (s *RaceSession) TimeBonuses() *PickupRegistry { return s.timeBonuses }
func (s *RaceSession) Coins() *PickupRegistry { return s.coins }
func (s *RaceSession) Clock() *RaceClock { return s.clock }
func (s *RaceSession) Boundary() TrackBoundary { return s.boundary }
func (s *RaceSession) Phase() Phase { return s.phase }
func (s *RaceSession) Score() int { return s.score }
func (s *RaceSession) Collisions() int { return s.collisions.Collisions() }
func (s *RaceSession) Frames() uint64 { return s.frames }
