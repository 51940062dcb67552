package game

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"space-racer/backend/internal/input"
	"space-racer/backend/internal/world"
)

const frameDt = 1.0 / 60

func newTestSession(t *testing.T, mutate func(*Config)) (*RaceSession, *recordingSink) {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewRaceSession(cfg, rand.New(rand.NewPCG(11, 12)), zerolog.Nop())
	require.NoError(t, err)

	// keep obstacles out of the way unless a test places its own
	s.Obstacles().Set(nil)

	sink := &recordingSink{}
	s.SetEventSink(sink)
	return s, sink
}

func TestRaceSession_InitialState(t *testing.T) {
	cfg := DefaultConfig()
	s, err := NewRaceSession(cfg, rand.New(rand.NewPCG(1, 2)), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, PhaseRacing, s.Phase())
	assert.Equal(t, HUD{Seconds: 30, Score: 0}, s.HUD())
	assert.Equal(t, 3, s.TimeBonuses().ActiveCount())
	assert.Equal(t, 5, s.Coins().ActiveCount())
	assert.Equal(t, 30, s.Obstacles().Len())

	snap := s.Snapshot()
	// sun, track, ufo, 3 timers, 5 coins and 30 obstacles
	assert.Len(t, snap.Drawables, 41)
	assert.Equal(t, "sun", snap.Drawables[0].ID)
	assert.Equal(t, "track", snap.Drawables[1].ID)
	assert.Equal(t, "ufo", snap.Drawables[2].ID)
	assert.Equal(t, CameraTopDown, snap.Camera.Mode)
}

func TestRaceSession_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pickups.TimeActive = cfg.Pickups.TimeSlots
	_, err := NewRaceSession(cfg, rand.New(rand.NewPCG(1, 2)), zerolog.Nop())
	assert.ErrorIs(t, err, ErrTargetExceedsSlots)

	cfg = DefaultConfig()
	cfg.Vehicle.MaxSpeed = 0
	_, err = NewRaceSession(cfg, rand.New(rand.NewPCG(1, 2)), zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRaceSession_DriveOnTrack(t *testing.T) {
	s, sink := newTestSession(t, func(c *Config) {
		c.Pickups.TimeActive = 0
		c.Pickups.CoinActive = 0
	})

	for i := 0; i < 30; i++ {
		s.Frame(input.State{Forward: true}, frameDt, float64(i)*frameDt)
	}

	assert.Equal(t, PhaseRacing, s.Phase())
	assert.Equal(t, uint64(30), s.Frames())
	assert.InDelta(t, 0.6, s.Vehicle().Velocity, 1e-9)
	assert.Greater(t, s.Vehicle().Position().Y(), 0.0)
	assert.Equal(t, 30, s.HUD().Seconds)
	assert.Empty(t, sink.events)
}

func TestRaceSession_FrameLogIsSampled(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	s, err := NewRaceSession(DefaultConfig(), rand.New(rand.NewPCG(5, 6)), logger)
	require.NoError(t, err)
	s.Obstacles().Set(nil)

	for i := 0; i < 200; i++ {
		s.Frame(input.State{}, frameDt, float64(i)*frameDt)
	}

	// a burst of 5, then one in 600
	frames := bytes.Count(buf.Bytes(), []byte(`"message":"frame"`))
	assert.GreaterOrEqual(t, frames, 5)
	assert.LessOrEqual(t, frames, 6)
}

func TestRaceSession_OffTrackFallsAndEnds(t *testing.T) {
	s, sink := newTestSession(t, nil)
	placeVehicle(s, world.FromPolar(0.3, 40, 2))

	s.Frame(input.State{}, frameDt, 0)
	require.Equal(t, PhaseFalling, s.Phase())
	assert.InDelta(t, 1.7, s.Vehicle().Position().Z(), 1e-9)
	assert.Equal(t, []bool{false}, sink.offs)

	// turning is frozen while falling
	s.Vehicle().Velocity = 0.5
	heading := s.Vehicle().Heading
	s.Frame(input.State{TurnLeft: true}, frameDt, frameDt)
	assert.Equal(t, heading, s.Vehicle().Heading)

	for i := 0; i < 500 && s.Phase() != PhaseOver; i++ {
		s.Frame(input.State{}, frameDt, float64(i+2)*frameDt)
	}
	require.Equal(t, PhaseOver, s.Phase())
	assert.Less(t, s.Vehicle().Position().Z(), -30.0)

	assert.Len(t, sink.offs, 1, "falling is reported once")
	require.Len(t, sink.results, 1)
	assert.Equal(t, s.Frames(), sink.results[0].Frames)
	assert.False(t, sink.results[0].TimedOut)

	frames := s.Frames()
	z := s.Vehicle().Position().Z()
	s.Frame(input.State{Forward: true}, frameDt, 100)
	assert.Equal(t, frames, s.Frames())
	assert.Equal(t, z, s.Vehicle().Position().Z())
}

func TestRaceSession_ClockExpiryEndsRace(t *testing.T) {
	s, sink := newTestSession(t, func(c *Config) {
		c.Clock.StartSeconds = 1
	})
	placeVehicle(s, world.FromPolar(math.Pi/18, 77.5, 2))

	s.Frame(input.State{}, frameDt, 0)
	assert.Equal(t, PhaseRacing, s.Phase())

	s.Frame(input.State{}, 1, 1)
	assert.Equal(t, PhaseFalling, s.Phase())
	assert.Equal(t, []bool{true}, sink.offs)
	assert.Equal(t, 0, s.HUD().Seconds)

	for i := 0; i < 500 && s.Phase() != PhaseOver; i++ {
		s.Frame(input.State{}, frameDt, 2+float64(i)*frameDt)
	}
	require.Len(t, sink.results, 1)
	assert.True(t, sink.results[0].TimedOut)
}

func TestRaceSession_TimeBonusExtendsClock(t *testing.T) {
	s, sink := newTestSession(t, func(c *Config) {
		c.Pickups.CoinActive = 0
	})
	k := s.TimeBonuses().ActiveSlots()[0]
	placeVehicle(s, s.TimeBonuses().Slot(k))

	s.Frame(input.State{}, frameDt, 0)

	assert.Equal(t, 35, s.HUD().Seconds)
	assert.False(t, s.TimeBonuses().Active(k))
	assert.Equal(t, 3, s.TimeBonuses().ActiveCount())
	assert.Equal(t, 0, s.Score())
	assert.Len(t, sink.events, 1)
}

func TestRaceSession_CoinUpgradesVehicle(t *testing.T) {
	s, _ := newTestSession(t, func(c *Config) {
		c.Pickups.TimeActive = 0
	})
	k := s.Coins().ActiveSlots()[0]
	placeVehicle(s, s.Coins().Slot(k))

	s.Frame(input.State{}, frameDt, 0)

	assert.Equal(t, 1, s.Score())
	assert.Equal(t, 1, s.HUD().Score)
	assert.InDelta(t, 1.62, s.Vehicle().MaxSpeed, 1e-9)
	assert.InDelta(t, 0.022, s.Vehicle().Acceleration, 1e-9)
	assert.Equal(t, 5, s.Coins().ActiveCount())
	assert.Equal(t, 30, s.HUD().Seconds)
}

func TestRaceSession_ThirdPersonCamera(t *testing.T) {
	s, _ := newTestSession(t, nil)
	placeVehicle(s, world.FromPolar(math.Pi/18, 77.5, 2))

	s.Frame(input.State{ThirdPerson: true}, frameDt, 0)
	assert.Equal(t, CameraThirdPerson, s.Snapshot().Camera.Mode)

	s.Frame(input.State{}, frameDt, frameDt)
	assert.Equal(t, CameraTopDown, s.Snapshot().Camera.Mode)
}

func TestRaceSession_Restart(t *testing.T) {
	s, sink := newTestSession(t, func(c *Config) {
		c.Pickups.TimeActive = 0
	})
	placeVehicle(s, s.Coins().Slot(s.Coins().ActiveSlots()[0]))
	s.Frame(input.State{Forward: true}, frameDt, 0)
	require.Equal(t, 1, s.Score())

	require.NoError(t, s.Restart())

	assert.Equal(t, PhaseRacing, s.Phase())
	assert.Equal(t, 0, s.Score())
	assert.Equal(t, uint64(0), s.Frames())
	assert.Equal(t, 30, s.HUD().Seconds)
	assert.Equal(t, 0.0, s.Vehicle().Velocity)
	assert.Equal(t, 1.5, s.Vehicle().MaxSpeed)
	assert.Equal(t, 30, s.Obstacles().Len())

	// the sink survives a restart
	s.Obstacles().Set(nil)
	placeVehicle(s, world.FromPolar(0, 40, 2))
	s.Frame(input.State{}, frameDt, 1)
	assert.Contains(t, sink.events, "offtrack")
}

type drawRecorder struct {
	ids []string
}

func (d *drawRecorder) Draw(dr world.Drawable) {
	d.ids = append(d.ids, dr.ID)
}

func TestRaceSession_Render(t *testing.T) {
	s, _ := newTestSession(t, nil)
	placeVehicle(s, world.FromPolar(math.Pi/18, 77.5, 2))
	s.Frame(input.State{}, frameDt, 0)

	r := &drawRecorder{}
	s.Render(r)

	// obstacles were cleared, so sun, track, ufo, 3 timers, 5 coins
	assert.Len(t, r.ids, 11)
	assert.Equal(t, []string{"sun", "track", "ufo"}, r.ids[:3])
}
