package audio

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"

	"space-racer/backend/internal/game"
)

const (
	SampleRate = beep.SampleRate(44100)
	queueSize  = 16
)

// Player plays race cues. It satisfies game.RaceEventSink: events are only
// queued, and a separate goroutine hands them to the speaker. Without a
// working audio device every call is a no-op.
type Player struct {
	mu      sync.Mutex
	started bool
	mixer   *beep.Mixer
	cues    chan Cue
	done    chan struct{}
	wg      sync.WaitGroup
	dropped int

	logger zerolog.Logger
}

func NewPlayer(logger zerolog.Logger) *Player {
	return &Player{
		mixer:  &beep.Mixer{},
		cues:   make(chan Cue, queueSize),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "Audio").Logger(),
	}
}

// Start opens the audio device. A failure leaves the player silent; callers
// usually log it and carry on.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.started = true

	p.wg.Add(1)
	go p.loop()
	return nil
}

func (p *Player) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case c := <-p.cues:
			s := Sound(c, SampleRate)
			speaker.Lock()
			p.mixer.Add(s)
			speaker.Unlock()
		}
	}
}

// Stop silences the player and releases the device.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	close(p.done)
	p.wg.Wait()
	speaker.Clear()
	speaker.Close()
	p.started = false
}

var _ game.RaceEventSink = (*Player)(nil)

// Enabled reports whether cues reach a device.
func (p *Player) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Play queues a cue without blocking. It reports false if the cue was
// dropped.
func (p *Player) Play(c Cue) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return false
	}
	select {
	case p.cues <- c:
		return true
	default:
		p.dropped++
		return false
	}
}

// CueFor maps a pickup kind to its sound.
func CueFor(kind game.PickupKind) Cue {
	if kind == game.PickupTimeBonus {
		return CueTimeBonus
	}
	return CueCoin
}

func (p *Player) PickupConsumed(kind game.PickupKind, _ int, _ mgl64.Vec3) {
	p.Play(CueFor(kind))
}

func (p *Player) ObstacleHit(int, float64) {
	p.Play(CueHit)
}

func (p *Player) OffTrack(mgl64.Vec3, bool) {
	p.Play(CueOffTrack)
}

func (p *Player) RaceOver(result game.RaceResult) {
	p.Play(CueRaceOver)
	p.logger.Debug().Int("score", result.Score).Int("dropped_cues", p.Dropped()).Msg("race over cue")
}

// Dropped counts cues lost to a full queue.
func (p *Player) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
