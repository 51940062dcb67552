package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// WaveType is an oscillator shape.
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSaw
)

type oscillator struct {
	freq     float64
	phase    float64
	duration int
	position int
	wave     WaveType
	rate     beep.SampleRate
}

// NewOscillator streams a fixed tone for duration.
func NewOscillator(freq float64, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return &oscillator{
		freq:     freq,
		duration: rate.N(duration),
		wave:     wave,
		rate:     rate,
	}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			val = 1
			if o.phase >= 0.5 {
				val = -1
			}
		case WaveSaw:
			val = 2 * (o.phase - 0.5)
		}

		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// envelope ramps a stream in over attack and out over release.
type envelope struct {
	streamer beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

func NewEnvelope(s beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{
		streamer: s,
		attack:   rate.N(attack),
		release:  rate.N(release),
		total:    rate.N(duration),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)

	for i := 0; i < n; i++ {
		if e.position >= e.total {
			return i, i > 0
		}

		vol := 1.0
		if e.attack > 0 && e.position < e.attack {
			vol = float64(e.position) / float64(e.attack)
		}
		if e.release > 0 && e.position >= e.total-e.release {
			vol = math.Max(0, float64(e.total-e.position)/float64(e.release))
		}

		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

func volume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

func note(freq float64, d time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return NewEnvelope(NewOscillator(freq, d, wave, rate), d, 5*time.Millisecond, d/3, rate)
}

// Cue names one race sound.
type Cue int

const (
	CueCoin Cue = iota
	CueTimeBonus
	CueHit
	CueOffTrack
	CueRaceOver
)

func (c Cue) String() string {
	switch c {
	case CueCoin:
		return "coin"
	case CueTimeBonus:
		return "time_bonus"
	case CueHit:
		return "hit"
	case CueOffTrack:
		return "offtrack"
	case CueRaceOver:
		return "race_over"
	default:
		return "unknown"
	}
}

// Sound builds the streamer for a cue.
func Sound(c Cue, rate beep.SampleRate) beep.Streamer {
	switch c {
	case CueCoin:
		return volume(beep.Seq(
			note(988, 60*time.Millisecond, WaveSquare, rate),
			note(1319, 120*time.Millisecond, WaveSquare, rate),
		), 0.3)
	case CueTimeBonus:
		return volume(beep.Seq(
			note(523, 70*time.Millisecond, WaveSine, rate),
			note(659, 70*time.Millisecond, WaveSine, rate),
			note(784, 140*time.Millisecond, WaveSine, rate),
		), 0.5)
	case CueHit:
		return volume(note(110, 150*time.Millisecond, WaveSaw, rate), 0.4)
	case CueOffTrack:
		return volume(beep.Seq(
			note(392, 150*time.Millisecond, WaveSine, rate),
			note(262, 150*time.Millisecond, WaveSine, rate),
			note(196, 300*time.Millisecond, WaveSine, rate),
		), 0.5)
	default:
		return volume(beep.Seq(
			note(262, 100*time.Millisecond, WaveSine, rate),
			note(330, 100*time.Millisecond, WaveSine, rate),
			note(392, 100*time.Millisecond, WaveSine, rate),
			note(523, 300*time.Millisecond, WaveSine, rate),
		), 0.4)
	}
}
