package game

import "math"

// RaceClock counts whole seconds down from the animation time it is fed.
type RaceClock struct {
	seconds  int
	lastTime float64
	started  bool
	residual bool
}

func NewRaceClock(cfg ClockConfig) *RaceClock {
	return &RaceClock{
		seconds:  cfg.StartSeconds,
		residual: cfg.AccumulateResidual,
	}
}

// Tick takes the absolute animation time in seconds. The first call only
// latches t. In the default mode at most one second is taken per call and
// the reference time jumps to t, so a long frame gap costs a single second.
// In residual mode every whole second elapsed is taken and the remainder is
// carried forward.
func (c *RaceClock) Tick(t float64) {
	if !c.started {
		c.started = true
		c.lastTime = t
		return
	}

	elapsed := t - c.lastTime
	if elapsed < 1 {
		return
	}

	if !c.residual {
		c.seconds--
		c.lastTime = t
		return
	}

	whole := math.Floor(elapsed)
	c.seconds -= int(whole)
	c.lastTime += whole
}

// Add extends the countdown.
func (c *RaceClock) Add(seconds int) {
	c.seconds += seconds
}

// Remaining may be negative once the race has run out.
func (c *RaceClock) Remaining() int {
	return c.seconds
}

// Display is the value shown on the HUD.
func (c *RaceClock) Display() int {
	if c.seconds < 0 {
		return 0
	}
	return c.seconds
}

func (c *RaceClock) Expired() bool {
	return c.seconds <= 0
}
