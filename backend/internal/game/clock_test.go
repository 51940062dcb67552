package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaceClock_OneSecondPerTick(t *testing.T) {
	c := NewRaceClock(ClockConfig{StartSeconds: 30})

	c.Tick(10)
	assert.Equal(t, 30, c.Remaining(), "first tick only latches")

	c.Tick(10.5)
	assert.Equal(t, 30, c.Remaining())

	c.Tick(11)
	assert.Equal(t, 29, c.Remaining())

	c.Tick(11.9)
	assert.Equal(t, 29, c.Remaining())

	// a long gap still costs a single second
	c.Tick(15)
	assert.Equal(t, 28, c.Remaining())

	c.Tick(15.99)
	assert.Equal(t, 28, c.Remaining())
}

func TestRaceClock_AccumulateResidual(t *testing.T) {
	c := NewRaceClock(ClockConfig{StartSeconds: 30, AccumulateResidual: true})

	c.Tick(0)
	c.Tick(3.5)
	assert.Equal(t, 27, c.Remaining())

	c.Tick(4)
	assert.Equal(t, 26, c.Remaining())

	c.Tick(4.9)
	assert.Equal(t, 26, c.Remaining())
}

func TestRaceClock_AddAndExpire(t *testing.T) {
	c := NewRaceClock(ClockConfig{StartSeconds: 1})
	assert.False(t, c.Expired())

	c.Tick(0)
	c.Tick(1)
	assert.Equal(t, 0, c.Remaining())
	assert.True(t, c.Expired())

	c.Tick(2)
	assert.Equal(t, -1, c.Remaining())
	assert.Equal(t, 0, c.Display())

	c.Add(5)
	assert.Equal(t, 4, c.Remaining())
	assert.Equal(t, 4, c.Display())
	assert.False(t, c.Expired())
}
