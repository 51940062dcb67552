package game

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"space-racer/backend/internal/input"
)

const eps = 1e-9

func newTestVehicle() (*Vehicle, *VehicleController) {
	cfg := DefaultConfig()
	return NewVehicle(cfg.Vehicle, cfg.StartPosition()), NewVehicleController(cfg.Vehicle.TurnRate)
}

func TestVehicle_StartsFacingWorldY(t *testing.T) {
	v, _ := newTestVehicle()

	pos := v.Position()
	assert.InDelta(t, 77.5, pos.X(), eps)
	assert.InDelta(t, 0, pos.Y(), eps)
	assert.InDelta(t, 2, pos.Z(), eps)

	fwd := v.Forward()
	assert.InDelta(t, 0, fwd.X(), eps)
	assert.InDelta(t, 1, fwd.Y(), eps)
	assert.InDelta(t, 0, fwd.Z(), eps)
}

func TestVehicleController_Accelerate(t *testing.T) {
	v, vc := newTestVehicle()

	vc.Update(v, input.State{Forward: true}, false)
	assert.InDelta(t, 0.02, v.Velocity, eps)

	// the model is scaled by 0.5, so one unit of local travel is half a world unit
	pos := v.Position()
	assert.InDelta(t, 77.5, pos.X(), eps)
	assert.InDelta(t, 0.01, pos.Y(), eps)

	for i := 0; i < 200; i++ {
		vc.Update(v, input.State{Forward: true}, false)
	}
	assert.Equal(t, 1.5, v.Velocity)
}

func TestVehicleController_DecelerateIntoReverse(t *testing.T) {
	v, vc := newTestVehicle()

	vc.Update(v, input.State{Backward: true}, false)
	assert.InDelta(t, -0.02, v.Velocity, eps)

	for i := 0; i < 200; i++ {
		vc.Update(v, input.State{Backward: true}, false)
	}
	assert.Equal(t, -1.5, v.Velocity)
	assert.Less(t, v.Position().Y(), 0.0)
}

func TestVehicleController_BrakeWhileMovingForward(t *testing.T) {
	v, vc := newTestVehicle()

	v.Velocity = 0.5
	vc.Update(v, input.State{Backward: true}, false)
	assert.InDelta(t, 0.48, v.Velocity, eps)

	// braking carries straight through zero into reverse
	v.Velocity = 0.01
	vc.Update(v, input.State{Backward: true}, false)
	assert.InDelta(t, -0.01, v.Velocity, eps)
	assert.LessOrEqual(t, math.Abs(v.Velocity), v.MaxSpeed)

	// reverse travel stops at the top speed
	v.MaxSpeed = 0.05
	v.Velocity = -0.04
	vc.Update(v, input.State{Backward: true}, false)
	assert.Equal(t, -0.05, v.Velocity)
	vc.Update(v, input.State{Backward: true}, false)
	assert.Equal(t, -0.05, v.Velocity)
}

func TestVehicleController_RelaxesWithoutOvershoot(t *testing.T) {
	v, vc := newTestVehicle()

	v.Velocity = 0.03
	vc.Update(v, input.State{}, false)
	assert.InDelta(t, 0.01, v.Velocity, eps)
	vc.Update(v, input.State{}, false)
	assert.Equal(t, 0.0, v.Velocity)

	v.Velocity = -0.03
	vc.Update(v, input.State{}, false)
	vc.Update(v, input.State{}, false)
	assert.Equal(t, 0.0, v.Velocity)
}

func TestVehicleController_SpeedStaysBounded(t *testing.T) {
	v, vc := newTestVehicle()

	inputs := []input.State{
		{Forward: true, TurnLeft: true},
		{Backward: true},
		{Forward: true, TurnRight: true},
		{},
	}
	for i := 0; i < 1000; i++ {
		vc.Update(v, inputs[(i/40)%len(inputs)], false)
		assert.LessOrEqual(t, v.Velocity, v.MaxSpeed)
		assert.GreaterOrEqual(t, v.Velocity, -v.MaxSpeed)
	}
}

func TestVehicleController_TurnNeedsVelocity(t *testing.T) {
	v, vc := newTestVehicle()
	before := v.Transform

	vc.Update(v, input.State{TurnLeft: true}, false)
	assert.Equal(t, before, v.Transform)
	assert.Equal(t, 0.0, v.Heading)
}

func TestVehicleController_TurnKeepsPlane(t *testing.T) {
	v, vc := newTestVehicle()

	for i := 0; i < 100; i++ {
		vc.Update(v, input.State{Forward: true, TurnLeft: true}, false)
	}
	assert.InDelta(t, -100*0.075, v.Heading, 1e-6)
	assert.InDelta(t, 2, v.Position().Z(), 1e-6)

	for i := 0; i < 40; i++ {
		vc.Update(v, input.State{Forward: true, TurnRight: true}, false)
	}
	assert.InDelta(t, -60*0.075, v.Heading, 1e-6)
	assert.InDelta(t, 2, v.Position().Z(), 1e-6)
}

func TestVehicleController_FrozenIgnoresTurns(t *testing.T) {
	v, vc := newTestVehicle()
	v.Velocity = 1

	before := v.Position()
	vc.Update(v, input.State{Forward: true, TurnRight: true}, true)

	assert.Equal(t, 0.0, v.Heading)
	assert.NotEqual(t, before, v.Position())
	assert.InDelta(t, 77.5, v.Position().X(), eps)
}

func TestVehicle_UpgradeAndDrop(t *testing.T) {
	v, _ := newTestVehicle()

	v.Upgrade(0.12, 0.002)
	assert.InDelta(t, 1.62, v.MaxSpeed, eps)
	assert.InDelta(t, 0.022, v.Acceleration, eps)
	assert.InDelta(t, 0.022, v.Deceleration, eps)

	v.Drop(0.3)
	assert.InDelta(t, 1.7, v.Position().Z(), eps)
	assert.InDelta(t, 77.5, v.Position().X(), eps)
}

func placeVehicle(s *RaceSession, pos mgl64.Vec3) {
	s.Vehicle().Transform = NewVehicle(s.Config().Vehicle, pos).Transform
}
