package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"space-racer/backend/internal/input"
	"space-racer/backend/internal/world"
)

// Local axes of the UFO model. The mesh faces -Z and spins about +Y.
var (
	localUp = mgl64.Vec3{0, 1, 0}
)

// Vehicle is the player's UFO.
type Vehicle struct {
	Transform mgl64.Mat4
	Velocity  float64
	// Heading accumulates turns for the chase camera: left is negative.
	Heading float64

	Acceleration float64
	Deceleration float64
	MaxSpeed     float64
}

// NewVehicle places the UFO at start with its nose along world +Y, which is
// the counter-clockwise tangent when start lies on the +X axis.
func NewVehicle(cfg VehicleConfig, start mgl64.Vec3) *Vehicle {
	transform := mgl64.Translate3D(start.X(), start.Y(), start.Z()).
		Mul4(mgl64.HomogRotate3D(math.Pi/2, mgl64.Vec3{1, 0, 0})).
		Mul4(mgl64.Scale3D(cfg.Scale, cfg.Scale, cfg.Scale))

	return &Vehicle{
		Transform:    transform,
		Acceleration: cfg.Acceleration,
		Deceleration: cfg.Deceleration,
		MaxSpeed:     cfg.MaxSpeed,
	}
}

// Position is the world-space origin of the vehicle.
func (v *Vehicle) Position() mgl64.Vec3 {
	return world.Position(v.Transform)
}

// Forward is the unit world direction of travel for positive velocity.
func (v *Vehicle) Forward() mgl64.Vec3 {
	return v.Transform.Mul4x1(mgl64.Vec4{0, 0, -1, 0}).Vec3().Normalize()
}

// Upgrade applies a permanent coin bonus.
func (v *Vehicle) Upgrade(maxSpeed, accel float64) {
	v.MaxSpeed += maxSpeed
	v.Acceleration += accel
	v.Deceleration += accel
}

// Drop moves the vehicle straight down in world space.
func (v *Vehicle) Drop(distance float64) {
	v.Transform = mgl64.Translate3D(0, 0, -distance).Mul4(v.Transform)
}

// VehicleController turns held keys into velocity and heading changes.
type VehicleController struct {
	turnRate float64
}

func NewVehicleController(turnRate float64) *VehicleController {
	return &VehicleController{turnRate: turnRate}
}

// Update advances the vehicle by one frame. Turning is ignored while frozen;
// the vehicle still coasts along its current velocity.
func (vc *VehicleController) Update(v *Vehicle, in input.State, frozen bool) {
	switch {
	case in.Forward:
		v.Velocity = math.Min(v.MaxSpeed, v.Velocity+v.Acceleration)
	case in.Backward:
		v.Velocity = math.Max(-v.MaxSpeed, v.Velocity-v.Deceleration)
	case v.Velocity > 0:
		v.Velocity = math.Max(0, v.Velocity-v.Deceleration)
	case v.Velocity < 0:
		v.Velocity = math.Min(0, v.Velocity+v.Deceleration)
	}
	v.Velocity = clampSpeed(v.Velocity, v.MaxSpeed)

	if v.Velocity == 0 {
		return
	}

	v.Transform = v.Transform.Mul4(mgl64.Translate3D(0, 0, -v.Velocity))

	if frozen {
		return
	}
	if in.TurnLeft {
		v.Heading -= vc.turnRate
		v.Transform = v.Transform.Mul4(mgl64.HomogRotate3D(vc.turnRate, localUp))
	}
	if in.TurnRight {
		v.Heading += vc.turnRate
		v.Transform = v.Transform.Mul4(mgl64.HomogRotate3D(-vc.turnRate, localUp))
	}
}

func clampSpeed(v, maxSpeed float64) float64 {
	return math.Max(-maxSpeed, math.Min(maxSpeed, v))
}
