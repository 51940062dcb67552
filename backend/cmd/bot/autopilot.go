package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"space-racer/backend/internal/world"
)

const (
	// radialGain bends the desired course back toward the middle of the ring
	// per unit of radial error.
	radialGain = 0.15
	// deadband is the heading error, in radians, left uncorrected.
	deadband = 0.02
	// coastAngle releases the throttle while the nose is this far off course.
	coastAngle = 0.6
)

// Decision is the key set the autopilot wants held.
type Decision struct {
	Forward   bool
	TurnLeft  bool
	TurnRight bool
}

// Steer follows the counter-clockwise tangent of the ring and corrects toward
// its centre line. Heading is the accumulated turn angle: the nose points
// along (sin h, cos h) in the track plane and turning right increases h.
func Steer(pos mgl64.Vec3, heading float64, track world.Track) Decision {
	r := world.Radius(pos)
	if r == 0 {
		return Decision{Forward: true}
	}

	radial := mgl64.Vec2{pos.X() / r, pos.Y() / r}
	tangent := mgl64.Vec2{-radial.Y(), radial.X()}

	mid := (track.InnerRadius + track.OuterRadius) / 2
	desired := tangent.Sub(radial.Mul(radialGain * (r - mid)))

	errAngle := wrapAngle(math.Atan2(desired.X(), desired.Y()) - heading)

	d := Decision{Forward: math.Abs(errAngle) < coastAngle}
	switch {
	case errAngle > deadband:
		d.TurnRight = true
	case errAngle < -deadband:
		d.TurnLeft = true
	}
	return d
}

// wrapAngle maps a to (-pi, pi].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
