package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Track describes the ring the race runs on. The track plane is XY and +Z is
// up. It is also sent to clients on connect so they can draw the ring.
type Track struct {
	InnerRadius float64 `json:"innerRadius" msgpack:"innerRadius"`
	OuterRadius float64 `json:"outerRadius" msgpack:"outerRadius"`
	// EntityZ is the height obstacles and pickups float at.
	EntityZ float64 `json:"entityZ" msgpack:"entityZ"`
	// SunRadius and DiskScale size the static scenery.
	SunRadius float64 `json:"sunRadius" msgpack:"sunRadius"`
	DiskScale float64 `json:"diskScale" msgpack:"diskScale"`
}

func DefaultTrack() Track {
	return Track{
		InnerRadius: 70,
		OuterRadius: 85,
		EntityZ:     2,
		SunRadius:   45,
		DiskScale:   10,
	}
}

// Width is the radial size of the annulus.
func (t Track) Width() float64 {
	return t.OuterRadius - t.InnerRadius
}

// Contains reports whether r lies inside [inner-margin, outer+margin].
func (t Track) Contains(r, margin float64) bool {
	return r >= t.InnerRadius-margin && r <= t.OuterRadius+margin
}

// Radius is the distance of p from the track axis, ignoring height.
func Radius(p mgl64.Vec3) float64 {
	return math.Hypot(p.X(), p.Y())
}

// Angle is the polar angle of p in the track plane.
func Angle(p mgl64.Vec3) float64 {
	return math.Atan2(p.Y(), p.X())
}

// FromPolar places a point on the track plane at the given height.
func FromPolar(angle, radius, z float64) mgl64.Vec3 {
	return mgl64.Vec3{radius * math.Cos(angle), radius * math.Sin(angle), z}
}

// StaticScenery adds the sun and the track disk, which never move.
func (t Track) StaticScenery(s *Scene) {
	s.Add(Drawable{
		ID:        "sun",
		Shape:     ShapeSun,
		Material:  MaterialSun,
		Transform: mgl64.Scale3D(t.SunRadius, t.SunRadius, t.SunRadius),
	})
	s.Add(Drawable{
		ID:        "track",
		Shape:     ShapeTrack,
		Material:  MaterialTrack,
		Transform: mgl64.Scale3D(t.DiskScale, t.DiskScale, 0.5),
	})
}
