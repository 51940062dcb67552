package game

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"space-racer/backend/internal/world"
)

// Radial directions of obstacle travel.
const (
	Inward  = -1
	Outward = 1
)

// Obstacle drifts along a fixed ray from the track centre.
type Obstacle struct {
	Position  mgl64.Vec3
	Speed     float64
	Direction int
}

// Radius is the obstacle's distance from the track axis.
func (o *Obstacle) Radius() float64 {
	return world.Radius(o.Position)
}

// Reverse flips the radial direction.
func (o *Obstacle) Reverse() {
	o.Direction = -o.Direction
}

// ObstacleField owns every obstacle and bounces them between the radial
// limits of the annulus widened by Margin.
type ObstacleField struct {
	cfg       ObstacleConfig
	track     world.Track
	rng       *rand.Rand
	obstacles []Obstacle
}

func NewObstacleField(cfg ObstacleConfig, track world.Track, rng *rand.Rand) *ObstacleField {
	return &ObstacleField{
		cfg:   cfg,
		track: track,
		rng:   rng,
	}
}

// Generate replaces the field with count obstacles spread around the ring.
func (f *ObstacleField) Generate(count int) {
	f.obstacles = make([]Obstacle, 0, count)
	if count <= 0 {
		return
	}

	increment := 2 * math.Pi / float64(count)
	for i := 0; i < count; i++ {
		angle := float64(i)*increment + f.jitter()
		distance := f.track.InnerRadius + f.rng.Float64()*f.track.Width()

		direction := Outward
		if f.rng.Float64() < 0.5 {
			direction = Inward
		}

		f.obstacles = append(f.obstacles, Obstacle{
			Position:  world.FromPolar(angle, distance, f.track.EntityZ),
			Speed:     f.rng.Float64()*f.cfg.SpeedRange + f.cfg.MinSpeed,
			Direction: direction,
		})
	}
}

// jitter is a whole number of radians in [JitterMin, JitterMax] with a
// random sign. Whole radians scatter obstacles far from their even spacing.
func (f *ObstacleField) jitter() float64 {
	n := f.rng.IntN(f.cfg.JitterMax-f.cfg.JitterMin+1) + f.cfg.JitterMin
	if f.rng.Float64() < 0.5 {
		return -float64(n)
	}
	return float64(n)
}

// AdvanceAll moves every obstacle one step along its ray.
func (f *ObstacleField) AdvanceAll() {
	outer := f.track.OuterRadius + f.cfg.Margin
	inner := f.track.InnerRadius - f.cfg.Margin

	for i := range f.obstacles {
		o := &f.obstacles[i]
		angle := world.Angle(o.Position)
		next := o.Radius() + float64(o.Direction)*o.Speed

		if !f.track.Contains(next, f.cfg.Margin) {
			if next > outer {
				next = outer - f.cfg.Buffer
				o.Direction = Inward
			} else {
				next = inner + f.cfg.Buffer
				o.Direction = Outward
			}
		}

		o.Position = world.FromPolar(angle, next, o.Position.Z())
	}
}

// Reverse flips obstacle i, used when the vehicle hits it.
func (f *ObstacleField) Reverse(i int) {
	f.obstacles[i].Reverse()
}

func (f *ObstacleField) Len() int {
	return len(f.obstacles)
}

// At returns a pointer into the field; callers on the simulation goroutine
// may mutate it.
func (f *ObstacleField) At(i int) *Obstacle {
	return &f.obstacles[i]
}

// Obstacles returns a copy of the field.
func (f *ObstacleField) Obstacles() []Obstacle {
	out := make([]Obstacle, len(f.obstacles))
	copy(out, f.obstacles)
	return out
}

// Set replaces the field, mostly for tests and replays.
func (f *ObstacleField) Set(obstacles []Obstacle) {
	f.obstacles = append(f.obstacles[:0], obstacles...)
}
