package game

import (
	"github.com/go-gl/mathgl/mgl64"

	"space-racer/backend/internal/world"
)

// TrackBoundary classifies positions as on or off the ring.
type TrackBoundary struct {
	minRadius float64
	maxRadius float64
}

func NewTrackBoundary(track world.Track, cfg BoundaryConfig) TrackBoundary {
	return TrackBoundary{
		minRadius: track.InnerRadius - cfg.InnerMargin,
		maxRadius: track.OuterRadius + cfg.OuterMargin,
	}
}

// IsOffTrack depends only on pos.
func (b TrackBoundary) IsOffTrack(pos mgl64.Vec3) bool {
	r := world.Radius(pos)
	return r < b.minRadius || r > b.maxRadius || pos.Z() < 0
}
