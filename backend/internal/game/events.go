package game

import "github.com/go-gl/mathgl/mgl64"

// RaceEventSink receives notable simulation events. Calls happen on the
// simulation goroutine inside a frame and must not block.
type RaceEventSink interface {
	PickupConsumed(kind PickupKind, slot int, pos mgl64.Vec3)
	ObstacleHit(index int, velocity float64)
	OffTrack(pos mgl64.Vec3, clockExpired bool)
	RaceOver(result RaceResult)
}

// RaceResult summarises a finished race.
type RaceResult struct {
	Score      int     `json:"score" msgpack:"score"`
	Collisions int     `json:"collisions" msgpack:"collisions"`
	Frames     uint64  `json:"frames" msgpack:"frames"`
	Elapsed    float64 `json:"elapsed" msgpack:"elapsed"`
	TimedOut   bool    `json:"timedOut" msgpack:"timedOut"`
}

// MultiSink fans events out to several sinks in order.
type MultiSink []RaceEventSink

func (m MultiSink) PickupConsumed(kind PickupKind, slot int, pos mgl64.Vec3) {
	for _, s := range m {
		s.PickupConsumed(kind, slot, pos)
	}
}

func (m MultiSink) ObstacleHit(index int, velocity float64) {
	for _, s := range m {
		s.ObstacleHit(index, velocity)
	}
}

func (m MultiSink) OffTrack(pos mgl64.Vec3, clockExpired bool) {
	for _, s := range m {
		s.OffTrack(pos, clockExpired)
	}
}

func (m MultiSink) RaceOver(result RaceResult) {
	for _, s := range m {
		s.RaceOver(result)
	}
}
