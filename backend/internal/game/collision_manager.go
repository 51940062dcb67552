package game

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// CollisionManager tests the vehicle against every active pickup and every
// obstacle using a plain distance threshold. Pickups are checked before
// obstacles and each collection is walked in index order.
type CollisionManager struct {
	threshold   float64
	nudgeFactor float64
	logger      zerolog.Logger
	sink        RaceEventSink

	vehicle   *Vehicle
	obstacles *ObstacleField
	pickups   []*PickupRegistry

	collisions int
}

func NewCollisionManager(threshold, nudgeFactor float64, vehicle *Vehicle, obstacles *ObstacleField, logger zerolog.Logger, pickups ...*PickupRegistry) *CollisionManager {
	return &CollisionManager{
		threshold:   threshold,
		nudgeFactor: nudgeFactor,
		logger:      logger.With().Str("component", "CollisionManager").Logger(),
		vehicle:     vehicle,
		obstacles:   obstacles,
		pickups:     pickups,
	}
}

// SetEventSink attaches the receiver of pickup and hit events.
func (cm *CollisionManager) SetEventSink(sink RaceEventSink) {
	cm.sink = sink
}

// Check applies every effect for the vehicle at pos.
func (cm *CollisionManager) Check(pos mgl64.Vec3) {
	for _, registry := range cm.pickups {
		cm.checkPickups(pos, registry)
	}
	cm.checkObstacles(pos)
}

func (cm *CollisionManager) checkPickups(pos mgl64.Vec3, registry *PickupRegistry) {
	for i := 0; i < registry.Len(); i++ {
		if !registry.Active(i) {
			continue
		}

		slot := registry.Slot(i)
		if pos.Sub(slot).Len() >= cm.threshold {
			continue
		}

		if !registry.Consume(i) {
			continue
		}

		cm.logger.Debug().
			Str("kind", string(registry.Kind())).
			Int("slot", i).
			Int("active", registry.ActiveCount()).
			Int("target", registry.Target()).
			Msg("pickup consumed")

		if cm.sink != nil {
			cm.sink.PickupConsumed(registry.Kind(), i, slot)
		}
	}
}

func (cm *CollisionManager) checkObstacles(pos mgl64.Vec3) {
	for i := 0; i < cm.obstacles.Len(); i++ {
		o := cm.obstacles.At(i)
		if pos.Sub(o.Position).Len() >= cm.threshold {
			continue
		}

		o.Reverse()
		if cm.vehicle.Velocity != 0 {
			cm.vehicle.Velocity = -cm.vehicle.Velocity
		} else {
			cm.vehicle.Velocity = -cm.nudgeFactor * o.Speed
		}
		cm.collisions++

		cm.logger.Debug().
			Int("obstacle", i).
			Float64("velocity", cm.vehicle.Velocity).
			Int("collisions", cm.collisions).
			Msg("obstacle hit")

		if cm.sink != nil {
			cm.sink.ObstacleHit(i, cm.vehicle.Velocity)
		}
	}
}

// Collisions is the number of obstacle hits so far.
func (cm *CollisionManager) Collisions() int {
	return cm.collisions
}
