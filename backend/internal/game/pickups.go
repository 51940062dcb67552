package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"space-racer/backend/internal/world"
)

var ErrTargetExceedsSlots = errors.New("pickup target count must be below slot count")

// PickupKind distinguishes the two registries.
type PickupKind string

const (
	PickupTimeBonus PickupKind = "time_bonus"
	PickupCoin      PickupKind = "coin"
)

// Shape returns the mesh used to draw pickups of this kind.
func (k PickupKind) Shape() (world.ShapeType, world.Material) {
	if k == PickupCoin {
		return world.ShapeCoin, world.MaterialCoin
	}
	return world.ShapeTimeBonus, world.MaterialTimeBonus
}

// PickupEffect is applied after a slot has been consumed.
type PickupEffect func(slot int)

// PickupRegistry is a fixed ring of candidate slots of which exactly target
// are active at any time outside of Consume.
type PickupRegistry struct {
	kind   PickupKind
	track  world.Track
	rng    *rand.Rand
	effect PickupEffect

	slots  []mgl64.Vec3
	active []bool
	count  int
	target int
}

// NewPickupRegistry generates slots and activates target of them. The target
// must stay below the slot count so a replacement other than the consumed
// slot always exists.
func NewPickupRegistry(kind PickupKind, slots, target int, track world.Track, rng *rand.Rand, effect PickupEffect) (*PickupRegistry, error) {
	if target < 0 || target >= slots {
		return nil, fmt.Errorf("%w: %s registry has %d slots, target %d", ErrTargetExceedsSlots, kind, slots, target)
	}

	r := &PickupRegistry{
		kind:   kind,
		track:  track,
		rng:    rng,
		effect: effect,
		target: target,
	}
	r.GenerateSlots(slots)
	r.EnsureActive(target)
	return r, nil
}

// GenerateSlots places count slots at evenly spaced angles with a random
// radius inside the annulus. All slots start inactive.
func (r *PickupRegistry) GenerateSlots(count int) {
	r.slots = make([]mgl64.Vec3, count)
	r.active = make([]bool, count)
	r.count = 0

	increment := 2 * math.Pi / float64(count)
	for i := range r.slots {
		distance := r.track.InnerRadius + r.rng.Float64()*r.track.Width()
		r.slots[i] = world.FromPolar(float64(i)*increment, distance, r.track.EntityZ)
	}
}

// EnsureActive activates random inactive slots until target are active.
func (r *PickupRegistry) EnsureActive(target int) {
	r.ensureActive(target, -1)
}

// ensureActive never picks skip, so a consumed slot cannot respawn in place.
func (r *PickupRegistry) ensureActive(target, skip int) {
	limit := len(r.slots)
	if skip >= 0 {
		limit--
	}
	if target > limit {
		target = limit
	}

	for r.count < target {
		i := r.rng.IntN(len(r.slots))
		if r.active[i] || i == skip {
			continue
		}
		r.active[i] = true
		r.count++
	}
}

// Consume deactivates slot i, restores the target and fires the effect.
// Consuming an inactive slot does nothing and reports false.
func (r *PickupRegistry) Consume(i int) bool {
	if i < 0 || i >= len(r.slots) || !r.active[i] {
		return false
	}

	r.active[i] = false
	r.count--
	r.ensureActive(r.target, i)

	if r.effect != nil {
		r.effect(i)
	}
	return true
}

func (r *PickupRegistry) Kind() PickupKind {
	return r.kind
}

func (r *PickupRegistry) Active(i int) bool {
	return r.active[i]
}

func (r *PickupRegistry) ActiveCount() int {
	return r.count
}

func (r *PickupRegistry) Target() int {
	return r.target
}

func (r *PickupRegistry) Len() int {
	return len(r.slots)
}

// Slot returns the position of slot i.
func (r *PickupRegistry) Slot(i int) mgl64.Vec3 {
	return r.slots[i]
}

// ActiveSlots lists active slot indices in ascending order.
func (r *PickupRegistry) ActiveSlots() []int {
	out := make([]int, 0, r.count)
	for i, on := range r.active {
		if on {
			out = append(out, i)
		}
	}
	return out
}
