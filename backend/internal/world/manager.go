package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Scene collects the drawables of a single frame in insertion order.
// It is rebuilt by the simulation goroutine every frame and must not be
// shared; Drawables returns a copy for other goroutines.
type Scene struct {
	drawables []Drawable
	index     map[string]int
}

func NewScene() *Scene {
	return &Scene{
		drawables: make([]Drawable, 0, 64),
		index:     make(map[string]int, 64),
	}
}

// Reset empties the scene, keeping its capacity.
func (s *Scene) Reset() {
	s.drawables = s.drawables[:0]
	for id := range s.index {
		delete(s.index, id)
	}
}

// Add appends a drawable. A duplicate ID replaces the earlier entry.
func (s *Scene) Add(d Drawable) {
	if i, exists := s.index[d.ID]; exists {
		s.drawables[i] = d
		return
	}
	s.index[d.ID] = len(s.drawables)
	s.drawables = append(s.drawables, d)
}

// AddAt is a shorthand for an untransformed shape placed at pos.
func (s *Scene) AddAt(id string, shape ShapeType, mat Material, pos mgl64.Vec3) {
	s.Add(Drawable{
		ID:        id,
		Shape:     shape,
		Material:  mat,
		Transform: mgl64.Translate3D(pos.X(), pos.Y(), pos.Z()),
	})
}

func (s *Scene) Get(id string) (Drawable, bool) {
	i, exists := s.index[id]
	if !exists {
		return Drawable{}, false
	}
	return s.drawables[i], true
}

func (s *Scene) Len() int {
	return len(s.drawables)
}

// Drawables returns a copy of the frame's drawables.
func (s *Scene) Drawables() []Drawable {
	out := make([]Drawable, len(s.drawables))
	copy(out, s.drawables)
	return out
}

// Render hands every drawable to r in insertion order.
func (s *Scene) Render(r Renderer) {
	for _, d := range s.drawables {
		r.Draw(d)
	}
}

// EntityID builds the stable IDs used for indexed entities ("coin_3").
func EntityID(kind string, index int) string {
	return fmt.Sprintf("%s_%d", kind, index)
}
