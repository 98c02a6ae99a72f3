package app

import (
	"mini-rt/internal/entity"
	"mini-rt/internal/frame"
	"mini-rt/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// backgroundDim keeps the derived clear color dark
const backgroundDim = 0.25

// Scene owns the live entities of the demo and derives the frame background
// from the first one's orientation.
type Scene struct {
	factory  *entity.Factory
	entities []*entity.Entity
}

func NewScene(factory *entity.Factory) *Scene {
	return &Scene{factory: factory}
}

// Spawn adds a new entity to the scene
func (s *Scene) Spawn() *entity.Entity {
	e := s.factory.New()
	s.entities = append(s.entities, e)
	return e
}

// Update advances every entity and drops the dead ones
func (s *Scene) Update(dt float64) {
	alive := s.entities[:0]
	for _, e := range s.entities {
		e.Update(dt)
		if !e.IsDead() {
			alive = append(alive, e)
		}
	}
	for i := len(alive); i < len(s.entities); i++ {
		s.entities[i] = nil
	}
	s.entities = alive
}

func (s *Scene) Len() int { return len(s.entities) }

// Background maps the direction the first entity's transform sends the x
// axis to, onto red and green.
func (s *Scene) Background() gpu.ClearValues {
	if len(s.entities) == 0 {
		return frame.DefaultClear
	}
	e := s.entities[0]
	dir := e.Transform.Matrix().Mul2x1(mgl32.Vec2{1, 0})
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	}
	c := mgl32.Vec3{0.5 + 0.5*dir.X(), 0.5 + 0.5*dir.Y(), e.Color.Z()}.Mul(backgroundDim)
	return gpu.ClearValues{
		Color: [4]float32{c.X(), c.Y(), c.Z(), 1},
		Depth: frame.DefaultClear.Depth,
	}
}

// Each calls fn for every live entity in spawn order
func (s *Scene) Each(fn func(*entity.Entity)) {
	for _, e := range s.entities {
		fn(e)
	}
}
