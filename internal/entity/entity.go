package entity

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// ID identifies an entity within the Factory that created it
type ID uint64

// Transform2D places an entity in the plane. The linear part is rotation
// applied after scale; translation is applied last.
type Transform2D struct {
	Translation mgl32.Vec2
	Scale       mgl32.Vec2
	Rotation    float32 // radians
}

// Identity returns a transform that leaves points unchanged
func Identity() Transform2D {
	return Transform2D{Scale: mgl32.Vec2{1, 1}}
}

// Matrix returns the linear part, rotation * scale
func (t Transform2D) Matrix() mgl32.Mat2 {
	scale := mgl32.Mat2{t.Scale.X(), 0, 0, t.Scale.Y()}
	return mgl32.Rotate2D(t.Rotation).Mul2(scale)
}

// Homogeneous returns the full transform as a 3x3 matrix for 2D points
func (t Transform2D) Homogeneous() mgl32.Mat3 {
	return mgl32.Translate2D(t.Translation.X(), t.Translation.Y()).
		Mul3(mgl32.HomogRotate2D(t.Rotation)).
		Mul3(mgl32.Scale2D(t.Scale.X(), t.Scale.Y()))
}

// Apply transforms point p
func (t Transform2D) Apply(p mgl32.Vec2) mgl32.Vec2 {
	return t.Matrix().Mul2x1(p).Add(t.Translation)
}

// Entity is something drawn each frame
type Entity struct {
	id ID

	Transform Transform2D
	Color     mgl32.Vec3
	// Spin is the rotation speed in radians per second
	Spin float32
	Dead bool
}

func (e *Entity) ID() ID { return e.id }

// Update advances the entity by dt seconds
func (e *Entity) Update(dt float64) {
	e.Transform.Rotation += e.Spin * float32(dt)
}

func (e *Entity) IsDead() bool { return e.Dead }
func (e *Entity) SetDead()     { e.Dead = true }

// Factory hands out entities with ids unique to the factory
type Factory struct {
	mu   sync.Mutex
	next ID
}

func NewFactory() *Factory {
	return &Factory{}
}

// New creates an entity with the next id and an identity transform
func (f *Factory) New() *Entity {
	f.mu.Lock()
	id := f.next
	f.next++
	f.mu.Unlock()

	return &Entity{id: id, Transform: Identity(), Color: mgl32.Vec3{1, 1, 1}}
}

// Issued returns how many ids the factory has handed out
func (f *Factory) Issued() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int(f.next)
}
