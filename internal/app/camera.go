package app

import (
	"mini-rt/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	fovY      = 70
	nearPlane = 0.1
	farPlane  = 100

	lookSensitivity = 0.1
	maxPitch        = 89.0
	cameraDistance  = 3

	// pitchBrightness is the brightness change at full pitch
	pitchBrightness = 0.5
)

// Camera orbits the origin at a fixed distance and handles the view and
// projection matrices.
type Camera struct {
	FOV       float32
	NearPlane float32
	FarPlane  float32

	// Yaw and Pitch are in degrees
	Yaw   float64
	Pitch float64
}

func NewCamera() *Camera {
	return &Camera{
		FOV:       fovY,
		NearPlane: nearPlane,
		FarPlane:  farPlane,
	}
}

// Look turns the camera by a cursor movement
func (c *Camera) Look(dx, dy float64) {
	c.Yaw += dx * lookSensitivity
	c.Pitch -= dy * lookSensitivity

	// Constrain pitch
	if c.Pitch > maxPitch {
		c.Pitch = maxPitch
	}
	if c.Pitch < -maxPitch {
		c.Pitch = -maxPitch
	}
}

func (c *Camera) Reset() {
	c.Yaw, c.Pitch = 0, 0
}

// Position is where the camera sits on its orbit
func (c *Camera) Position() mgl32.Vec3 {
	yaw := mgl32.DegToRad(float32(c.Yaw))
	pitch := mgl32.DegToRad(float32(c.Pitch))
	rot := mgl32.AnglesToQuat(yaw, pitch, 0, mgl32.YXZ)
	return rot.Rotate(mgl32.Vec3{0, 0, cameraDistance})
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}

func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.NearPlane, c.FarPlane)
}

// Shade tints clear values by the camera's orbit: yaw rotates the hue around
// the gray axis and pitch scales brightness. At rest the values are
// returned unchanged.
func (c *Camera) Shade(clear gpu.ClearValues) gpu.ClearValues {
	hue := mgl32.QuatRotate(mgl32.DegToRad(float32(c.Yaw)), mgl32.Vec3{1, 1, 1}.Normalize())
	rgb := hue.Rotate(mgl32.Vec3{clear.Color[0], clear.Color[1], clear.Color[2]})
	rgb = rgb.Mul(1 + float32(c.Pitch/maxPitch)*pitchBrightness)
	for i := 0; i < 3; i++ {
		clear.Color[i] = mgl32.Clamp(rgb[i], 0, 1)
	}
	return clear
}
