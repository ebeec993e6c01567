package utils

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/gpuexamples/input"
)

const (
	MaxPitch = 89

	CameraSpeed       = 0.1
	MouseRotateFactor = 0.1
)

// FlyCamera is a free camera with rotation in degrees. Mat returns the view
// matrix computed by the last Update.
type FlyCamera struct {
	position mgl32.Vec3
	rotation mgl32.Vec3
	mat      mgl32.Mat4
}

func NewFlyCamera() *FlyCamera {
	return &FlyCamera{mat: mgl32.Ident4()}
}

func (c *FlyCamera) MoveTo(p mgl32.Vec3) {
	c.position = p
}

func (c *FlyCamera) Move(offset mgl32.Vec3) {
	c.position = c.position.Add(offset)
}

// RotateX pitches the camera, clamped to [-89, 89] degrees.
func (c *FlyCamera) RotateX(angle float32) {
	c.rotation[0] = mgl32.Clamp(c.rotation[0]+angle, -MaxPitch, MaxPitch)
}

func (c *FlyCamera) RotateY(angle float32) {
	c.rotation[1] += angle
}

func (c *FlyCamera) Position() mgl32.Vec3 {
	return c.position
}

func (c *FlyCamera) Rotation() mgl32.Vec3 {
	return c.rotation
}

func (c *FlyCamera) Update() {
	c.mat = ViewMatrix(c.position, c.rotation)
}

func (c *FlyCamera) Mat() mgl32.Mat4 {
	return c.mat
}

// ViewMatrix is Rx(-rx) Ry(-ry) Rz(-rz) T(-position), angles in degrees.
func ViewMatrix(position, rotation mgl32.Vec3) mgl32.Mat4 {
	return mgl32.HomogRotate3DX(-mgl32.DegToRad(rotation[0])).
		Mul4(mgl32.HomogRotate3DY(-mgl32.DegToRad(rotation[1]))).
		Mul4(mgl32.HomogRotate3DZ(-mgl32.DegToRad(rotation[2]))).
		Mul4(mgl32.Translate3D(-position[0], -position[1], -position[2]))
}

// CameraController maps WASD to movement along x and z, mouse motion to
// yaw and pitch, and Escape to quit.
type CameraController struct {
	Camera      *FlyCamera
	Speed       float32
	MouseFactor float32
}

func NewCameraController(c *FlyCamera) *CameraController {
	return &CameraController{Camera: c, Speed: CameraSpeed, MouseFactor: MouseRotateFactor}
}

// HandleEvent applies ev to the camera and reports whether it asks to quit.
func (c *CameraController) HandleEvent(ev input.Event) bool {
	switch e := ev.(type) {
	case input.KeyDownEvent:
		switch e.Key {
		case input.KeyA:
			c.Camera.Move(mgl32.Vec3{-c.Speed, 0, 0})
		case input.KeyD:
			c.Camera.Move(mgl32.Vec3{c.Speed, 0, 0})
		case input.KeyW:
			c.Camera.Move(mgl32.Vec3{0, 0, -c.Speed})
		case input.KeyS:
			c.Camera.Move(mgl32.Vec3{0, 0, c.Speed})
		case input.KeyEscape:
			return true
		}
	case input.MouseMotionEvent:
		c.Camera.RotateX(-e.YRel * c.MouseFactor)
		c.Camera.RotateY(-e.XRel * c.MouseFactor)
	}
	return false
}
