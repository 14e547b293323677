package graphics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	cameraSpeed      = 2.5
	cameraFastSpeed  = 8.2
	mouseSensitivity = 0.1

	minZoom     = 1.0
	defaultZoom = 45.0
)

// Movement is a direction the camera can fly in.
type Movement int

const (
	MoveForward Movement = iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

// Camera is a free-fly camera. Yaw and pitch are in degrees, zoom is the
// vertical field of view in degrees.
type Camera struct {
	position mgl32.Vec3
	front    mgl32.Vec3
	up       mgl32.Vec3
	right    mgl32.Vec3
	worldUp  mgl32.Vec3

	Yaw   float32
	Pitch float32
	zoom  float32
}

func NewCamera() *Camera {
	c := &Camera{
		worldUp: mgl32.Vec3{0, 1, 0},
		Yaw:     -90,
		zoom:    defaultZoom,
	}
	c.updateVectors()
	return c
}

func (c *Camera) updateVectors() {
	yaw := mgl32.DegToRad(c.Yaw)
	pitch := mgl32.DegToRad(c.Pitch)
	c.front = mgl32.Vec3{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	}.Normalize()
	c.right = c.front.Cross(c.worldUp).Normalize()
	c.up = c.right.Cross(c.front).Normalize()
}

func (c *Camera) Position() mgl32.Vec3 { return c.position }
func (c *Camera) Front() mgl32.Vec3    { return c.front }
func (c *Camera) Zoom() float32        { return c.zoom }

func (c *Camera) SetPosition(p mgl32.Vec3) { c.position = p }

// LookAt turns the camera towards target.
func (c *Camera) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.position)
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()
	c.Pitch = mgl32.RadToDeg(math32.Asin(dir[1]))
	c.Yaw = mgl32.RadToDeg(math32.Atan2(dir[2], dir[0]))
	c.clampPitch()
	c.updateVectors()
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.position.Add(c.front), c.up)
}

// ProjectionMatrix returns the perspective projection for the given aspect ratio.
func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.zoom), aspect, 0.1, 200)
}

// Move flies the camera for dt seconds.
func (c *Camera) Move(m Movement, fast bool, dt float32) {
	speed := float32(cameraSpeed)
	if fast {
		speed = cameraFastSpeed
	}
	v := speed * dt
	switch m {
	case MoveForward:
		c.position = c.position.Add(c.front.Mul(v))
	case MoveBackward:
		c.position = c.position.Sub(c.front.Mul(v))
	case MoveLeft:
		c.position = c.position.Sub(c.right.Mul(v))
	case MoveRight:
		c.position = c.position.Add(c.right.Mul(v))
	case MoveUp:
		c.position = c.position.Add(c.up.Mul(v))
	case MoveDown:
		c.position = c.position.Sub(c.up.Mul(v))
	}
}

// Rotate applies a mouse delta in screen pixels.
func (c *Camera) Rotate(dx, dy float32) {
	c.Yaw += dx * mouseSensitivity
	c.Pitch += dy * mouseSensitivity
	c.clampPitch()
	c.updateVectors()
}

func (c *Camera) clampPitch() {
	if c.Pitch > 89 {
		c.Pitch = 89
	}
	if c.Pitch < -89 {
		c.Pitch = -89
	}
}

// ZoomBy narrows the field of view by offset degrees.
func (c *Camera) ZoomBy(offset float32) {
	c.zoom -= offset
	if c.zoom < minZoom {
		c.zoom = minZoom
	}
	if c.zoom > defaultZoom {
		c.zoom = defaultZoom
	}
}
