package graphics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestNewCameraLooksDownNegativeZ(t *testing.T) {
	c := NewCamera()
	front := c.Front()
	assert.InDelta(t, 0, front[0], 1e-5)
	assert.InDelta(t, 0, front[1], 1e-5)
	assert.InDelta(t, -1, front[2], 1e-5)
	assert.Equal(t, float32(45), c.Zoom())
}

func TestPitchIsClamped(t *testing.T) {
	c := NewCamera()
	c.Rotate(0, 5000)
	assert.Equal(t, float32(89), c.Pitch)
	c.Rotate(0, -50000)
	assert.Equal(t, float32(-89), c.Pitch)
}

func TestZoomIsClamped(t *testing.T) {
	c := NewCamera()
	c.ZoomBy(100)
	assert.Equal(t, float32(1), c.Zoom())
	c.ZoomBy(-100)
	assert.Equal(t, float32(45), c.Zoom())
}

func TestMoveUsesSpeed(t *testing.T) {
	c := NewCamera()
	c.Move(MoveForward, false, 1)
	assert.InDelta(t, -2.5, c.Position()[2], 1e-5)
	c.Move(MoveBackward, true, 1)
	assert.InDelta(t, 5.7, c.Position()[2], 1e-4)
}

func TestLookAtCentersTarget(t *testing.T) {
	c := NewCamera()
	c.SetPosition(mgl32.Vec3{0, 3, 3})
	c.LookAt(mgl32.Vec3{})
	assert.InDelta(t, -45, c.Pitch, 1e-3)
	assert.InDelta(t, -90, c.Yaw, 1e-3)

	clip := c.ProjectionMatrix(1).Mul4(c.ViewMatrix()).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-4)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-4)
}
