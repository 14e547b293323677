package input

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestFullscreenToggleIsEdgeTriggered(t *testing.T) {
	m := NewManager()

	m.HandleKeyEvent(glfw.KeyF2, glfw.Press)
	assert.True(t, m.JustPressed(ActionToggleFullscreen))
	assert.True(t, m.IsActive(ActionToggleFullscreen))

	// holding the key repeats without a new edge
	m.PostUpdate()
	m.HandleKeyEvent(glfw.KeyF2, glfw.Repeat)
	assert.False(t, m.JustPressed(ActionToggleFullscreen))

	m.HandleKeyEvent(glfw.KeyF2, glfw.Release)
	assert.True(t, m.JustReleased(ActionToggleFullscreen))
	assert.False(t, m.IsActive(ActionToggleFullscreen))
}

func TestActionNames(t *testing.T) {
	assert.Equal(t, "fullscreen", ActionToggleFullscreen.String())
	assert.Equal(t, "exposureDown", ActionExposureDown.String())
	assert.Equal(t, "unknown", ActionCount.String())
	for a := ActionQuit; a < ActionCount; a++ {
		assert.NotEmpty(t, a.String(), "action %d", a)
	}
}

func TestLookOnlyWhileHeld(t *testing.T) {
	m := NewManager()
	m.HandleCursor(10, 10)
	m.HandleCursor(20, 5)
	dx, dy := m.ConsumeLook()
	assert.Zero(t, dx)
	assert.Zero(t, dy)

	m.HandleMouseButtonEvent(glfw.MouseButtonLeft, glfw.Press)
	m.HandleCursor(25, 0)
	dx, dy = m.ConsumeLook()
	assert.Equal(t, 5.0, dx)
	assert.Equal(t, 5.0, dy)
}
