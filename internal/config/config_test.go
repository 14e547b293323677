package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, float32(0.95), d.Exposure)
	assert.Equal(t, float32(0.8), d.Gamma)
	assert.Equal(t, float32(2), d.ShadowDistance)
	assert.Equal(t, float32(0.01), d.ShadowNear)
	assert.Equal(t, float32(120), d.ShadowFar)
	assert.Equal(t, float32(10), d.ShadowExtent)
	assert.Equal(t, 1024, d.ShadowResolution)
	assert.Equal(t, mgl32.Vec3{0.1, 5, 0}, d.LightDirection)
	assert.True(t, d.Shadows)
	assert.True(t, d.Tessellation)
	assert.Zero(t, d.FPSLimit)
	assert.Equal(t, d, clampAll(d), "defaults must already be in range")
}

func TestSettersClamp(t *testing.T) {
	t.Cleanup(func() { Replace(Defaults()) })

	SetExposure(-3)
	assert.Equal(t, float32(0.01), GetExposure())
	SetGamma(100)
	assert.Equal(t, float32(5), GetGamma())
	SetDebugView(7)
	assert.Equal(t, 0, GetDebugView())
	SetDebugView(1)
	assert.Equal(t, 1, GetDebugView())
	SetFPSLimit(-1)
	assert.Equal(t, 0, GetFPSLimit())

	SetWireframe(true)
	SetShadows(false)
	s := Current()
	assert.True(t, s.Wireframe)
	assert.False(t, s.Shadows)
}

func TestModelMatrix(t *testing.T) {
	s := Defaults()
	s.Scale = 2
	s.Translation = mgl32.Vec3{1, 0, 0}
	p := s.ModelMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	// translation happens in model space, before the scale
	assert.InDelta(t, 2, p[0], 1e-5)

	s.Translation = mgl32.Vec3{}
	s.Rotation = mgl32.Vec3{0, 90, 0}
	p = s.ModelMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, -2, p[2], 1e-5)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
width = 640
height = 480

[render]
exposure = 1.5
debug_view = 1
rotation = [0.0, 45.0, 0.0]

[shadow]
enabled = false
extent = 4.0

[light]
direction = [0.0, 1.0, 0.0]

[paths]
shaders = "/tmp/shaders"
`)
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 640, f.Window.Width)
	assert.Equal(t, 480, f.Window.Height)
	assert.Equal(t, "defview", f.Window.Title, "missing keys keep their defaults")
	assert.Equal(t, "/tmp/shaders", f.Paths.Shaders)
	assert.Equal(t, "assets/scenes/showcase.json", f.Paths.Scene)

	s := f.Snapshot()
	assert.Equal(t, float32(1.5), s.Exposure)
	assert.Equal(t, float32(0.8), s.Gamma)
	assert.Equal(t, 1, s.DebugView)
	assert.False(t, s.Shadows)
	assert.Equal(t, float32(4), s.ShadowExtent)
	assert.Equal(t, float32(120), s.ShadowFar)
	assert.Equal(t, mgl32.Vec3{0, 45, 0}, s.Rotation)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, s.LightDirection)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[render\nexposure = 1"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[window]\nwidth = 0\n"))
	assert.ErrorContains(t, err, "window size")
}

func TestApply(t *testing.T) {
	t.Cleanup(func() { Replace(Defaults()) })
	f := DefaultFile()
	f.Render.Gamma = 2.2
	f.Apply()
	assert.Equal(t, float32(2.2), GetGamma())
}
