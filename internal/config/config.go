package config

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Snapshot is a copy of the render settings taken once per frame.
type Snapshot struct {
	Exposure float32
	Gamma    float32

	Wireframe bool
	Shadows   bool
	// DebugView 0 presents the final image, 1 the G-Buffer quadrants.
	DebugView int

	Tessellation bool
	TessInner    float32
	TessOuter    float32

	// Multipliers of the light components in both light passes.
	LightAmbient  float32
	LightDiffuse  float32
	LightSpecular float32

	ShadowDistance   float32
	ShadowNear       float32
	ShadowFar        float32
	ShadowExtent     float32
	ShadowResolution int

	// Directional light used when the scene defines none.
	LightDirection mgl32.Vec3
	LightColor     mgl32.Vec3

	Scale       float32
	Rotation    mgl32.Vec3 // degrees
	Translation mgl32.Vec3

	FPSLimit int
}

// Defaults returns the settings the viewer starts with.
func Defaults() Snapshot {
	return Snapshot{
		Exposure:         0.95,
		Gamma:            0.8,
		Shadows:          true,
		Tessellation:     true,
		TessInner:        1,
		TessOuter:        1,
		LightAmbient:     1,
		LightDiffuse:     1,
		LightSpecular:    1,
		ShadowDistance:   2,
		ShadowNear:       0.01,
		ShadowFar:        120,
		ShadowExtent:     10,
		ShadowResolution: 1024,
		LightDirection:   mgl32.Vec3{0.1, 5, 0},
		LightColor:       mgl32.Vec3{1, 1, 1},
		Scale:            0.625,
	}
}

// ModelMatrix builds scale, then rotation about X, Y and Z, then
// translation in model space.
func (s Snapshot) ModelMatrix() mgl32.Mat4 {
	return mgl32.Scale3D(s.Scale, s.Scale, s.Scale).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(s.Rotation[0]))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(s.Rotation[1]))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(s.Rotation[2]))).
		Mul4(mgl32.Translate3D(s.Translation[0], s.Translation[1], s.Translation[2]))
}

// RenderSettings holds render configuration
type RenderSettings struct {
	mu sync.RWMutex
	s  Snapshot
}

var globalRenderSettings = &RenderSettings{s: Defaults()}

// Current returns a copy of the render settings.
func Current() Snapshot {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.s
}

// Replace swaps in new settings, clamped to their valid ranges.
func Replace(s Snapshot) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	globalRenderSettings.s = clampAll(s)
}

func update(f func(s *Snapshot)) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	f(&globalRenderSettings.s)
	globalRenderSettings.s = clampAll(globalRenderSettings.s)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampAll(s Snapshot) Snapshot {
	s.Exposure = clamp(s.Exposure, 0.01, 10)
	s.Gamma = clamp(s.Gamma, 0.1, 5)
	if s.DebugView < 0 || s.DebugView > 1 {
		s.DebugView = 0
	}
	s.TessInner = clamp(s.TessInner, 1, 64)
	s.TessOuter = clamp(s.TessOuter, 1, 64)
	s.LightAmbient = clamp(s.LightAmbient, 0, 5)
	s.LightDiffuse = clamp(s.LightDiffuse, 0, 5)
	s.LightSpecular = clamp(s.LightSpecular, 0, 5)
	s.ShadowNear = clamp(s.ShadowNear, 0.001, 1000)
	s.ShadowFar = clamp(s.ShadowFar, s.ShadowNear+0.001, 10000)
	s.ShadowExtent = clamp(s.ShadowExtent, 0.1, 1000)
	if s.ShadowResolution < 16 {
		s.ShadowResolution = 16
	}
	if s.ShadowResolution > 8192 {
		s.ShadowResolution = 8192
	}
	if s.Scale <= 0 {
		s.Scale = 1
	}
	if s.FPSLimit < 0 {
		s.FPSLimit = 0
	}
	return s
}

// GetExposure returns the tone mapping exposure
func GetExposure() float32 { return Current().Exposure }

// SetExposure sets the tone mapping exposure
func SetExposure(v float32) { update(func(s *Snapshot) { s.Exposure = v }) }

func GetGamma() float32     { return Current().Gamma }
func SetGamma(v float32)    { update(func(s *Snapshot) { s.Gamma = v }) }
func GetWireframe() bool    { return Current().Wireframe }
func SetWireframe(on bool)  { update(func(s *Snapshot) { s.Wireframe = on }) }
func GetShadows() bool      { return Current().Shadows }
func SetShadows(on bool)    { update(func(s *Snapshot) { s.Shadows = on }) }
func GetDebugView() int     { return Current().DebugView }
func SetDebugView(mode int) { update(func(s *Snapshot) { s.DebugView = mode }) }

// GetFPSLimit returns the frame cap, 0 meaning uncapped
func GetFPSLimit() int { return Current().FPSLimit }

// SetFPSLimit sets the frame cap
func SetFPSLimit(limit int) { update(func(s *Snapshot) { s.FPSLimit = limit }) }
