package renderer

import (
	"io/fs"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"defview/internal/config"
	"defview/internal/graphics"
	"defview/internal/scene"
)

// Program names, which are also the shader directory names.
const (
	ProgramModel       = "model"
	ProgramPointLight  = "pointLight"
	ProgramDirLight    = "dirLight"
	ProgramPostProcess = "postProcess"
	ProgramDirShadow   = "dirShadow"
)

// Pass names as they appear in FrameStats, debug groups and profiling.
const (
	PassGeometry    = "Geometry"
	PassPointLight  = "PointLight"
	PassShadow      = "Shadow"
	PassDirLight    = "DirLight"
	PassPostProcess = "PostProcess"
	PassPresent     = "Present"
)

// Presentation modes.
const (
	ViewFinal     = 0
	ViewQuadrants = 1
)

// Camera is what the renderer reads from the camera each frame.
type Camera interface {
	ViewMatrix() mgl32.Mat4
	// Zoom is the vertical field of view in degrees.
	Zoom() float32
	Position() mgl32.Vec3
}

// SceneDrawer issues the draw calls of all opaque geometry with the
// program in use.
type SceneDrawer interface {
	DrawScene(p *graphics.Program, tessellation bool)
}

// Frame is everything one call to Draw renders.
type Frame struct {
	Width, Height int

	Camera      Camera
	Scene       SceneDrawer
	PointLights []scene.PointLight
	// DirLight may be nil; the directional pass then only adds emission.
	DirLight *scene.DirLight

	Settings config.Snapshot
}

// FrameStats lists the passes of a frame in the order they ran.
type FrameStats struct {
	Passes  []string
	Skipped []string
}

// Ran reports whether the named pass ran.
func (s FrameStats) Ran(pass string) bool {
	for _, p := range s.Passes {
		if p == pass {
			return true
		}
	}
	return false
}

type Options struct {
	Logger *zap.Logger
	// Shaders holds <name>/<name>.<stage> sources under ShaderDir.
	Shaders   fs.FS
	ShaderDir string
	// ShadowResolution defaults to shadow.DefaultResolution.
	ShadowResolution int
}

// NewFrame assembles the input of Draw for a scene. A scene without a
// directional light is lit by the light of the settings.
func NewFrame(width, height int, cam Camera, sc *scene.Scene, s config.Snapshot) Frame {
	f := Frame{
		Width:    width,
		Height:   height,
		Camera:   cam,
		Settings: s,
	}
	if sc == nil {
		return f
	}
	f.Scene = sc
	f.PointLights = sc.PointLights
	f.DirLight = sc.DirLight()
	if f.DirLight == nil {
		l := scene.NewDirLight(s.LightDirection, s.LightColor)
		f.DirLight = &l
	}
	return f
}
