package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// File is the layout of the TOML configuration file.
type File struct {
	Window struct {
		Width      int    `toml:"width"`
		Height     int    `toml:"height"`
		Title      string `toml:"title"`
		Fullscreen bool   `toml:"fullscreen"`
		VSync      bool   `toml:"vsync"`
		FPSLimit   int    `toml:"fps_limit"`
	} `toml:"window"`

	Render struct {
		Exposure     float32    `toml:"exposure"`
		Gamma        float32    `toml:"gamma"`
		Wireframe    bool       `toml:"wireframe"`
		DebugView    int        `toml:"debug_view"`
		Tessellation bool       `toml:"tessellation"`
		TessInner    float32    `toml:"tess_inner"`
		TessOuter    float32    `toml:"tess_outer"`
		Scale        float32    `toml:"scale"`
		Rotation     [3]float32 `toml:"rotation"`
		Translation  [3]float32 `toml:"translation"`
	} `toml:"render"`

	Shadow struct {
		Enabled    bool    `toml:"enabled"`
		Resolution int     `toml:"resolution"`
		Distance   float32 `toml:"distance"`
		Near       float32 `toml:"near"`
		Far        float32 `toml:"far"`
		Extent     float32 `toml:"extent"`
	} `toml:"shadow"`

	Light struct {
		Direction [3]float32 `toml:"direction"`
		Color     [3]float32 `toml:"color"`
		Ambient   float32    `toml:"ambient"`
		Diffuse   float32    `toml:"diffuse"`
		Specular  float32    `toml:"specular"`
	} `toml:"light"`

	Paths struct {
		Shaders     string `toml:"shaders"`
		Scene       string `toml:"scene"`
		Screenshots string `toml:"screenshots"`
	} `toml:"paths"`

	Debug bool `toml:"debug"`
}

// DefaultFile returns the configuration used when no file is given.
func DefaultFile() *File {
	d := Defaults()
	f := &File{}
	f.Window.Width = 1280
	f.Window.Height = 720
	f.Window.Title = "defview"
	f.Window.FPSLimit = d.FPSLimit

	f.Render.Exposure = d.Exposure
	f.Render.Gamma = d.Gamma
	f.Render.DebugView = d.DebugView
	f.Render.Tessellation = d.Tessellation
	f.Render.TessInner = d.TessInner
	f.Render.TessOuter = d.TessOuter
	f.Render.Scale = d.Scale

	f.Shadow.Enabled = d.Shadows
	f.Shadow.Resolution = d.ShadowResolution
	f.Shadow.Distance = d.ShadowDistance
	f.Shadow.Near = d.ShadowNear
	f.Shadow.Far = d.ShadowFar
	f.Shadow.Extent = d.ShadowExtent

	f.Light.Direction = d.LightDirection
	f.Light.Color = d.LightColor
	f.Light.Ambient = d.LightAmbient
	f.Light.Diffuse = d.LightDiffuse
	f.Light.Specular = d.LightSpecular

	f.Paths.Shaders = "assets/shaders"
	f.Paths.Scene = "assets/scenes/showcase.json"
	f.Paths.Screenshots = "."
	return f
}

// Load reads a TOML file on top of DefaultFile, so keys missing from the
// file keep their defaults.
func Load(path string) (*File, error) {
	f := DefaultFile()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := toml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if f.Window.Width <= 0 || f.Window.Height <= 0 {
		return nil, fmt.Errorf("config: %s: window size %dx%d", path, f.Window.Width, f.Window.Height)
	}
	return f, nil
}

// Snapshot converts the file to render settings.
func (f *File) Snapshot() Snapshot {
	return clampAll(Snapshot{
		Exposure:         f.Render.Exposure,
		Gamma:            f.Render.Gamma,
		Wireframe:        f.Render.Wireframe,
		Shadows:          f.Shadow.Enabled,
		DebugView:        f.Render.DebugView,
		Tessellation:     f.Render.Tessellation,
		TessInner:        f.Render.TessInner,
		TessOuter:        f.Render.TessOuter,
		LightAmbient:     f.Light.Ambient,
		LightDiffuse:     f.Light.Diffuse,
		LightSpecular:    f.Light.Specular,
		ShadowDistance:   f.Shadow.Distance,
		ShadowNear:       f.Shadow.Near,
		ShadowFar:        f.Shadow.Far,
		ShadowExtent:     f.Shadow.Extent,
		ShadowResolution: f.Shadow.Resolution,
		LightDirection:   mgl32.Vec3(f.Light.Direction),
		LightColor:       mgl32.Vec3(f.Light.Color),
		Scale:            f.Render.Scale,
		Rotation:         mgl32.Vec3(f.Render.Rotation),
		Translation:      mgl32.Vec3(f.Render.Translation),
		FPSLimit:         f.Window.FPSLimit,
	})
}

// Apply makes the file the current render settings.
func (f *File) Apply() {
	Replace(f.Snapshot())
}
