// Package scene describes what the renderer draws: one model and the
// lights around it. Scenes are read from JSON or YAML files.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"defview/internal/gpu"
	"defview/internal/graphics"
	"defview/internal/logger"
)

var ErrNoModel = errors.New("scene: no model name supplied")

type Scene struct {
	Name        string
	Model       *Model
	PointLights []PointLight
	DirLights   []DirLight
}

// DrawScene draws the model with p, which must be in use.
func (s *Scene) DrawScene(p *graphics.Program, tess bool) {
	if s.Model != nil {
		s.Model.Draw(p, tess)
	}
}

// DirLight returns the light used by the directional pass, or nil.
func (s *Scene) DirLight() *DirLight {
	if len(s.DirLights) == 0 {
		return nil
	}
	return &s.DirLights[0]
}

func (s *Scene) Delete() {
	if s.Model != nil {
		s.Model.Delete()
		s.Model = nil
	}
}

// FromModel creates an unlit scene around a built-in model.
func FromModel(dev gpu.Device, name string) (*Scene, error) {
	m, err := LoadModel(dev, name)
	if err != nil {
		return nil, err
	}
	return &Scene{Name: name, Model: m}, nil
}

type vec3 map[string]float32

type lightDesc struct {
	Dir       vec3     `yaml:"dir"`
	Pos       vec3     `yaml:"pos"`
	Color     vec3     `yaml:"color"`
	Constant  *float32 `yaml:"constant"`
	Linear    *float32 `yaml:"linear"`
	Quadratic *float32 `yaml:"quadratic"`
}

// Description is the parsed form of a scene file.
type Description struct {
	Name        string      `yaml:"name"`
	Model       string      `yaml:"model"`
	Texture     string      `yaml:"texture"`
	DirLights   []lightDesc `yaml:"dirlights"`
	PointLights []lightDesc `yaml:"pointlights"`

	// Dir is the directory of the scene file; Texture is relative to it.
	Dir string `yaml:"-"`
}

var rootKeys = map[string]bool{
	"name": true, "model": true, "texture": true, "dirlights": true, "pointlights": true,
}

// Parse reads a scene description. Unknown keys are reported as warnings;
// a missing model is an error.
func Parse(data []byte, log *zap.Logger) (*Description, error) {
	log = logger.Or(log)

	var root map[string]yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("scene: parse: %w", err)
	}
	for key := range root {
		if !rootKeys[key] {
			log.Warn("unsupported scene key", zap.String("key", key))
		}
	}

	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("scene: parse: %w", err)
	}
	if desc.Model == "" {
		return nil, ErrNoModel
	}
	return &desc, nil
}

// Load reads and parses a scene file.
func Load(path string, log *zap.Logger) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	desc, err := Parse(data, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	desc.Dir = filepath.Dir(path)
	return desc, nil
}

// toVec3 reads the named components of v in order. Missing components are
// zero; ok is false if v itself is missing.
func toVec3(v vec3, keys string, log *zap.Logger) (mgl32.Vec3, bool) {
	var out mgl32.Vec3
	if v == nil {
		return out, false
	}
	for k, val := range v {
		i := -1
		for j := 0; j < len(keys); j++ {
			if len(k) > 0 && k[0] == keys[j] {
				i = j
			}
		}
		if i < 0 {
			log.Warn("unknown vector field", zap.String("field", k))
			continue
		}
		out[i] = val
	}
	return out, true
}

// Lights converts the light descriptions. Lights missing a required
// property are skipped with a warning.
func (d *Description) Lights(log *zap.Logger) ([]PointLight, []DirLight) {
	log = logger.Or(log)
	var (
		points []PointLight
		dirs   []DirLight
	)
	for i, l := range d.DirLights {
		dir, okDir := toVec3(l.Dir, "xyz", log)
		color, okColor := toVec3(l.Color, "rgb", log)
		if !okDir || !okColor {
			log.Warn("missing property in dirlight", zap.Int("index", i))
			continue
		}
		dirs = append(dirs, NewDirLight(dir, color))
	}
	for i, l := range d.PointLights {
		pos, okPos := toVec3(l.Pos, "xyz", log)
		color, okColor := toVec3(l.Color, "rgb", log)
		if !okPos || !okColor {
			log.Warn("missing property in pointlight", zap.Int("index", i))
			continue
		}
		c, lin, q := float32(DefaultConstant), float32(DefaultLinear), float32(DefaultQuadratic)
		if l.Constant != nil {
			c = *l.Constant
		}
		if l.Linear != nil {
			lin = *l.Linear
		}
		if l.Quadratic != nil {
			q = *l.Quadratic
		}
		points = append(points, NewPointLightEx(pos, color, c, lin, q))
	}
	return points, dirs
}

// Build creates the GPU side of a described scene.
func Build(dev gpu.Device, d *Description, log *zap.Logger) (*Scene, error) {
	log = logger.Or(log)
	m, err := LoadModel(dev, d.Model)
	if err != nil {
		return nil, err
	}
	if d.Texture != "" {
		tex, _, _, err := graphics.LoadTexture(dev, filepath.Join(d.Dir, d.Texture))
		if err != nil {
			m.Delete()
			return nil, fmt.Errorf("scene: texture: %w", err)
		}
		m.SetTexture(tex)
	}

	s := &Scene{Name: d.Name, Model: m}
	if s.Name == "" {
		s.Name = d.Model
	}
	s.PointLights, s.DirLights = d.Lights(log)
	log.Info("scene loaded",
		zap.String("name", s.Name),
		zap.String("model", d.Model),
		zap.Int("pointLights", len(s.PointLights)),
		zap.Int("dirLights", len(s.DirLights)))
	return s, nil
}
